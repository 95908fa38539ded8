package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"

	"equipcat/internal/api"
	"equipcat/internal/mailer"
)

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if s.mailer == nil {
		s.writeServiceError(w, r, notImplemented(fmt.Errorf("contact mail is not configured")))
		return
	}

	var req api.ContactRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if err := requireFields("name", req.Name, "email", req.Email, "message", req.Message); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid email"), ErrCodeInvalidArgument))
		return
	}

	msg, err := mailer.BuildContactMessage(mailer.ContactForm{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Message:     req.Message,
		ProductName: req.ProductName,
		ProdID:      req.ProdID,
	}, s.mail.From, s.mail.To)
	if err != nil {
		s.writeServiceError(w, r, internalError(err))
		return
	}

	if err := s.mailer.Send(r.Context(), msg); err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			s.writeServiceError(w, r, notImplemented(err))
			return
		}
		s.writeServiceError(w, r, mailFailure(err))
		return
	}
	s.log().Info("contact message sent", "subject", msg.Subject)
	s.writeJSON(w, http.StatusOK, api.ContactResponse{Sent: true, Subject: msg.Subject})
}
