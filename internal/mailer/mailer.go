package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// ErrNotConfigured is returned when no SMTP relay is configured.
var ErrNotConfigured = errors.New("mailer is not configured")

// Message is one outgoing HTML email.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ContactForm is a visitor submission from the public site.
type ContactForm struct {
	Name        string
	Email       string
	Phone       string
	Message     string
	ProductName string
	ProdID      string
}

// IsProductInquiry reports whether the form names a product.
func (f ContactForm) IsProductInquiry() bool {
	return strings.TrimSpace(f.ProductName) != "" && strings.TrimSpace(f.ProdID) != ""
}

// Subject returns the subject line for the form.
func (f ContactForm) Subject() string {
	if f.IsProductInquiry() {
		return fmt.Sprintf("Product Inquiry: %s (ID: %s)", headerSafe(f.ProductName), headerSafe(f.ProdID))
	}
	return "New Contact Form Message"
}

var contactTemplate = template.Must(template.New("contact").Parse(`{{if .Inquiry}}<h3>New Product Inquiry</h3>
<p><strong>Product Name:</strong> {{.Form.ProductName}}</p>
<p><strong>Product ID:</strong> {{.Form.ProdID}}</p>
<hr />
{{else}}<h3>New General Contact Message</h3>
{{end}}<p><strong>Full Name:</strong> {{.Form.Name}}</p>
<p><strong>Email:</strong> {{.Form.Email}}</p>
<p><strong>Phone:</strong> {{.Form.Phone}}</p>
<p><strong>Message:</strong> {{.Form.Message}}</p>
`))

// BuildContactMessage renders the form into a message addressed to the site inbox.
// Visitor input is HTML-escaped.
func BuildContactMessage(form ContactForm, from, to string) (Message, error) {
	var body bytes.Buffer
	data := struct {
		Inquiry bool
		Form    ContactForm
	}{Inquiry: form.IsProductInquiry(), Form: form}
	if err := contactTemplate.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render contact message: %w", err)
	}
	return Message{
		From:    from,
		To:      splitAddresses(to),
		ReplyTo: headerSafe(form.Email),
		Subject: form.Subject(),
		HTML:    body.String(),
	}, nil
}

func splitAddresses(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// headerSafe strips line breaks so user input cannot inject headers.
func headerSafe(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}
