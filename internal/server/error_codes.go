package server

import "net/http"

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument  = 1000
	ErrCodeInvalidJSON      = 1001
	ErrCodeRequestTooLarge  = 1002
	ErrCodeInvalidQuery     = 1003
	ErrCodeInvalidID        = 1004
	ErrCodeMissingRequired  = 1009
	ErrCodeInvalidPath      = 1020
	ErrCodeInvalidMediaType = 1021
	ErrCodeInvalidTextMode  = 1022
	ErrCodeTooManyFiles     = 1023

	// Domain state (2xxx)
	ErrCodeMediaNotFound    = 2001
	ErrCodeEntityNotFound   = 2002
	ErrCodeUserNotFound     = 2003
	ErrCodeEntityExists     = 2101
	ErrCodeConflict         = 2102
	ErrCodeAssetInUse       = 2103
	ErrCodeBannerLimit      = 2104
	ErrCodeCategoryNotEmpty = 2105

	// Auth (3xxx)
	ErrCodeUnauthorized = 3001
	ErrCodeForbidden    = 3002

	// Internal/system (4xxx)
	ErrCodeInternal       = 4001
	ErrCodeStoreFailure   = 4002
	ErrCodeStorageFailure = 4003
	ErrCodeMailFailure    = 4004
	ErrCodeNotImplemented = 4005
)

// statusFallback is the code pair reported for a status when the error
// carries none of its own.
type statusFallback struct {
	code    string
	errCode int
}

var statusFallbacks = map[int]statusFallback{
	http.StatusBadRequest:          {"invalid_argument", ErrCodeInvalidArgument},
	http.StatusUnauthorized:        {"unauthorized", ErrCodeUnauthorized},
	http.StatusForbidden:           {"forbidden", ErrCodeForbidden},
	http.StatusNotFound:            {"not_found", ErrCodeEntityNotFound},
	http.StatusConflict:            {"conflict", ErrCodeConflict},
	http.StatusInternalServerError: {"internal", ErrCodeInternal},
	http.StatusNotImplemented:      {"not_implemented", ErrCodeNotImplemented},
}
