// Package apperr définit les erreurs métier et leur correspondance HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newf(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newf(KindForbidden, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, format, args...)
}

// Internal enveloppe une erreur technique ; le message n'est jamais exposé au client
func Internal(err error, op string) *Error {
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

// Wrap conserve la cause technique, accessible via errors.Is/As
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// WithDetails attache des informations complémentaires à la réponse
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// KindOf retourne KindInternal pour toute erreur non typée
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message retourne le texte destiné au client
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "Internal server error"
}

// Details retourne les détails éventuels de l'erreur
func Details(err error) any {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Details
	}
	return nil
}
