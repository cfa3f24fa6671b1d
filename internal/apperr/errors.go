/*
Package apperr defines the error taxonomy shared by the query pipeline.

Handlers return these typed errors; the dispatcher and the assistant turn
them into plain-language answers with UserMessage instead of surfacing raw
faults to the caller.
*/
package apperr

import (
	"errors"
	"fmt"
)

// MaxQueryRunes bounds the accepted query length.
const MaxQueryRunes = 1000

// GenericFailure is returned to the user when nothing more specific applies.
const GenericFailure = "Sorgu işlenirken bir hata oluştu. Lütfen daha basit bir soru deneyin."

// InputError represents an empty or oversized query.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

// AuthorizationError is returned when the user's role cannot access an intent.
type AuthorizationError struct {
	UserID string
	Role   string
	Intent string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %q (role %q) is not allowed to run %s", e.UserID, e.Role, e.Intent)
}

// DataNotFoundError represents a missing dataset, entity, column or department.
type DataNotFoundError struct {
	What string // "dataset", "column", "employee", "store", "department", ...
	Name string
	Hint string // Optional user-facing explanation
}

func (e *DataNotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s not found", e.What)
	}
	return fmt.Sprintf("%s not found: %s", e.What, e.Name)
}

// ComputationError covers divide-by-zero, unparsable expressions and
// non-numeric data where numbers are required.
type ComputationError struct {
	Op     string
	Reason string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation %s failed: %s", e.Op, e.Reason)
}

// UpstreamKind classifies collaborator failures.
type UpstreamKind string

const (
	UpstreamUnavailable UpstreamKind = "unavailable"
	UpstreamTimeout     UpstreamKind = "timeout"
	UpstreamConfig      UpstreamKind = "config"
	UpstreamEmpty       UpstreamKind = "empty"
)

// UpstreamError wraps a generative/search collaborator failure.
type UpstreamError struct {
	Service string
	Kind    UpstreamKind
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s", e.Service, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PersistenceWarning marks a learning-store write failure. It is logged and
// never changes the response already computed for the user.
type PersistenceWarning struct {
	Op  string
	Err error
}

func (e *PersistenceWarning) Error() string {
	return fmt.Sprintf("persistence warning (%s): %v", e.Op, e.Err)
}

func (e *PersistenceWarning) Unwrap() error { return e.Err }

// Computation is a shorthand constructor.
func Computation(op, reason string) error {
	return &ComputationError{Op: op, Reason: reason}
}

// NotFound is a shorthand constructor.
func NotFound(what, name, hint string) error {
	return &DataNotFoundError{What: what, Name: name, Hint: hint}
}

// UserMessage converts an error into the Turkish text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var inputErr *InputError
	var authErr *AuthorizationError
	var notFound *DataNotFoundError
	var compErr *ComputationError
	var upErr *UpstreamError

	switch {
	case errors.As(err, &inputErr):
		return "Lütfen geçerli bir soru yazın (" + inputErr.Reason + ")."
	case errors.As(err, &authErr):
		return "Maaş bilgilerine erişim yetkiniz bulunmamaktadır."
	case errors.As(err, &notFound):
		if notFound.Hint != "" {
			return notFound.Hint
		}
		if notFound.Name != "" {
			return fmt.Sprintf("'%s' için veri bulunamadı.", notFound.Name)
		}
		return "İstenen veri bulunamadı."
	case errors.As(err, &compErr):
		return "Hesaplama yapılamadı: " + compErr.Reason
	case errors.As(err, &upErr):
		if upErr.Kind == UpstreamConfig {
			return "Harici servis için API anahtarı yapılandırılmamış."
		}
		return "Harici servise şu anda ulaşılamıyor."
	default:
		return GenericFailure
	}
}

// IsKind reports whether err is an UpstreamError of the given kind.
func IsKind(err error, kind UpstreamKind) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr) && upErr.Kind == kind
}
