// Package model implements the model registry, the ownership token protocol
// and the record facade on top of a persistence.DocumentStore.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/asaidimu/go-daybed/core/schema"
)

// Kind classifies the failures a model operation can end with.
type Kind int

const (
	KindMetaSchema Kind = iota + 1 // submitted definition is malformed
	KindValidation                 // record payload violates the definition
	KindForbidden                  // token mismatch on redefinition
	KindNotFound                   // model has no stored definition
	KindStorage                    // the document store failed
)

// Sentinel errors matching each Kind through errors.Is.
var (
	ErrMetaSchema = errors.New("invalid model definition")
	ErrValidation = errors.New("payload validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("unknown model")
	ErrStorage    = errors.New("storage failure")
)

func (k Kind) sentinel() error {
	switch k {
	case KindMetaSchema:
		return ErrMetaSchema
	case KindValidation:
		return ErrValidation
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindStorage:
		return ErrStorage
	}
	return nil
}

// String returns the name of the kind.
func (k Kind) String() string {
	if err := k.sentinel(); err != nil {
		return err.Error()
	}
	return "unknown"
}

// Error is returned by every failing model operation. Issues always holds at
// least one entry describing the failing field or reason.
type Error struct {
	Kind   Kind
	Model  string
	Issues []schema.Issue
	Err    error
}

func (e *Error) Error() string {
	messages := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		messages = append(messages, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	msg := fmt.Sprintf("%s for model %s", e.Kind, e.Model)
	if len(messages) > 0 {
		msg += ": " + strings.Join(messages, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var modelErr *Error
	if errors.As(err, &modelErr) {
		return modelErr, true
	}
	return nil, false
}

func metaSchemaError(model string, issues []schema.Issue) *Error {
	return &Error{Kind: KindMetaSchema, Model: model, Issues: issues}
}

func validationError(model string, issues []schema.Issue) *Error {
	return &Error{Kind: KindValidation, Model: model, Issues: issues}
}

func forbiddenError(model string) *Error {
	return &Error{
		Kind:  KindForbidden,
		Model: model,
		Issues: []schema.Issue{{
			Location: schema.LocationQuery,
			Field:    "token",
			Message:  fmt.Sprintf("invalid token for model %s", model),
			Code:     schema.CodeInvalidToken,
		}},
	}
}

func notFoundError(model string) *Error {
	return &Error{
		Kind:  KindNotFound,
		Model: model,
		Issues: []schema.Issue{{
			Location: schema.LocationPath,
			Field:    "modelname",
			Message:  fmt.Sprintf("Unknown model %s", model),
			Code:     schema.CodeUnknownModel,
		}},
	}
}

// storageError keeps the store's error as the cause only; the issue carries a
// fixed message so driver details never reach clients.
func storageError(model, operation string, err error) *Error {
	return &Error{
		Kind:  KindStorage,
		Model: model,
		Err:   err,
		Issues: []schema.Issue{{
			Location: schema.LocationServer,
			Field:    "store",
			Message:  fmt.Sprintf("failed to %s", operation),
			Code:     schema.CodeStorageUnavailable,
		}},
	}
}
