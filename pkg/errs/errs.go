// Package errs defines the stage-level error kinds of the pipeline. A stage
// either completes or returns one of these kinds wrapping the underlying cause.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure by the stage that produced it.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindDataNotFound  Kind = "data_not_found"
	KindEmptyDataset  Kind = "empty_dataset"
	KindPreprocessing Kind = "preprocessing"
	KindModelTraining Kind = "model_training"
	KindONNXExport    Kind = "onnx_export"
)

// Sentinels for errors.Is checks. Matching is by kind only.
var (
	ErrDataNotFound  = &Error{Kind: KindDataNotFound}
	ErrEmptyDataset  = &Error{Kind: KindEmptyDataset}
	ErrPreprocessing = &Error{Kind: KindPreprocessing}
	ErrModelTraining = &Error{Kind: KindModelTraining}
	ErrONNXExport    = &Error{Kind: KindONNXExport}
)

// Error is a kind-tagged error carrying an optional cause.
type Error struct {
	Kind    Kind
	Message string

	cause error
}

var _ error = (*Error)(nil)

// New returns an error of the given kind without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with fmt formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, cause: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
