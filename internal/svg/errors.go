package svg

import "fmt"

// Error codes for the svg package
const (
	ErrCodeMalformedDocument = 1
	ErrCodeZeroAspect        = 2
	ErrCodeEncodeFailure     = 3
	ErrCodeDecodeFailure     = 4
)

// ConvertError is a structured error type for the svg package
type ConvertError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ConvertError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("svg: [%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("svg: [%d] %s", e.Code, e.Message)
}

// Is matches errors by code so call sites can branch with errors.Is
// against the predefined values regardless of detail text.
func (e *ConvertError) Is(target error) bool {
	t, ok := target.(*ConvertError)
	return ok && t.Code == e.Code
}

func NewError(code int, message string, details ...string) error {
	err := &ConvertError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// Predefined errors
var (
	ErrMalformedDocument = NewError(ErrCodeMalformedDocument, "unparseable vector markup")
	ErrZeroAspect        = NewError(ErrCodeZeroAspect, "document dimensions collapse to zero")
)
