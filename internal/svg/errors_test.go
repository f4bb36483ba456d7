package svg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "message only",
			err:      NewError(ErrCodeMalformedDocument, "unparseable vector markup"),
			expected: "svg: [1] unparseable vector markup",
		},
		{
			name:     "message with details",
			err:      NewError(ErrCodeMalformedDocument, "unparseable vector markup", "XML syntax error on line 3"),
			expected: "svg: [1] unparseable vector markup: XML syntax error on line 3",
		},
		{
			name:     "zero aspect",
			err:      NewError(ErrCodeZeroAspect, "document dimensions collapse to zero", "width=0.00 height=100.00"),
			expected: "svg: [2] document dimensions collapse to zero: width=0.00 height=100.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestConvertErrorMatching(t *testing.T) {
	detailed := NewError(ErrCodeMalformedDocument, "unparseable vector markup", "unexpected EOF")

	assert.ErrorIs(t, detailed, ErrMalformedDocument, "codes should match regardless of detail text")
	assert.NotErrorIs(t, detailed, ErrZeroAspect, "different codes must not match")
	assert.NotErrorIs(t, errors.New("unparseable vector markup"), ErrMalformedDocument,
		"plain errors with the same text must not match")

	wrapped := fmt.Errorf("converting doc_07.svg: %w", detailed)
	assert.ErrorIs(t, wrapped, ErrMalformedDocument, "matching should survive wrapping")

	var convertErr *ConvertError
	assert.ErrorAs(t, wrapped, &convertErr)
	assert.Equal(t, ErrCodeMalformedDocument, convertErr.Code)
	assert.Equal(t, "unexpected EOF", convertErr.Details)
}

func TestPipelineErrorsCarryCodes(t *testing.T) {
	_, _, err := Convert(`<svg viewBox="0 0 0 100"><path d="M0,0 L1,1"/></svg>`)
	assert.ErrorIs(t, err, ErrZeroAspect, "zero-width viewBox should surface the zero aspect code")

	_, _, err = Convert("<svg><path></svg>")
	assert.ErrorIs(t, err, ErrMalformedDocument, "broken markup should surface the malformed document code")

	_, err = DecodeImage("not-base64!!!")
	var convertErr *ConvertError
	assert.ErrorAs(t, err, &convertErr)
	assert.Equal(t, ErrCodeDecodeFailure, convertErr.Code)
}
