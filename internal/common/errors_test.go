package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name            string
		originalError   error
		message         string
		expectedMessage string
	}{
		{
			name:            "wrap simple error",
			originalError:   errors.New("original error"),
			message:         "wrapper message",
			expectedMessage: "wrapper message: original error",
		},
		{
			name:            "empty wrapper message",
			originalError:   errors.New("original error"),
			message:         "",
			expectedMessage: ": original error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrappedError := WrapError(tt.originalError, tt.message)
			assert.Error(t, wrappedError)
			assert.Equal(t, tt.expectedMessage, wrappedError.Error())
			assert.ErrorIs(t, wrappedError, tt.originalError)
		})
	}

	assert.NoError(t, WrapError(nil, "ignored"))
	assert.NoError(t, WrapErrorf(nil, "ignored %d", 1))
}

func TestWrapErrorf_KeepsSentinel(t *testing.T) {
	err := WrapErrorf(ErrNoBaseline, "endpoint %s", "https://example.com/a|GET")
	assert.ErrorIs(t, err, ErrNoBaseline)
	assert.Equal(t, "endpoint https://example.com/a|GET: no baseline", err.Error())
}

func TestNetworkError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewNetworkError("http://proxy:8080", "dial failed", inner)

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "http://proxy:8080")
	assert.Contains(t, err.Error(), "dial failed")
}

func TestConfigurationError(t *testing.T) {
	assert.Equal(t, "configuration error in section 'proxy', field 'max_proxies': must be positive",
		NewConfigurationError("proxy", "max_proxies", "must be positive").Error())
	assert.Equal(t, "configuration error in section 'proxy': bad",
		NewConfigurationError("proxy", "", "bad").Error())
	assert.Equal(t, "configuration error: bad", NewConfigurationError("", "", "bad").Error())
	assert.ErrorIs(t, NewConfigurationError("a", "b", "c"), ErrInvalidConfiguration)
}

func TestHTTPError(t *testing.T) {
	assert.Equal(t, "HTTP 503 error for 'http://x': down", NewHTTPErrorWithURL(503, "down", "http://x").Error())
	assert.Equal(t, "HTTP 404 error: missing", (&HTTPError{StatusCode: 404, Message: "missing"}).Error())
}

func TestErrorCollector(t *testing.T) {
	ec := NewErrorCollector()
	assert.False(t, ec.HasErrors())
	assert.NoError(t, ec.Error())

	ec.Add(nil)
	ec.Add(errors.New("first"))
	assert.Equal(t, "first", ec.Error().Error())

	ec.AddWithContext(errors.New("second"), "source b")
	assert.True(t, ec.HasErrors())
	assert.Len(t, ec.Errors(), 2)
	assert.Equal(t, "multiple errors occurred: [first; source b: second]", ec.Error().Error())
}
