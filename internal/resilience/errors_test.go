package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("overloaded"), 503), true},
		{"wrapped", fmt.Errorf("call: %w", NewTransientError(errors.New("rate"), 429)), true},
		{"eris wrapped", eris.Wrap(NewTransientError(errors.New("rate"), 429), "fetch"), true},
		{"regular", errors.New("invalid input"), false},
		{"reset", fmt.Errorf("write: %w", syscall.ECONNRESET), true},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"net timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"pattern broken pipe", errors.New("write: broken pipe"), true},
		{"pattern tls", errors.New("TLS handshake timeout"), true},
		{"pattern eof", errors.New("unexpected EOF"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestEnvironmentError(t *testing.T) {
	inner := errors.New("executable not found")
	err := NewEnvironmentError("start browser", inner)

	assert.Equal(t, "start browser: executable not found", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.True(t, IsFatal(err))
	assert.True(t, IsFatal(eris.Wrap(err, "schools")))
	assert.False(t, IsRecord(err))
	assert.Equal(t, "fatal", ClassifyError(err))
}

func TestEnvironmentError_NilCause(t *testing.T) {
	err := NewEnvironmentError("open", nil)
	assert.Contains(t, err.Error(), "open")
}

func TestRecordError(t *testing.T) {
	inner := errors.New("no table")
	err := NewRecordError("detail 600001234", inner)

	assert.Equal(t, "detail 600001234: no table", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.True(t, IsRecord(fmt.Errorf("x: %w", err)))
	assert.False(t, IsFatal(err))
	assert.Equal(t, "permanent", ClassifyError(err))
}

func TestClassifyError_Transient(t *testing.T) {
	assert.Equal(t, "transient", ClassifyError(NewTransientError(errors.New("x"), 502)))
}
