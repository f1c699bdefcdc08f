package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

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
		{"wrapped", fmt.Errorf("submit: %w", NewTransientError(errors.New("slow down"), 429)), true},
		{"plain", errors.New("invalid input: missing field"), false},
		{"conn reset", fmt.Errorf("write tcp: %w", syscall.ECONNRESET), true},
		{"conn refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"net timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"tls pattern", errors.New("net/http: TLS handshake timeout"), true},
		{"eof pattern", errors.New("read: unexpected EOF"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 425, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
}

func TestClassifyStatus(t *testing.T) {
	base := errors.New("boom")

	assert.Nil(t, ClassifyStatus(nil, 503))

	err := ClassifyStatus(base, 503)
	var te *TransientError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, 503, te.StatusCode)
	assert.ErrorIs(t, err, base)

	assert.Same(t, base, ClassifyStatus(base, 401))
}
