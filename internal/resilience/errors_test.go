package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code      int
		transient bool
	}{
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{422, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
	}
	for _, tt := range tests {
		err := FromStatus(tt.code, nil)
		assert.Equal(t, tt.transient, IsTransient(err), "status %d", tt.code)

		var ext *ExternalError
		assert.True(t, errors.As(err, &ext))
		assert.Equal(t, tt.code, ext.StatusCode)
	}
}

func TestIsTransient(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unclassified", base, false},
		{"transient", Transient(base), true},
		{"wrapped transient", fmt.Errorf("call: %w", Transient(base)), true},
		{"permanent", Permanent(base), false},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"net error", &net.OpError{Op: "dial", Err: base}, true},
		{"permanent wins over deadline", Permanent(context.DeadlineExceeded), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestUnavailableError_Unwraps(t *testing.T) {
	err := error(&UnavailableError{Attempts: 0, Cause: ErrCircuitOpen})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Contains(t, err.Error(), "circuit breaker is open")

	var unavailable *UnavailableError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &unavailable))
}

func TestTransientPermanentNil(t *testing.T) {
	assert.NoError(t, Transient(nil))
	assert.NoError(t, Permanent(nil))
}
