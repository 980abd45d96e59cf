package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	cause := errors.New("relation does not exist")

	assert.Equal(t, "[metadata] list tables: relation does not exist",
		Wrap(ErrKindMetadata, "list tables", cause).Error())
	assert.Equal(t, "[invalid_input] unknown engine", New(ErrKindInvalidInput, "unknown engine").Error())
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", New(ErrKindNotFound, "x"), IsNotFound},
		{"timeout", Wrap(ErrKindTimeout, "x", context.DeadlineExceeded), IsTimeout},
		{"connection", New(ErrKindConnectionFailed, "x"), IsConnectionFailed},
		{"query", New(ErrKindQueryFailed, "x"), IsQueryFailed},
		{"input", New(ErrKindInvalidInput, "x"), IsInvalidInput},
		{"permission", New(ErrKindPermissionDenied, "x"), IsPermissionDenied},
		{"metadata", New(ErrKindMetadata, "x"), IsMetadata},
		{"wrapped by fmt", fmt.Errorf("scan: %w", New(ErrKindMetadata, "x")), IsMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
		})
	}
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrKindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, ErrKindUnknown, KindOf(nil))
}

func TestUnwrap_ReachesCause(t *testing.T) {
	err := Wrap(ErrKindTimeout, "probe throttled", context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
}
