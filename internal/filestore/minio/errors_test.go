package minio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"github.com/koustreak/tablescan/internal/errs"
	"github.com/koustreak/tablescan/internal/filestore"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"deadline", context.DeadlineExceeded, errs.IsTimeout},
		{"canceled wrapped", fmt.Errorf("put: %w", context.Canceled), errs.IsTimeout},
		{"no such key", miniogo.ErrorResponse{Code: "NoSuchKey"}, errs.IsNotFound},
		{"no such bucket", miniogo.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound}, errs.IsNotFound},
		{"access denied", miniogo.ErrorResponse{Code: "AccessDenied"}, errs.IsPermissionDenied},
		{"forbidden status", miniogo.ErrorResponse{StatusCode: http.StatusForbidden}, errs.IsPermissionDenied},
		{"bad name", miniogo.ErrorResponse{Code: "InvalidBucketName"}, errs.IsInvalidInput},
		{"slow down", miniogo.ErrorResponse{Code: "SlowDown"}, errs.IsTimeout},
		{"server error", miniogo.ErrorResponse{StatusCode: http.StatusInternalServerError}, errs.IsQueryFailed},
		{"transport", errors.New("dial tcp: connection refused"), errs.IsConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "op")
			assert.Error(t, got)
			assert.True(t, tt.is(got), "got %v", got)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.NoError(t, mapError(nil, "op"))
}

func TestNew_RequiresEndpoint(t *testing.T) {
	_, err := New(context.Background(), filestore.DefaultConfig("", "a", "b"))

	assert.True(t, errs.IsInvalidInput(err))
}
