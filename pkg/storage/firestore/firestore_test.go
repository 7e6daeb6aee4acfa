package firestore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/test"
)

func TestFirestoreDatastore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST is not set")
	}

	ds, err := New(context.Background(), Config{ProjectID: "tavsiyece-test"})
	require.NoError(t, err)
	t.Cleanup(ds.Close)

	test.RunAllTests(t, ds)
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		code codes.Code
		want error
	}{
		{codes.NotFound, storage.ErrNotFound},
		{codes.PermissionDenied, storage.ErrPermissionDenied},
		{codes.Unauthenticated, storage.ErrPermissionDenied},
		{codes.Unavailable, storage.ErrTransient},
		{codes.DeadlineExceeded, storage.ErrTransient},
		{codes.Canceled, storage.ErrCancelled},
		{codes.FailedPrecondition, storage.ErrInvalidQuery},
	}

	for _, tc := range tests {
		t.Run(tc.code.String(), func(t *testing.T) {
			require.ErrorIs(t, handleError(status.Error(tc.code, "x")), tc.want)
		})
	}

	require.ErrorIs(t, handleError(context.Canceled), storage.ErrCancelled)
	require.False(t, storage.IsAccessFailure(handleError(errors.New("boom"))))
}

func TestToFields(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("TRT", 3*60*60))

	fields, err := toFields(map[string]any{
		"name":      "Ayşe",
		"count":     int64(3),
		"createdAt": ts,
		"keywords":  []any{"a", "b"},
		"nested":    map[string]any{"x": 1},
		"nothing":   nil,
	})
	require.NoError(t, err)

	require.Equal(t, "Ayşe", fields.String("name"))
	require.Equal(t, []string{"a", "b"}, fields.Strings("keywords"))
	require.Equal(t, time.UTC, fields.Time("createdAt").Location())
	require.True(t, fields.Time("createdAt").Equal(ts))
	require.False(t, fields.Has("nested"))
	require.False(t, fields.Has("nothing"))
}

func TestRelativePath(t *testing.T) {
	require.Equal(t, "users/alice/followers", relativePath("projects/p/databases/(default)/documents/users/alice/followers"))
	require.Equal(t, "users", relativePath("users"))
}
