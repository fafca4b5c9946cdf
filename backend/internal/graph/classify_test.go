package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kindred/backend/pkg/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorType
	}{
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), apperrors.ErrorTypeStoreUnavailable},
		{"cancelled", fmt.Errorf("run: %w", context.Canceled), ""},
		{"plain", errors.New("syntax error"), ""},
		{"kinded", apperrors.NewNotFound("Ana"), apperrors.ErrorTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("get person", tt.err)
			assert.Equal(t, tt.want, apperrors.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.NoError(t, classify("noop", nil))
}

func TestAddChildren_CancelledLockWaitIsNotUnavailable(t *testing.T) {
	repo, _ := newTestRepository(t, WithSerializedAppends(true))
	unlock, err := repo.locker.Lock(context.Background(), "P")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = repo.AddChildren(ctx, "P", []Person{{Name: "Kid"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, apperrors.IsErrorType(err, apperrors.ErrorTypeStoreUnavailable))
}
