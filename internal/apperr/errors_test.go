package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTripClosedIsConflict(t *testing.T) {
	require.ErrorIs(t, ErrTripClosed, ErrConflict)
	require.ErrorIs(t, fmt.Errorf("cancel: %w", ErrTripClosed), ErrConflict)
}

func TestIsDomain(t *testing.T) {
	require.True(t, IsDomain(fmt.Errorf("bid: %w", ErrConflict)))
	require.True(t, IsDomain(ErrForbidden))
	require.True(t, IsDomain(ErrInvalid))
	require.True(t, IsDomain(ErrNotFound))
	require.False(t, IsDomain(errors.New("connection reset")))
	require.False(t, IsDomain(ErrTransaction))
}
