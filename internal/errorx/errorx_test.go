package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("complete step: %w", New(Conflict, "step already completed"))

	require.Equal(t, Conflict, KindOf(err))
	require.True(t, Is(err, Conflict))
	require.False(t, Is(err, NotFound))
	require.Equal(t, Unknown, KindOf(errors.New("boom")))
}

func TestOutsideGeofence(t *testing.T) {
	err := OutsideGeofence(5000, 50)

	require.Equal(t, Verification, err.Kind)
	require.Equal(t, 5000.0, *err.DistanceMeters)
	require.Equal(t, 50.0, *err.RadiusMeters)
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		Validation:          http.StatusBadRequest,
		NotFound:            http.StatusNotFound,
		Conflict:            http.StatusConflict,
		Verification:        http.StatusUnprocessableEntity,
		InsufficientBalance: http.StatusBadRequest,
		Unauthorized:        http.StatusUnauthorized,
		Forbidden:           http.StatusForbidden,
		Unknown:             http.StatusInternalServerError,
	}

	for kind, want := range tests {
		require.Equal(t, want, HTTPStatus(kind), kind.String())
	}
}
