package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsCustomError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	wrapped := fmt.Errorf("refresh: %w", NewUpstreamUnavailableError(cause))

	customErr := AsCustomError(wrapped)
	require.Equal(t, KindUpstreamUnavailable, customErr.Kind)
	require.Equal(t, http.StatusServiceUnavailable, customErr.Code)
	require.ErrorIs(t, customErr, cause)
	require.NotContains(t, customErr.Message, "connection refused")

	internal := AsCustomError(errors.New("boom"))
	require.Equal(t, KindInternal, internal.Kind)
	require.Equal(t, http.StatusInternalServerError, internal.Code)
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, SplitList(" a, ,b,"))
	require.Nil(t, SplitList(""))
}
