package tracker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterResult(t *testing.T) {
	require.False(t, Accepted().IsIgnored())
	require.Nil(t, Accepted().Reason)

	reason := errors.New("already exists")
	r := Ignored(reason)
	require.True(t, r.IsIgnored())
	require.Equal(t, RegisterIgnored, r.Outcome)
	require.ErrorIs(t, r.Reason, reason)
}
