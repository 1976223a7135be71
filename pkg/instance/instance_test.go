package instance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDPrefersEnv(t *testing.T) {
	t.Setenv("CIRCLEMART_INSTANCE_ID", "api-7")
	require.Equal(t, "api-7", ID("local"))
}

func TestIDFallsBackToHostname(t *testing.T) {
	t.Setenv("CIRCLEMART_INSTANCE_ID", "")
	require.NotEmpty(t, ID("local"))
}
