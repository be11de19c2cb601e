package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitTracerWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "service-rental-go", "test", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
