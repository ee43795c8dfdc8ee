package toolserver

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateFreePort(t *testing.T) {
	first, err := AllocateFreePort()
	require.NoError(t, err)
	assert.Greater(t, first, 0)

	// The allocator released the port, so we can bind it ourselves.
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(first)))
	require.NoError(t, err)
	defer ln.Close()

	// While we hold it, the allocator cannot hand it out again.
	second, err := AllocateFreePort()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
