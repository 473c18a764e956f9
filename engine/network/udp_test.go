package network

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUDP_HostLearnsPeerFromFirstFrame(t *testing.T) {
	host, err := HostUDP(0)
	require.NoError(t, err)
	defer host.Close()
	port := host.LocalAddr().(*net.UDPAddr).Port

	peer, err := JoinUDP("127.0.0.1", port)
	require.NoError(t, err)
	defer peer.Close()

	atHost := make(chan []byte, 1)
	atPeer := make(chan []byte, 1)
	host.Listen(func(f []byte) { atHost <- f })
	peer.Listen(func(f []byte) { atPeer <- f })

	// nothing to send to before the peer has spoken
	require.NoError(t, host.Send([]byte{9}))

	require.NoError(t, peer.Send([]byte{1, 2}))
	select {
	case f := <-atHost:
		assert.Equal(t, []byte{1, 2}, f)
	case <-time.After(2 * time.Second):
		t.Fatal("host got nothing")
	}

	require.NoError(t, host.Send([]byte{3}))
	select {
	case f := <-atPeer:
		assert.Equal(t, []byte{3}, f)
	case <-time.After(2 * time.Second):
		t.Fatal("peer got nothing")
	}
}

func TestUDP_CloseTwice(t *testing.T) {
	host, err := HostUDP(0)
	require.NoError(t, err)
	require.NoError(t, host.Close())
	assert.NoError(t, host.Close())
}
