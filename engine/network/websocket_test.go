package network

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelay_ForwardsToOtherPeers(t *testing.T) {
	relay := NewRelay(nil)
	srv := httptest.NewServer(relay)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	a, err := DialWS(url)
	require.NoError(t, err)
	defer a.Close()
	b, err := DialWS(url)
	require.NoError(t, err)
	defer b.Close()

	gotA := make(chan []byte, 4)
	gotB := make(chan []byte, 4)
	a.Listen(func(f []byte) { gotA <- f })
	b.Listen(func(f []byte) { gotB <- f })

	require.Eventually(t, func() bool { return relay.Peers() == 2 }, 2*time.Second, 10*time.Millisecond)

	env := Envelope{Tick: 3, PlayerID: 1, Handler: HandlerMove, Payload: []byte{2, 0}}
	require.NoError(t, a.Send(env.Bytes()))

	select {
	case f := <-gotB:
		assert.Equal(t, env.Bytes(), f)
	case <-time.After(2 * time.Second):
		t.Fatal("frame not relayed")
	}
	select {
	case <-gotA:
		t.Fatal("sender received its own frame")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRelay_LockstepOverWebsocket(t *testing.T) {
	relay := NewRelay(nil)
	srv := httptest.NewServer(relay)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ta, err := DialWS(url)
	require.NoError(t, err)
	tb, err := DialWS(url)
	require.NoError(t, err)

	a, b := NewLockstepManager(2, nil), NewLockstepManager(2, nil)
	a.Attach(ta)
	b.Attach(tb)
	defer a.Close()
	defer b.Close()

	require.Eventually(t, func() bool { return relay.Peers() == 2 }, 2*time.Second, 10*time.Millisecond)
	a.Submit(Envelope{PlayerID: 0, Handler: HandlerMove, Payload: []byte{1}})
	require.Eventually(t, func() bool { return b.Pending() == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, a.CommandsForTick(2), b.CommandsForTick(2))
}

func TestWSTransport_SendAfterClose(t *testing.T) {
	srv := httptest.NewServer(NewRelay(nil))
	defer srv.Close()

	tr, err := DialWS("ws" + strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	assert.NoError(t, tr.Close())
	assert.Error(t, tr.Send([]byte{1}))
}
