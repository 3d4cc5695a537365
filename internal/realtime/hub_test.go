package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Connections are created without a websocket: Send only enqueues onto
// the buffered channel, so delivery counts can be asserted without a
// network in the loop.

func TestAttachSubscribesPrivateRoom(t *testing.T) {
	h := NewHub()
	conn := NewConnection(7, "USER", nil)
	h.Attach(conn)

	assert.True(t, h.InRoom(UserRoom(7), conn))
	assert.Equal(t, 1, h.NotifyUser(7, []byte(`{"type":"ping"}`)))
	assert.Equal(t, 0, h.NotifyUser(8, []byte(`{"type":"ping"}`)))
}

func TestMultipleSessionsPerUser(t *testing.T) {
	h := NewHub()
	a := NewConnection(7, "USER", nil)
	b := NewConnection(7, "USER", nil)
	h.Attach(a)
	h.Attach(b)

	// Both tabs of the same user receive private notifications.
	assert.Equal(t, 2, h.NotifyUser(7, []byte(`x`)))

	h.Detach(a)
	assert.Equal(t, 1, h.NotifyUser(7, []byte(`x`)))
}

func TestJoinLeaveBroadcast(t *testing.T) {
	h := NewHub()
	a := NewConnection(1, "USER", nil)
	b := NewConnection(2, "USER", nil)
	c := NewConnection(3, "USER", nil)
	for _, conn := range []*Connection{a, b, c} {
		h.Attach(conn)
	}

	room := RecruitRoom(42)
	h.Join(room, a)
	h.Join(room, b)

	assert.Equal(t, 2, h.Broadcast(room, []byte(`hello`)))
	assert.False(t, h.InRoom(room, c))

	h.Leave(room, b)
	assert.Equal(t, 1, h.Broadcast(room, []byte(`hello`)))

	// Leaving twice is harmless.
	h.Leave(room, b)
	assert.Equal(t, 1, h.Broadcast(room, []byte(`hello`)))
}

func TestBroadcastEmptyRoom(t *testing.T) {
	h := NewHub()
	assert.Equal(t, 0, h.Broadcast(RecruitRoom(1), []byte(`x`)))
}

func TestDetachReleasesAllRooms(t *testing.T) {
	h := NewHub()
	conn := NewConnection(1, "USER", nil)
	h.Attach(conn)
	h.Join(RecruitRoom(1), conn)
	h.Join(RecruitRoom(2), conn)

	h.Detach(conn)

	assert.False(t, h.InRoom(RecruitRoom(1), conn))
	assert.False(t, h.InRoom(RecruitRoom(2), conn))
	assert.False(t, h.InRoom(UserRoom(1), conn))

	// A detached session cannot rejoin.
	h.Join(RecruitRoom(1), conn)
	assert.False(t, h.InRoom(RecruitRoom(1), conn))
}

func TestSendAfterCloseFails(t *testing.T) {
	conn := NewConnection(1, "USER", nil)
	require.NoError(t, conn.Send([]byte(`x`)))

	conn.Close(1000, "bye")
	assert.Error(t, conn.Send([]byte(`x`)))
	// Close is idempotent.
	conn.Close(1000, "bye")
}

// Broadcasts race client disconnects in production; a send landing on
// a closing connection must come back as an error, never a panic.
func TestSendRacingCloseDoesNotPanic(t *testing.T) {
	for i := 0; i < 200; i++ {
		conn := NewConnection(1, "USER", nil)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				_ = conn.Send([]byte(`x`))
			}
		}()
		go func() {
			defer wg.Done()
			conn.Close(1000, "bye")
		}()
		wg.Wait()

		assert.Error(t, conn.Send([]byte(`x`)))
	}
}

func TestBroadcastSurvivesConcurrentDetach(t *testing.T) {
	h := NewHub()
	conns := make([]*Connection, 0, 8)
	for i := 0; i < 8; i++ {
		conn := NewConnection(uint64(i+1), "USER", nil)
		h.Attach(conn)
		h.Join(RecruitRoom(1), conn)
		conns = append(conns, conn)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			h.Broadcast(RecruitRoom(1), []byte(`x`))
		}
	}()
	go func() {
		defer wg.Done()
		for _, conn := range conns {
			conn.Close(1001, "gone")
			h.Detach(conn)
		}
	}()
	wg.Wait()

	assert.Equal(t, 0, h.Broadcast(RecruitRoom(1), []byte(`x`)))
}

func TestHubCloseClearsState(t *testing.T) {
	h := NewHub()
	conn := NewConnection(1, "USER", nil)
	h.Attach(conn)
	h.Join(RecruitRoom(1), conn)

	h.Close()

	assert.Equal(t, 0, h.Broadcast(RecruitRoom(1), []byte(`x`)))
	assert.Error(t, conn.Send([]byte(`x`)))
}
