package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBareClient(code string) *Client {
	return &Client{
		ID:   uuid.New().String(),
		Code: code,
		send: make(chan WSMessage, 16),
	}
}

func TestHubRoomMembership(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)

	a := newBareClient("ABC234")
	b := newBareClient("ABC234")
	other := newBareClient("XYZ789")

	hub.Register(a)
	hub.Register(b)
	hub.Register(other)
	assert.Equal(t, 2, hub.RoomCount("ABC234"))
	assert.Equal(t, 1, hub.RoomCount("XYZ789"))

	hub.Unregister(a)
	assert.Equal(t, 1, hub.RoomCount("ABC234"))
	hub.Unregister(b)
	assert.Zero(t, hub.RoomCount("ABC234"))

	// Unregistering twice is harmless.
	hub.Unregister(b)
	assert.Zero(t, hub.RoomCount("ABC234"))
}

func TestHubBroadcastScopedToRoom(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)

	a := newBareClient("ABC234")
	other := newBareClient("XYZ789")
	hub.Register(a)
	hub.Register(other)

	hub.Broadcast("ABC234", "ping", map[string]int{"n": 1})

	msg := <-a.send
	assert.Equal(t, "ping", msg.Event)
	select {
	case m := <-other.send:
		t.Fatalf("client outside the room received %q", m.Event)
	default:
	}

	// Broadcasting to an empty room is a no-op.
	hub.Broadcast("NOROOM", "ping", nil)
}

func TestHubSendToClient(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)

	a := newBareClient("ABC234")
	b := newBareClient("ABC234")
	hub.Register(a)
	hub.Register(b)

	hub.SendToClient("ABC234", a.ID, "private", map[string]string{"for": "a"})

	msg := <-a.send
	assert.Equal(t, "private", msg.Event)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, "a", payload["for"])

	select {
	case m := <-b.send:
		t.Fatalf("sibling connection received %q", m.Event)
	default:
	}

	// Unknown connection id is a no-op.
	hub.SendToClient("ABC234", "gone", "private", nil)
}

type recordingPub struct {
	events []string
}

func (p *recordingPub) PublishSessionEvent(code, event string, payload []byte) error {
	p.events = append(p.events, event)
	return nil
}

func TestHubBroadcastAndPublish(t *testing.T) {
	pub := &recordingPub{}
	hub := NewHub(zap.NewNop(), pub, nil)

	a := newBareClient("ABC234")
	hub.Register(a)

	hub.BroadcastAndPublish("ABC234", "question", map[string]int{"index": 0})

	msg := <-a.send
	assert.Equal(t, "question", msg.Event)
	assert.Equal(t, []string{"question"}, pub.events)
}
