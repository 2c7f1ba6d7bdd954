package websocket

import (
	"encoding/json"
	"testing"

	"ai-livecourse-be/internal/pkg/logger"
	"ai-livecourse-be/pkg/course/stream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViewer(h *Hub, sessionID string) *Client {
	c := &Client{Hub: h, Send: make(chan []byte, 8), SessionID: sessionID}
	h.mu.Lock()
	h.clients[sessionID] = append(h.clients[sessionID], c)
	h.mu.Unlock()
	return c
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-c.Send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestEmitDeliversOncePerViewer(t *testing.T) {
	h := NewHub(nil, logger.NewNopLogger())
	viewer := newTestViewer(h, "sess-1")

	h.Emit("sess-1", stream.Event{Type: stream.EventHeartbeat, Data: map[string]interface{}{"isPaused": false}})

	msgs := drain(viewer)
	require.Len(t, msgs, 1)
}

func TestSelfOriginatedRedisMessageIsDropped(t *testing.T) {
	h := NewHub(nil, logger.NewNopLogger())
	viewer := newTestViewer(h, "sess-1")

	event, err := json.Marshal(stream.Event{Type: stream.EventHeartbeat})
	require.NoError(t, err)

	// A message carrying this hub's own origin must not be re-delivered;
	// Emit already pushed it to local viewers.
	own, _ := json.Marshal(redisEnvelope{Origin: h.instanceID, SessionID: "sess-1", Message: event})
	h.handleRedisMessage(own)
	assert.Empty(t, drain(viewer))

	// The same envelope from another instance is delivered.
	remote, _ := json.Marshal(redisEnvelope{Origin: "other-instance", SessionID: "sess-1", Message: event})
	h.handleRedisMessage(remote)
	assert.Len(t, drain(viewer), 1)
}

func TestRedisMessageIgnoresUnknownSession(t *testing.T) {
	h := NewHub(nil, logger.NewNopLogger())
	viewer := newTestViewer(h, "sess-1")

	event, _ := json.Marshal(stream.Event{Type: stream.EventHeartbeat})
	remote, _ := json.Marshal(redisEnvelope{Origin: "other-instance", SessionID: "sess-2", Message: event})
	h.handleRedisMessage(remote)
	assert.Empty(t, drain(viewer))
}
