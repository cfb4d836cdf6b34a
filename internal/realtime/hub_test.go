package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dial connects a websocket client to the hub under the given user id and
// returns the connection plus a cleanup.
func dial(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func waitForUsers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(hub.UserIDs()) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d connected users", n)
}

func TestBroadcastReachesEveryConnection(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	a := dial(t, hub, "u-1")
	b := dial(t, hub, "u-2")
	waitForUsers(t, hub, 2)

	hub.Broadcast(Event{Event: EventTicketsChanged})

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		assert.Equal(t, EventTicketsChanged, ev.Event)
		assert.Nil(t, ev.Payload, "pokes carry no diff")
	}
}

func TestSendToUserTargetsOneUser(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	target := dial(t, hub, "u-1")
	other := dial(t, hub, "u-2")
	waitForUsers(t, hub, 2)

	hub.SendToUser("u-1", Event{
		Event:   EventUnreadCounts,
		Payload: UnreadPayload{Messages: 3, Notifications: 1},
	})

	ev := readEvent(t, target)
	assert.Equal(t, EventUnreadCounts, ev.Event)
	payload, _ := json.Marshal(ev.Payload)
	assert.JSONEq(t, `{"messages":3,"notifications":1}`, string(payload))

	other.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "other user receives nothing")
}

func TestUserIDsTracksDisconnects(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	conn := dial(t, hub, "u-1")
	waitForUsers(t, hub, 1)
	assert.Equal(t, []string{"u-1"}, hub.UserIDs())

	conn.Close()
	waitForUsers(t, hub, 0)
}
