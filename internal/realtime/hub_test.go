package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

func startHub(t *testing.T, metrics *Metrics) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(metrics)
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

// createConnectedClient dials a websocket and returns the test's end of it
// together with the *Client the hub sees.
func createConnectedClient(t *testing.T, hub *Hub, timelineID string) (*websocket.Conn, *Client) {
	t.Helper()

	var internal *Client
	var created sync.WaitGroup
	created.Add(1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		internal = &Client{hub: hub, conn: conn, send: make(chan []byte, 256), timelineID: timelineID}
		created.Done()

		go internal.writePump()
		go internal.readPump()
	}))

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	created.Wait()

	t.Cleanup(func() {
		server.Close()
		ws.Close()
	})
	return ws, internal
}

func readWithin(t *testing.T, ws *websocket.Conn, d time.Duration) (string, error) {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(d))
	_, b, err := ws.ReadMessage()
	return string(b), err
}

func TestHubBroadcast(t *testing.T) {
	hub := startHub(t, nil)
	ws, client := createConnectedClient(t, hub, "t1")
	require.True(t, hub.Register(client))

	hub.Publish(context.Background(), "t1", []byte("hello"))

	got, err := readWithin(t, ws, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestHubFiltersByTimeline(t *testing.T) {
	hub := startHub(t, nil)
	wsA, a := createConnectedClient(t, hub, "t-a")
	wsB, b := createConnectedClient(t, hub, "t-b")
	wsNone, none := createConnectedClient(t, hub, "")
	hub.Register(a)
	hub.Register(b)
	hub.Register(none)

	hub.Publish(context.Background(), "t-a", []byte("about a"))
	hub.Publish(context.Background(), "", []byte("about nothing"))

	got, err := readWithin(t, wsA, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "about a", got)

	_, err = readWithin(t, wsA, 100*time.Millisecond)
	assert.Error(t, err)
	_, err = readWithin(t, wsNone, 100*time.Millisecond)
	assert.Error(t, err)
	_, err = readWithin(t, wsB, 100*time.Millisecond)
	assert.Error(t, err)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	hub := startHub(t, metrics)
	_, client := createConnectedClient(t, hub, "")

	hub.Register(client)
	assert.Eventually(t, func() bool { return testutil.ToFloat64(metrics.connections) == 1 }, time.Second, 10*time.Millisecond)

	hub.Unregister(client)

	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "send should be closed")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for send to close")
	}
	assert.Eventually(t, func() bool { return testutil.ToFloat64(metrics.connections) == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubStopDropsClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)

	_, client := createConnectedClient(t, hub, "")
	hub.Register(client)
	cancel()

	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.False(t, hub.Register(client))
	hub.Publish(context.Background(), "", []byte("late"))
}

func TestClientWants(t *testing.T) {
	c := &Client{timelineID: "t1"}
	assert.True(t, c.wants("t1"))
	assert.False(t, c.wants(""))
	assert.False(t, c.wants("t2"))
	assert.False(t, (&Client{}).wants("t2"))
	assert.False(t, (&Client{}).wants(""))
}
