package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pliu/personifid/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, origins []string) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(origins)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	// The account id comes from the query string here; the real router
	// authenticates first.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.URL.Query().Get("account"), 10, 64)
		hub.ServeWs(w, r, id)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, hub *Hub, srv *httptest.Server, accountID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?account=" + strconv.FormatInt(accountID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Connected(accountID) > 0 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestHubDeliversToOwnerOnly(t *testing.T) {
	hub, srv := startHub(t, nil)
	alice := dial(t, hub, srv, 1)
	bob := dial(t, hub, srv, 2)

	hub.Publish(models.Event{Type: models.EventIdentityCreated, AccountID: 1, ResourceID: 7, At: time.Now()})

	alice.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := alice.ReadMessage()
	require.NoError(t, err)

	var got models.Event
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, models.EventIdentityCreated, got.Type)
	assert.EqualValues(t, 7, got.ResourceID)

	bob.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err = bob.ReadMessage()
	assert.Error(t, err, "bob must not see alice's events")
}

func TestHubFansOutToEveryConnection(t *testing.T) {
	hub, srv := startHub(t, nil)
	first := dial(t, hub, srv, 1)
	second := dial(t, hub, srv, 1)
	require.Eventually(t, func() bool { return hub.Connected(1) == 2 }, time.Second, 5*time.Millisecond)

	hub.Publish(models.Event{Type: models.EventContextDeleted, AccountID: 1, ResourceID: 3})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(msg), `"context.deleted"`)
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, srv := startHub(t, nil)
	conn := dial(t, hub, srv, 5)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	assert.Eventually(t, func() bool { return hub.Connected(5) == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	_, srv := startHub(t, []string{"http://localhost:3000"})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?account=1"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://localhost:3000")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub(nil) // not running
	done := make(chan struct{})
	go func() {
		for i := 0; i < eventBuffer*2; i++ {
			hub.Publish(models.Event{Type: models.EventIdentityUpdated, AccountID: 1})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWs(w, r, 1)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Connected(1) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "the hub closes its clients on shutdown")
	assert.Zero(t, hub.Connected(1))
}
