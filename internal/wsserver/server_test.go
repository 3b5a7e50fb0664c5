package wsserver

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestSubscribeAndGroupTargetedSend(t *testing.T) {
	srv := New(nil)
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()
	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")

	a := dial(t, wsURL)
	defer a.Close()
	b := dial(t, wsURL)
	defer b.Close()

	require.NoError(t, a.WriteJSON(map[string]any{"type": "subscribe", "groups": []string{"orders"}}))
	require.NoError(t, b.WriteJSON(map[string]any{"type": "subscribe", "groups": []string{"payments"}}))

	waitForConnections(t, srv, 2)

	srv.Send([]byte("hello orders"), []string{"orders"})

	a.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := a.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)
	assert.Equal(t, "hello orders", string(data))

	b.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err = b.ReadMessage()
	assert.Error(t, err, "peer not subscribed to the target group should not receive the message")
}

func TestSendWithNoGroupsBroadcastsToAll(t *testing.T) {
	srv := New(nil)
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()
	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")

	a := dial(t, wsURL)
	defer a.Close()
	waitForConnections(t, srv, 1)

	srv.Send([]byte("broadcast"), nil)

	a.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := a.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "broadcast", string(data))
}

func waitForConnections(t *testing.T, srv *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if srv.ConnectionCount() >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d connections", n)
}
