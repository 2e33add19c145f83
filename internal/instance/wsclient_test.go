// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package instance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/caretaker/internal/errors"
	"grimm.is/caretaker/internal/logging"
)

// wsTestServer runs a websocket endpoint driven by handle, which gets
// every received frame and may write responses on the same connection.
func wsTestServer(t *testing.T, handle func(conn *websocket.Conn, msg map[string]any)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			handle(conn, msg)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSChannel_CommandRoundTrip(t *testing.T) {
	url := wsTestServer(t, func(conn *websocket.Conn, msg map[string]any) {
		conn.WriteJSON(map[string]any{
			"id":      msg["id"],
			"type":    "result",
			"success": true,
			"result":  map[string]any{"components": []any{"usb"}},
		})
	})

	ch := NewWSChannel(url, time.Second, logging.Default())
	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Close()

	resp, err := ch.SendCommand(context.Background(), NewCommand(CmdGetConfig))
	require.NoError(t, err)
	assert.True(t, hasComponent(resp, "usb"))
}

func TestWSChannel_RejectedCommand(t *testing.T) {
	url := wsTestServer(t, func(conn *websocket.Conn, msg map[string]any) {
		conn.WriteJSON(map[string]any{
			"id":      msg["id"],
			"type":    "result",
			"success": false,
		})
	})

	ch := NewWSChannel(url, time.Second, logging.Default())
	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Close()

	_, err := ch.SendCommand(context.Background(), NewCommand(CmdBackupStart))
	assert.Error(t, err)
}

func TestWSChannel_Timeout(t *testing.T) {
	url := wsTestServer(t, func(conn *websocket.Conn, msg map[string]any) {
		// Never answer.
	})

	ch := NewWSChannel(url, 50*time.Millisecond, logging.Default())
	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Close()

	_, err := ch.SendCommand(context.Background(), NewCommand(CmdBackupStart))
	require.Error(t, err)
	assert.Equal(t, errors.KindChannelTimeout, errors.GetKind(err))
}

func TestWSChannel_UnavailableBeforeConnect(t *testing.T) {
	ch := NewWSChannel("ws://127.0.0.1:1/api/websocket", time.Second, logging.Default())

	_, err := ch.SendCommand(context.Background(), NewCommand(CmdGetConfig))
	assert.Equal(t, errors.KindChannelUnavailable, errors.GetKind(err))

	err = ch.SendMessage(NewCommand(CmdUSBScan))
	assert.Equal(t, errors.KindChannelUnavailable, errors.GetKind(err))
}

func TestWSChannel_FireAndForget(t *testing.T) {
	received := make(chan map[string]any, 1)
	url := wsTestServer(t, func(conn *websocket.Conn, msg map[string]any) {
		received <- msg
	})

	ch := NewWSChannel(url, time.Second, logging.Default())
	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Close()

	require.NoError(t, ch.SendMessage(NewCommand(CmdUSBScan)))

	select {
	case msg := <-received:
		assert.Equal(t, CmdUSBScan, msg["type"])
		_, hasID := msg["id"]
		assert.False(t, hasID, "fire-and-forget messages carry no id")
	case <-time.After(2 * time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestWSChannel_ConnectionLossFailsWaiters(t *testing.T) {
	url := wsTestServer(t, func(conn *websocket.Conn, msg map[string]any) {
		conn.Close()
	})

	ch := NewWSChannel(url, 2*time.Second, logging.Default())
	require.NoError(t, ch.Connect(context.Background()))
	defer ch.Close()

	_, err := ch.SendCommand(context.Background(), NewCommand(CmdGetConfig))
	require.Error(t, err)
	assert.Equal(t, errors.KindChannelUnavailable, errors.GetKind(err))
}
