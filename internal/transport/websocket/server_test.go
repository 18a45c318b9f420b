package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"

	"github.com/rocketscienceinc/othello-rooms/internal/apperror"
	"github.com/rocketscienceinc/othello-rooms/internal/entity"
	"github.com/rocketscienceinc/othello-rooms/internal/repository"
	"github.com/rocketscienceinc/othello-rooms/testing/suite"
)

// fixedRoles grants roles by token in a single room.
type fixedRoles map[string]entity.Role

func (that fixedRoles) RoleOf(_ context.Context, roomID, token string) (entity.Role, error) {
	if roomID != "r1" {
		return entity.RoleNone, apperror.ErrRoomNotFound
	}

	return that[token], nil
}

func startRelay(t *testing.T) (context.Context, *suite.Suite, repository.EventRepository, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, st := suite.NewInMemory(t)
	events := repository.NewEventRepository(st.Storage)

	// relays outlive the test handler, so they log nowhere
	logger := slog.New(zapslog.NewHandler(zap.NewNop().Core()))
	server := New(logger, fixedRoles{"alice": entity.RolePlayer, "sam": entity.RoleSpectator}, events)

	httpServer := httptest.NewServer(server.Router())
	t.Cleanup(httpServer.Close)

	return ctx, st, events, "ws" + strings.TrimPrefix(httpServer.URL, "http")
}

func dial(t *testing.T, url string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	conn, response, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		t.Cleanup(func() {
			_ = conn.Close()
		})
	}

	if response != nil {
		_ = response.Body.Close()
	}

	return conn, response, err
}

func TestServer_Relay(t *testing.T) {
	t.Run("Members receive room events until the room is destroyed", func(t *testing.T) {
		// Given: a spectator connected to the room relay
		ctx, _, events, url := startRelay(t)

		conn, _, err := dial(t, url+"/ws/rooms/r1?token=sam")
		require.NoError(t, err)

		// When: a game state and then the destruction are published
		require.NoError(t, events.Publish(ctx, "r1", entity.Event{Name: entity.EventGameState, Payload: map[string]int{"passes": 1}}))
		require.NoError(t, events.Publish(ctx, "r1", entity.NewRoomDestroyedEvent("r1")))

		// Then: both arrive as text frames and the socket is closed afterwards
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, kind)
		assert.JSONEq(t, `{"event":"game.state","payload":{"passes":1}}`, string(data))

		_, data, err = conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"room.destroyed","payload":{"room_id":"r1"}}`, string(data))

		_, _, err = conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	})

	t.Run("Strangers are refused before the upgrade", func(t *testing.T) {
		_, _, _, url := startRelay(t)

		_, response, err := dial(t, url+"/ws/rooms/r1?token=mallory")

		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		assert.Equal(t, http.StatusForbidden, response.StatusCode)
	})

	t.Run("Unknown room", func(t *testing.T) {
		_, _, _, url := startRelay(t)

		_, response, err := dial(t, url+"/ws/rooms/nope?token=alice")

		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		assert.Equal(t, http.StatusNotFound, response.StatusCode)
	})

	t.Run("Subscription ends when the client leaves", func(t *testing.T) {
		ctx, st, _, url := startRelay(t)

		conn, _, err := dial(t, url+"/ws/rooms/r1?token=alice")
		require.NoError(t, err)

		subscribers, err := st.Storage.PubSubNumSub(ctx, "room:r1:events").Result()
		require.NoError(t, err)
		require.Equal(t, int64(1), subscribers["room:r1:events"])

		require.NoError(t, conn.Close())

		require.Eventually(t, func() bool {
			subscribers, err := st.Storage.PubSubNumSub(ctx, "room:r1:events").Result()
			return err == nil && subscribers["room:r1:events"] == 0
		}, 2*time.Second, 10*time.Millisecond)
	})
}
