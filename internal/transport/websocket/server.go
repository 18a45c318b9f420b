package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/othello-rooms/internal/apperror"
	"github.com/rocketscienceinc/othello-rooms/internal/entity"
)

const sessionCookie = "user_session"

type roleChecker interface {
	RoleOf(ctx context.Context, roomID, token string) (entity.Role, error)
}

type subscriber interface {
	Subscribe(ctx context.Context, roomID string) *redis.PubSub
}

// Server relays room events to connected members.
type Server struct {
	logger *slog.Logger

	rooms  roleChecker
	events subscriber

	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, rooms roleChecker, events subscriber) *Server {
	return &Server{
		logger: logger.With("component", "websocket"),

		rooms:  rooms,
		events: events,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

func (that *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ws/rooms/:id", that.relay)

	return router
}

// Start - starts WebSocket server.
func (that *Server) Start(port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) relay(ctx *gin.Context) {
	roomID := ctx.Param("id")
	log := that.logger.With("method", "relay", "room", roomID)

	token := ctx.Query("token")
	if token == "" {
		token, _ = ctx.Cookie(sessionCookie)
	}

	role, err := that.rooms.RoleOf(ctx.Request.Context(), roomID, token)
	switch {
	case errors.Is(err, apperror.ErrRoomNotFound):
		ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
		return
	case err != nil:
		log.Error("failed to get role", "error", err)
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	case role == entity.RoleNone:
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not_a_member"})
		return
	}

	relayCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// subscribed before the upgrade, so nothing published after the handshake is missed
	sub := that.events.Subscribe(relayCtx, roomID)
	defer sub.Close()

	if _, err = sub.Receive(relayCtx); err != nil {
		log.Error("failed to subscribe to room events", "error", err)
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	socket, err := that.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	conn := newConnection(socket)
	log.Debug("relay connected", "role", role)

	reason := that.forward(conn, sub.Channel())
	conn.close(reason)

	log.Debug("relay closed", "reason", reason)
}

// forward writes every room event to conn until the room is destroyed or the peer leaves.
func (that *Server) forward(conn *connection, messages <-chan *redis.Message) string {
	done := make(chan struct{})
	go conn.drain(done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return "client gone"
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return "ping failed"
			}
		case message, ok := <-messages:
			if !ok {
				return "subscription closed"
			}

			if err := conn.write([]byte(message.Payload)); err != nil {
				return "write failed"
			}

			if eventName(message.Payload) == entity.EventRoomDestroyed {
				return entity.EventRoomDestroyed
			}
		}
	}
}

func eventName(payload string) string {
	var envelope struct {
		Name string `json:"event"`
	}

	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return ""
	}

	return envelope.Name
}
