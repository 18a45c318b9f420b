package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/othello-rooms/internal/config"
	"github.com/rocketscienceinc/othello-rooms/internal/pkg"
	"github.com/rocketscienceinc/othello-rooms/internal/repository"
	"github.com/rocketscienceinc/othello-rooms/internal/repository/storage"
	"github.com/rocketscienceinc/othello-rooms/internal/service"
	"github.com/rocketscienceinc/othello-rooms/internal/transport/rest"
	"github.com/rocketscienceinc/othello-rooms/internal/transport/websocket"
	"github.com/rocketscienceinc/othello-rooms/internal/usecase"
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisStorage, err := storage.New(ctx, conf.Redis)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	random := pkg.NewRandom()

	roomRepo := repository.NewRoomRepository(redisStorage)
	eventRepo := repository.NewEventRepository(redisStorage)

	roomService := service.NewRoomService(logger, conf.Room, random,
		roomRepo, repository.NewCodeRepository(redisStorage), repository.NewQueueRepository(redisStorage))
	gameService := service.NewGameService(logger, random,
		roomRepo, repository.NewGameRepository(redisStorage), eventRepo)

	botScheduler := service.NewBotScheduler(logger, conf.Bot, gameService, repository.NewLockRepository(redisStorage))
	defer botScheduler.Shutdown()

	roomUseCase := usecase.NewRoomUseCase(logger, roomService, gameService, botScheduler)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(conf.HTTPPort, rest.NewHandlers(logger, roomUseCase)); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, roomUseCase, eventRepo)
		if wsErr := wsServer.Start(conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
