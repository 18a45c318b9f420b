package rest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func NewRouter(handlers *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ping", handlers.Ping)

	api := router.Group("/", handlers.session)
	api.POST("/rooms", handlers.CreateInviteRoom)
	api.POST("/rooms/bot", handlers.CreateBotRoom)
	api.POST("/rooms/match", handlers.FindMatch)
	api.GET("/codes/:code", handlers.ResolveCode)
	api.POST("/rooms/:id/join", handlers.Join)
	api.GET("/rooms/:id/game", handlers.GetGame)
	api.POST("/rooms/:id/move", handlers.MakeMove)
	api.POST("/rooms/:id/pass", handlers.Pass)
	api.DELETE("/rooms/:id", handlers.Destroy)

	return router
}

func Start(port string, handlers *Handlers) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(handlers),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
