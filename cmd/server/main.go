// Package main runs the live quiz HTTP server with WebSocket gameplay and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quizlive/backend/config"
	"github.com/quizlive/backend/internal/auth"
	"github.com/quizlive/backend/internal/catalog"
	"github.com/quizlive/backend/internal/game"
	"github.com/quizlive/backend/internal/middleware"
	"github.com/quizlive/backend/internal/realtime"
	"github.com/quizlive/backend/internal/sessions"
	"github.com/quizlive/backend/pkg/database"
	"github.com/quizlive/backend/pkg/redis"
	"github.com/quizlive/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Session directory (in-memory; sessions live and die with the process)
	gameSettings := game.Settings{
		MaxPlayers:       cfg.Game.MaxPlayers,
		MinScoreFraction: cfg.Game.MinScoreFraction,
		NicknameMinLen:   cfg.Game.NicknameMinLen,
		NicknameMaxLen:   cfg.Game.NicknameMaxLen,
		CodeLength:       cfg.Game.AccessCodeLength,
		LobbyTimeout:     cfg.Game.LobbyTimeout,
		GameTimeout:      cfg.Game.GameTimeout,
		FinishedGrace:    cfg.Game.FinishedGrace,
	}
	dir := game.NewDirectory(gameSettings, time.Now)
	gateway := realtime.NewGateway(dir, hub, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Quiz catalog
	catalogRepo := catalog.NewRepository(pool)
	catalogHandler := catalog.NewHandler(catalogRepo, cfg.Game.DefaultTimeLimitSeconds, cfg.Game.DefaultBasePoints, logger)

	// Hosted sessions
	sessionHandler := sessions.NewHandler(catalogRepo, dir, hub, logger)

	jwtValidate := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Quizzes
		api.POST("/quizzes", catalogHandler.CreateQuiz)
		api.GET("/quizzes", catalogHandler.ListQuizzes)
		api.GET("/quizzes/:id", catalogHandler.GetQuiz)
		api.PATCH("/quizzes/:id", catalogHandler.UpdateQuiz)
		api.DELETE("/quizzes/:id", catalogHandler.DeleteQuiz)

		// Questions
		api.POST("/quizzes/:id/questions", catalogHandler.CreateQuestion)
		api.DELETE("/quizzes/:id/questions/:questionId", catalogHandler.DeleteQuestion)

		// Hosting
		api.POST("/quizzes/:id/host", sessionHandler.Host)
		api.GET("/sessions/:code", sessionHandler.Get)
		api.DELETE("/sessions/:code", sessionHandler.Cancel)
	}

	// WebSocket (code in query; host token in query, no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, gateway, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background sweep (reclaims abandoned and finished sessions)
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go runSweep(sweepCtx, dir, hub, cfg.Game.SweepInterval, logger)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sweepCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// runSweep periodically removes expired sessions and notifies any clients
// still attached to their rooms.
func runSweep(ctx context.Context, dir *game.Directory, hub *realtime.Hub, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed := dir.RemoveExpired(now)
			for _, code := range removed {
				hub.Broadcast(code, "game_cancelled", gin.H{"reason": "expired"})
			}
			if len(removed) > 0 {
				logger.Info("sweep removed sessions", zap.Int("count", len(removed)), zap.Strings("codes", removed))
			}
		}
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
