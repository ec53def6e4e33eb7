package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/yuzuhara/tomosanpo/internal/chat"
	"github.com/yuzuhara/tomosanpo/internal/database"
	"github.com/yuzuhara/tomosanpo/internal/handlers"
	"github.com/yuzuhara/tomosanpo/internal/matching"
	"github.com/yuzuhara/tomosanpo/internal/notifications"
	"github.com/yuzuhara/tomosanpo/internal/ws"
	"github.com/yuzuhara/tomosanpo/pkg/auth"
)

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Hub        *ws.Hub
}

func NewServer() *Server {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(); err != nil {
		log.Fatalf("Postgres connect failed: %v", err)
	}

	redisOpts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Redis connect failed: %v", err)
	}

	jwtMgr := auth.NewJWTManager(
		os.Getenv("JWT_SECRET"),
		24*time.Hour,
	)

	hub := ws.NewHub()

	notifier := notifications.NewDispatcher(dbConn, hub)
	matchingSvc := matching.NewService(dbConn, notifier, hub)
	chatSvc := chat.NewService(dbConn, rdb, hub)

	authH := handlers.NewAuthHandler(dbConn, jwtMgr, rdb)
	requestH := handlers.NewRequestHandler(dbConn, matchingSvc)
	chatH := handlers.NewChatHandler(chatSvc)
	notificationH := handlers.NewNotificationHandler(notifier)
	userH := handlers.NewUserHandler(dbConn, hub)
	wsH := handlers.NewWebSocketHandler(hub)

	router := gin.Default()
	APIEndpoints(router, jwtMgr, rdb, authH, requestH, chatH, notificationH, userH, wsH)

	return &Server{
		Router:     router,
		DB:         dbConn,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Hub:        hub,
	}
}

// Run запускает hub и HTTP сервер; завершение по ctx останавливает
// обоих.
func (s *Server) Run(ctx context.Context) error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.Router,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Hub.Run()
		return nil
	})

	g.Go(func() error {
		log.Printf("Server starting on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		// Сначала дожидаемся HTTP: хендлеры публикуют в hub, пока он
		// не остановлен.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		s.Hub.Stop()
		return err
	})

	return g.Wait()
}
