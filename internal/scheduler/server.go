package scheduler

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/attendhub/pkg/middleware"
)

// Server はスケジューラサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// scheduler は定期処理の実行本体。
	scheduler *Scheduler
}

// NewServer は新しいスケジューラサーバーを生成する。
func NewServer(port string) (*Server, error) {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "dev-secret-key"
	}

	sched := newSchedulerFromEnv()
	token, err := middleware.GenerateJWT(jwtSecret, "scheduler-service", "scheduler@attendhub.local")
	if err != nil {
		log.Printf("[Scheduler] サービストークンの発行に失敗: %v", err)
	} else {
		sched.SetAuthToken(token)
	}

	s := &Server{
		router:    router,
		port:      port,
		scheduler: sched,
	}
	s.setupRoutes()

	return s, nil
}

// Run は定期実行ループをバックグラウンドで開始し、HTTPサーバーを起動する。
func (s *Server) Run() error {
	go s.scheduler.Start()
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "dev-secret-key"
	}

	api := s.router.Group("/api/v1")
	api.Use(middleware.JWTAuth(jwtSecret))
	{
		scheduler := api.Group("/scheduler")
		{
			// 実行履歴の取得
			scheduler.GET("/status", s.handleStatus())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "scheduler"})
	})
}

// handleStatus はスケジューラの実行履歴を返すハンドラ。
func (s *Server) handleStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.scheduler.CurrentStatus())
	}
}
