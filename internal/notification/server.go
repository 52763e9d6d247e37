package notification

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	notificationdb "github.com/nao1215/attendhub/internal/notification/db"
	"github.com/nao1215/attendhub/pkg/event"
	"github.com/nao1215/attendhub/pkg/httpclient"
	"github.com/nao1215/attendhub/pkg/middleware"
)

// 通知のステータス。pendingからsentまたはfailedへCASで遷移する。
const (
	statusPending = "pending"
	statusSent    = "sent"
	statusFailed  = "failed"
)

// validTypes は受け付ける通知タイプの一覧。
var validTypes = map[string]struct{}{
	"info":       {},
	"warning":    {},
	"error":      {},
	"success":    {},
	"attendance": {},
	"meeting":    {},
	"system":     {},
}

// Server は通知サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *notificationdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// eventStoreClient はEvent Storeサービスへの通信クライアント。
	eventStoreClient *httpclient.Client
	// channels は有効な配信チャネルの一覧。
	channels []Channel
	// enhancer はAIによる文面改善クライアント。無効の場合はnil。
	enhancer *enhancer
	// channelTimeout はチャネルごとの配信試行のタイムアウト。
	channelTimeout time.Duration
}

// NewServer は新しい通知サーバーを生成する。
// SQLiteデータベースの初期化とスキーマ作成を行う。
func NewServer(port string) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", "/data/notification.db?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	eventStoreURL := os.Getenv("EVENTSTORE_URL")
	if eventStoreURL == "" {
		eventStoreURL = "http://localhost:8084"
	}

	channelTimeout := 10 * time.Second
	if v := os.Getenv("NOTIFY_CHANNEL_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			channelTimeout = time.Duration(n) * time.Second
		}
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:           router,
		port:             port,
		queries:          notificationdb.New(sqlDB),
		db:               sqlDB,
		eventStoreClient: httpclient.New(eventStoreURL),
		channels:         channelsFromEnv(),
		enhancer:         newEnhancerFromEnv(),
		channelTimeout:   channelTimeout,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
// ダッシュボードからのブラウザアクセスを許可するため、CORSを全ルートに適用する。
func (s *Server) setupRoutes() {
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	s.router.Use(middleware.CORS([]string{frontendURL}))

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "dev-secret-key"
	}

	api := s.router.Group("/api/v1")
	api.Use(middleware.JWTAuth(jwtSecret))
	{
		notifications := api.Group("/notifications")
		{
			// 通知のキュー登録
			notifications.POST("", s.handleEnqueue())
			// 通知履歴の一覧取得
			notifications.GET("", s.handleList())
			// 期日到来済み通知の一括配信
			notifications.POST("/drain", s.handleDrain())
			// 通知タイプ別の最適送信時刻の提案
			notifications.GET("/suggest-time", s.handleSuggestTime())
			// 古い通知の削除
			notifications.DELETE("/cleanup", s.handleCleanup())
			// 単一通知の配信
			notifications.POST("/:id/send", s.handleSendOne())
			// 失敗通知の再キュー
			notifications.POST("/:id/reset", s.handleReset())
		}

		analytics := api.Group("/analytics")
		{
			// 配信状況の分析
			analytics.GET("/summary", s.handleAnalyticsSummary())
		}

		// 内部API（出席サービスおよびスケジューラから呼び出される）
		internal := api.Group("/internal")
		{
			internal.POST("/send", s.handleEnqueue())
			internal.GET("/selftest", s.handleSelfTest())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notification"})
	})
}

// enqueueRequest は通知のキュー登録リクエストのJSON構造。
type enqueueRequest struct {
	// Title は通知のタイトル。
	Title string `json:"title" binding:"required"`
	// Message は通知メッセージ。
	Message string `json:"message" binding:"required"`
	// NotificationType は通知のタイプ。未指定の場合は"info"。
	NotificationType string `json:"notification_type"`
	// Priority は通知の優先度（1〜5）。未指定の場合は1。
	// 0は範囲外の値として拒否するため、省略との区別にポインタを使う。
	Priority *int64 `json:"priority"`
	// ScheduledFor は配信予定時刻（RFC3339形式）。未指定の場合は即時配信対象。
	ScheduledFor string `json:"scheduled_for"`
	// AIEnhanced はAIによる文面改善を行うかどうか。
	AIEnhanced bool `json:"ai_enhanced"`
}

// notificationResponse は通知のJSONレスポンス構造。
type notificationResponse struct {
	// ID は通知の一意識別子。
	ID string `json:"id"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Message は通知メッセージ。
	Message string `json:"message"`
	// NotificationType は通知のタイプ。
	NotificationType string `json:"notification_type"`
	// Priority は通知の優先度。
	Priority int64 `json:"priority"`
	// Status は通知のステータス（pending/sent/failed）。
	Status string `json:"status"`
	// CreatedAt は通知の作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
	// ScheduledFor は配信予定時刻（RFC3339形式）。未スケジュールの場合は空。
	ScheduledFor string `json:"scheduled_for,omitempty"`
	// SentAt は配信完了時刻（RFC3339形式）。未配信の場合は空。
	SentAt string `json:"sent_at,omitempty"`
	// SentimentScore は文面の感情スコア。AI改善時のみ設定される。
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
	// AIEnhanced はAIによる文面改善が行われたかどうか。
	AIEnhanced bool `json:"ai_enhanced"`
}

// toNotificationResponse はDB行をJSONレスポンスに変換する。
func toNotificationResponse(n notificationdb.Notification) notificationResponse {
	resp := notificationResponse{
		ID:               n.ID,
		Title:            n.Title,
		Message:          n.Message,
		NotificationType: n.NotificationType,
		Priority:         n.Priority,
		Status:           n.Status,
		CreatedAt:        n.CreatedAt.Format(time.RFC3339),
		AIEnhanced:       n.AiEnhanced != 0,
	}
	if n.ScheduledFor.Valid {
		resp.ScheduledFor = n.ScheduledFor.Time.Format(time.RFC3339)
	}
	if n.SentAt.Valid {
		resp.SentAt = n.SentAt.Time.Format(time.RFC3339)
	}
	if n.SentimentScore.Valid {
		score := n.SentimentScore.Float64
		resp.SentimentScore = &score
	}
	return resp
}

// toNotificationResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toNotificationResponses(notifications []notificationdb.Notification) []notificationResponse {
	responses := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, toNotificationResponse(n))
	}
	return responses
}

// handleEnqueue は通知をキューに登録するハンドラ。
// タイプ・優先度・スケジュールを検証し、AI改善が指定されていれば
// 文面を改善してから登録する。改善に失敗しても元の文面で登録する。
func (s *Server) handleEnqueue() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req enqueueRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		if req.NotificationType == "" {
			req.NotificationType = "info"
		}
		if _, ok := validTypes[req.NotificationType]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不正な通知タイプです: %s", req.NotificationType)})
			return
		}

		priority := int64(1)
		if req.Priority != nil {
			priority = *req.Priority
		}
		if priority < 1 || priority > 5 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "優先度は1〜5で指定してください"})
			return
		}

		var scheduledFor sql.NullTime
		if req.ScheduledFor != "" {
			t, err := time.Parse(time.RFC3339, req.ScheduledFor)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_forはRFC3339形式で指定してください"})
				return
			}
			if t.Before(time.Now()) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_forに過去の時刻は指定できません"})
				return
			}
			scheduledFor = sql.NullTime{Time: t.UTC(), Valid: true}
		}

		message := req.Message
		var sentimentScore sql.NullFloat64
		aiEnhanced := int64(0)
		if req.AIEnhanced && s.enhancer != nil {
			enhanced, score, err := s.enhancer.Enhance(c.Request.Context(), message)
			if err != nil {
				// 文面改善の失敗は配信を妨げない。元の文面のまま登録する
				log.Printf("[Notification] 文面改善に失敗: %v", err)
			} else {
				message = enhanced
				sentimentScore = sql.NullFloat64{Float64: score, Valid: true}
				aiEnhanced = 1
			}
		}

		notificationID := uuid.New().String()
		if err := s.queries.CreateNotification(c.Request.Context(), notificationdb.CreateNotificationParams{
			ID:               notificationID,
			Title:            req.Title,
			Message:          message,
			NotificationType: req.NotificationType,
			Priority:         priority,
			CreatedAt:        time.Now().UTC(),
			ScheduledFor:     scheduledFor,
			SentimentScore:   sentimentScore,
			AiEnhanced:       aiEnhanced,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の登録に失敗しました"})
			log.Printf("[Notification] 通知登録エラー: %v", err)
			return
		}

		s.emitEvent(c.Request.Context(), notificationID, event.TypeNotificationQueued, event.NotificationQueuedData{
			Title:            req.Title,
			NotificationType: req.NotificationType,
			Priority:         priority,
		})

		c.JSON(http.StatusCreated, gin.H{
			"id":          notificationID,
			"status":      statusPending,
			"ai_enhanced": aiEnhanced != 0,
		})
	}
}

// handleList は通知履歴の一覧を返すハンドラ。
// status・typeによる絞り込みとlimitによる件数制限をサポートする。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := c.Query("status")
		if status != "" && status != statusPending && status != statusSent && status != statusFailed {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不正なステータスです: %s", status)})
			return
		}

		notificationType := c.Query("type")
		if notificationType != "" {
			if _, ok := validTypes[notificationType]; !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不正な通知タイプです: %s", notificationType)})
				return
			}
		}

		limit := int64(50)
		if v := c.Query("limit"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limitは1以上の整数で指定してください"})
				return
			}
			limit = n
		}

		notifications, err := s.queries.ListNotifications(c.Request.Context(), notificationdb.ListNotificationsParams{
			Status:           status,
			NotificationType: notificationType,
			Limit:            limit,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知一覧の取得に失敗しました"})
			log.Printf("[Notification] 通知一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(notifications))
	}
}

// handleSendOne は単一通知の配信ハンドラ。
// 通知が存在しない、またはpendingでない場合もエラーとせずsent:falseを返す。
func (s *Server) handleSendOne() gin.HandlerFunc {
	return func(c *gin.Context) {
		sent, err := s.sendOne(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の配信に失敗しました"})
			log.Printf("[Notification] 通知配信エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"sent": sent})
	}
}

// handleDrain は期日到来済み通知の一括配信ハンドラ。
func (s *Server) handleDrain() gin.HandlerFunc {
	return func(c *gin.Context) {
		sentCount, err := s.drainDue(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "一括配信に失敗しました"})
			log.Printf("[Notification] 一括配信エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"sent_count": sentCount})
	}
}

// handleReset は失敗通知をpendingに戻すハンドラ。
func (s *Server) handleReset() gin.HandlerFunc {
	return func(c *gin.Context) {
		reset, err := s.reset(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ステータスのリセットに失敗しました"})
			log.Printf("[Notification] リセットエラー: %v", err)
			return
		}
		if !reset {
			c.JSON(http.StatusNotFound, gin.H{"error": "リセット対象の失敗通知が見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": statusPending})
	}
}

// handleCleanup は古い通知を削除するハンドラ。
// クエリパラメータ days（デフォルト30）より古い通知をステータスに関わらず削除する。
func (s *Server) handleCleanup() gin.HandlerFunc {
	return func(c *gin.Context) {
		days := 30
		if v := c.Query("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "daysは1以上の整数で指定してください"})
				return
			}
			days = n
		}

		removed, err := s.cleanup(c.Request.Context(), days)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "古い通知の削除に失敗しました"})
			log.Printf("[Notification] 削除エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"removed_count": removed})
	}
}

// handleSelfTest はキューの基本動作を検証する内部APIハンドラ。
func (s *Server) handleSelfTest() gin.HandlerFunc {
	return func(c *gin.Context) {
		results := s.selfTest(c.Request.Context())

		allOK := true
		for _, ok := range results {
			if !ok {
				allOK = false
				break
			}
		}

		status := http.StatusOK
		if !allOK {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"ok": allOK, "results": results})
	}
}

// handleAnalyticsSummary は配信状況の分析結果を返すハンドラ。
// クエリパラメータ days（デフォルト7）で集計期間を指定する。
func (s *Server) handleAnalyticsSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		days := 7
		if v := c.Query("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "daysは1以上の整数で指定してください"})
				return
			}
			days = n
		}

		since := time.Now().UTC().AddDate(0, 0, -days)
		notifications, err := s.queries.ListNotificationsSince(c.Request.Context(), since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "分析データの取得に失敗しました"})
			log.Printf("[Notification] 分析データ取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, computeAnalytics(notifications))
	}
}

// handleSuggestTime は通知タイプに応じた最適送信時刻を提案するハンドラ。
func (s *Server) handleSuggestTime() gin.HandlerFunc {
	return func(c *gin.Context) {
		notificationType := c.Query("type")
		if notificationType == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "typeパラメータが必要です"})
			return
		}
		if _, ok := validTypes[notificationType]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("不正な通知タイプです: %s", notificationType)})
			return
		}

		optimal := suggestOptimalTime(notificationType, time.Now().UTC())
		c.JSON(http.StatusOK, gin.H{
			"notification_type": notificationType,
			"suggested_time":    optimal.Format(time.RFC3339),
		})
	}
}
