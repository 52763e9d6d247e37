package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	attendancedb "github.com/nao1215/attendhub/internal/attendance/db"
	"github.com/nao1215/attendhub/pkg/event"
	"github.com/nao1215/attendhub/pkg/httpclient"
	"github.com/nao1215/attendhub/pkg/middleware"
)

// maxPhotoSizeBytes はアップロードされる写真の最大サイズ。
const maxPhotoSizeBytes = 10 << 20

// Server は出席管理サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *attendancedb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// engine は顔認識エンジン。
	engine *Engine
	// camera はネットワークカメラクライアント。未設定の場合はnil。
	camera *cameraClient
	// notifier は通知サービスへのキュー登録クライアント。
	notifier *notifier
	// eventStoreClient はEvent Storeサービスへの通信クライアント。
	eventStoreClient *httpclient.Client
}

// NewServer は新しい出席管理サーバーを生成する。
// SQLiteデータベースのマイグレーションと顔認識モデルの読み込みを行う。
func NewServer(port string) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", "/data/attendance.db?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	modelsDir := os.Getenv("FACE_MODELS_DIR")
	if modelsDir == "" {
		modelsDir = "/models"
	}
	encoder, err := NewDlibEncoder(modelsDir)
	if err != nil {
		return nil, err
	}

	tolerance := 0.6
	if v := os.Getenv("FACE_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			tolerance = f
		}
	}

	eventStoreURL := os.Getenv("EVENTSTORE_URL")
	if eventStoreURL == "" {
		eventStoreURL = "http://localhost:8084"
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:           router,
		port:             port,
		queries:          attendancedb.New(sqlDB),
		db:               sqlDB,
		engine:           NewEngine(sqlDB, encoder, tolerance),
		camera:           newCameraFromEnv(),
		notifier:         newNotifierFromEnv(),
		eventStoreClient: httpclient.New(eventStoreURL),
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
		// 人物の登録
		api.POST("/identities", s.handleRegisterIdentity())

		attendance := api.Group("/attendance")
		{
			// 写真による出席照合
			attendance.POST("/match", s.handleMatch())
			// 出席サマリーの取得
			attendance.GET("/summary", s.handleSummary())
		}

		camera := api.Group("/camera")
		{
			// カメラからのフレーム取得
			camera.GET("/frame", s.handleCameraFrame())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "attendance"})
	})
}

// readPhoto はマルチパートフォームから写真データを読み込む。
func readPhoto(c *gin.Context) ([]byte, error) {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return nil, fmt.Errorf("photoフィールドが必要です: %w", err)
	}
	if fileHeader.Size > maxPhotoSizeBytes {
		return nil, fmt.Errorf("写真のサイズが上限を超えています")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("写真の読み込みに失敗: %w", err)
	}
	defer file.Close()

	return io.ReadAll(file)
}

// handleRegisterIdentity は人物登録ハンドラ。
// マルチパートフォームでname（表示名）とphoto（顔写真）を受け取る。
func (s *Server) handleRegisterIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.PostForm("name")
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "name_required",
				"error":      "nameフィールドが必要です",
			})
			return
		}

		photo, err := readPhoto(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "photo_required",
				"error":      err.Error(),
			})
			return
		}

		// 通知・イベント送信時に操作ユーザーのIDをX-User-IDヘッダーで伝播する
		ctx := httpclient.WithUserID(c.Request.Context(), middleware.GetUserID(c))

		result, err := s.engine.Register(ctx, name, photo)
		if err != nil {
			switch {
			case errors.Is(err, ErrImageDecode):
				c.JSON(http.StatusBadRequest, gin.H{
					"error_code": "image_decode_failed",
					"error":      err.Error(),
				})
			case errors.Is(err, ErrNoFaceDetected):
				c.JSON(http.StatusBadRequest, gin.H{
					"error_code": "no_face_detected",
					"error":      err.Error(),
				})
			case errors.Is(err, ErrMultipleFacesDetected):
				c.JSON(http.StatusBadRequest, gin.H{
					"error_code": "multiple_faces_detected",
					"error":      err.Error(),
				})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "人物の登録に失敗しました"})
				log.Printf("[Attendance] 人物登録エラー: %v", err)
			}
			return
		}

		s.emitEvent(ctx, "identity-"+result.IdentityID, event.TypeIdentityRegistered, event.IdentityRegisteredData{
			DisplayName:    result.Name,
			EmbeddingCount: int(result.EmbeddingCount),
		})
		s.notifier.notifyRegistered(ctx, result.Name)

		c.JSON(http.StatusCreated, result)
	}
}

// handleMatch は出席照合ハンドラ。
// 検証失敗（顔なし・デコード不能）はHTTP 200のsuccess=falseで返す。
func (s *Server) handleMatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		photo, err := readPhoto(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "photo_required",
				"error":      err.Error(),
			})
			return
		}

		// 通知・イベント送信時に操作ユーザーのIDをX-User-IDヘッダーで伝播する
		ctx := httpclient.WithUserID(c.Request.Context(), middleware.GetUserID(c))

		result, err := s.engine.Match(ctx, photo)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "出席照合に失敗しました"})
			log.Printf("[Attendance] 出席照合エラー: %v", err)
			return
		}

		if result.Success {
			recognized := make([]event.RecognizedFace, 0, len(result.Recognized))
			for _, person := range result.Recognized {
				recognized = append(recognized, event.RecognizedFace{
					IdentityID:  person.IdentityID,
					DisplayName: person.Name,
					Confidence:  person.Confidence,
				})
			}
			s.emitEvent(ctx, "attendance-match", event.TypeAttendanceMarked, event.AttendanceMarkedData{
				Recognized:   recognized,
				UnknownCount: result.UnknownCount,
			})
			s.notifier.notifyMatch(ctx, result)
		}

		c.JSON(http.StatusOK, result)
	}
}

// attendanceRecordResponse は出席記録のJSONレスポンス構造。
type attendanceRecordResponse struct {
	// PersonName は出席者の表示名。
	PersonName string `json:"person_name"`
	// Confidence は認識の信頼度。
	Confidence float64 `json:"confidence"`
	// RecordedAt は記録日時（RFC3339形式）。
	RecordedAt string `json:"recorded_at"`
}

// handleSummary は出席サマリーを返すハンドラ。
// クエリパラメータ days（デフォルト7）で集計期間を指定する。
func (s *Server) handleSummary() gin.HandlerFunc {
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

		ctx := c.Request.Context()
		now := time.Now().UTC()
		since := now.AddDate(0, 0, -days)
		todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

		total, err := s.queries.CountAttendanceSince(ctx, since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "出席数の集計に失敗しました"})
			log.Printf("[Attendance] サマリー集計エラー: %v", err)
			return
		}

		unique, err := s.queries.CountUniqueAttendeesSince(ctx, since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "出席者数の集計に失敗しました"})
			log.Printf("[Attendance] サマリー集計エラー: %v", err)
			return
		}

		todayRecords, err := s.queries.ListAttendanceRecordsSince(ctx, todayStart)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "本日の出席記録の取得に失敗しました"})
			log.Printf("[Attendance] サマリー集計エラー: %v", err)
			return
		}

		identities, err := s.queries.ListIdentities(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "登録人物の取得に失敗しました"})
			log.Printf("[Attendance] サマリー集計エラー: %v", err)
			return
		}

		peopleList := make([]string, 0, len(identities))
		for _, identity := range identities {
			peopleList = append(peopleList, identity.DisplayName)
		}

		records := make([]attendanceRecordResponse, 0, len(todayRecords))
		for _, r := range todayRecords {
			records = append(records, attendanceRecordResponse{
				PersonName: r.PersonName,
				Confidence: r.Confidence,
				RecordedAt: r.RecordedAt.Format(time.RFC3339),
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"stats": gin.H{
				"total_attendance": total,
				"unique_people":    unique,
				"today_attendance": len(todayRecords),
			},
			"registered_people": len(identities),
			"people_list":       peopleList,
			"today_records":     records,
		})
	}
}

// handleCameraFrame はカメラから1枚のJPEGフレームを取得して返すハンドラ。
// カメラが未設定または取得に失敗した場合は503を返す。
func (s *Server) handleCameraFrame() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.camera == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":     "カメラが設定されていません",
				"retryable": false,
			})
			return
		}

		frame, err := s.camera.Frame(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":     "カメラからのフレーム取得に失敗しました",
				"retryable": true,
			})
			log.Printf("[Attendance] カメラエラー: %v", err)
			return
		}

		c.Data(http.StatusOK, "image/jpeg", frame)
	}
}

// emitEvent はEvent Storeにイベントを送信する。
// イベント送信に失敗してもログに記録し、処理自体は成功として扱う。
func (s *Server) emitEvent(ctx context.Context, aggregateID string, eventType event.Type, data any) {
	aggregateType := event.AggregateTypeAttendance
	if eventType == event.TypeIdentityRegistered {
		aggregateType = event.AggregateTypeIdentity
	}

	e, err := event.New(aggregateID, aggregateType, eventType, 0, data)
	if err != nil {
		log.Printf("[Attendance] イベントの生成に失敗: %v", err)
		return
	}

	body := map[string]any{
		"aggregate_id":   e.AggregateID,
		"aggregate_type": string(e.AggregateType),
		"event_type":     string(e.EventType),
		"data":           e.Data,
	}

	var resp map[string]any
	if err := s.eventStoreClient.PostJSON(ctx, "/api/v1/events", body, &resp); err != nil {
		log.Printf("[Attendance] %sイベントの送信に失敗: %v", eventType, err)
	}
}
