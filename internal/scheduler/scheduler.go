package scheduler

import (
	"context"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/nao1215/attendhub/pkg/httpclient"
)

// Scheduler は通知サービスの定期処理を駆動する。
// ドレインとクリーンアップをそれぞれ独立したティッカーで実行する。
type Scheduler struct {
	// notificationClient は通知サービスへのHTTPクライアント。
	notificationClient *httpclient.Client
	// drainInterval はドレイン実行の間隔。
	drainInterval time.Duration
	// cleanupInterval はクリーンアップ実行の間隔。
	cleanupInterval time.Duration
	// retentionDays はクリーンアップ時に残す通知の日数。
	retentionDays int

	// mu は実行履歴の排他制御。
	mu sync.Mutex
	// lastDrainAt は最後にドレインが成功した日時。
	lastDrainAt time.Time
	// lastDrainCount は最後のドレインで配信された通知数。
	lastDrainCount int64
	// lastCleanupAt は最後にクリーンアップが成功した日時。
	lastCleanupAt time.Time
	// lastCleanupCount は最後のクリーンアップで削除された通知数。
	lastCleanupCount int64
}

// NewScheduler は新しいスケジューラを生成する。
func NewScheduler(notificationClient *httpclient.Client, drainInterval, cleanupInterval time.Duration, retentionDays int) *Scheduler {
	return &Scheduler{
		notificationClient: notificationClient,
		drainInterval:      drainInterval,
		cleanupInterval:    cleanupInterval,
		retentionDays:      retentionDays,
	}
}

// newSchedulerFromEnv は環境変数からスケジューラを構築する。
//   - NOTIFICATION_URL: 通知サービスのURL（デフォルト http://localhost:8083）
//   - DRAIN_INTERVAL_SECONDS: ドレイン間隔秒数（デフォルト30）
//   - CLEANUP_INTERVAL_HOURS: クリーンアップ間隔時間（デフォルト24）
//   - RETENTION_DAYS: 通知の保持日数（デフォルト30）
func newSchedulerFromEnv() *Scheduler {
	url := os.Getenv("NOTIFICATION_URL")
	if url == "" {
		url = "http://localhost:8083"
	}
	client := httpclient.New(url)

	drainInterval := 30 * time.Second
	if v := os.Getenv("DRAIN_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			drainInterval = time.Duration(n) * time.Second
		}
	}

	cleanupInterval := 24 * time.Hour
	if v := os.Getenv("CLEANUP_INTERVAL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cleanupInterval = time.Duration(n) * time.Hour
		}
	}

	retentionDays := 30
	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			retentionDays = n
		}
	}

	return NewScheduler(client, drainInterval, cleanupInterval, retentionDays)
}

// SetAuthToken は通知サービスへのリクエストに付与するトークンを設定する。
func (s *Scheduler) SetAuthToken(token string) {
	s.notificationClient.SetAuthToken(token)
}

// Start は定期実行ループを開始する。
// バックグラウンドgoroutineとして呼び出されることを想定している。
func (s *Scheduler) Start() {
	log.Printf("[Scheduler] スケジューラを開始します。ドレイン間隔: %s, クリーンアップ間隔: %s, 保持日数: %d",
		s.drainInterval, s.cleanupInterval, s.retentionDays)

	drainTicker := time.NewTicker(s.drainInterval)
	defer drainTicker.Stop()
	cleanupTicker := time.NewTicker(s.cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-drainTicker.C:
			s.drainOnce()
		case <-cleanupTicker.C:
			s.cleanupOnce()
		}
	}
}

// drainOnce は通知サービスに1回のドレインを依頼する。
func (s *Scheduler) drainOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var resp struct {
		SentCount int64 `json:"sent_count"`
	}
	if err := s.notificationClient.PostJSON(ctx, "/api/v1/notifications/drain", nil, &resp); err != nil {
		log.Printf("[Scheduler] ドレイン依頼エラー: %v", err)
		return
	}

	s.mu.Lock()
	s.lastDrainAt = time.Now().UTC()
	s.lastDrainCount = resp.SentCount
	s.mu.Unlock()

	if resp.SentCount > 0 {
		log.Printf("[Scheduler] ドレイン完了: 配信数=%d", resp.SentCount)
	}
}

// cleanupOnce は通知サービスに古い通知のクリーンアップを依頼する。
func (s *Scheduler) cleanupOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var resp struct {
		RemovedCount int64 `json:"removed_count"`
	}
	path := "/api/v1/notifications/cleanup?days=" + strconv.Itoa(s.retentionDays)
	if err := s.notificationClient.DeleteJSON(ctx, path, &resp); err != nil {
		log.Printf("[Scheduler] クリーンアップ依頼エラー: %v", err)
		return
	}

	s.mu.Lock()
	s.lastCleanupAt = time.Now().UTC()
	s.lastCleanupCount = resp.RemovedCount
	s.mu.Unlock()

	log.Printf("[Scheduler] クリーンアップ完了: 削除数=%d, 保持日数=%d", resp.RemovedCount, s.retentionDays)
}

// Status はスケジューラの実行履歴を返す。
type Status struct {
	// DrainIntervalSeconds はドレイン間隔の秒数。
	DrainIntervalSeconds int64 `json:"drain_interval_seconds"`
	// CleanupIntervalHours はクリーンアップ間隔の時間数。
	CleanupIntervalHours int64 `json:"cleanup_interval_hours"`
	// RetentionDays は通知の保持日数。
	RetentionDays int `json:"retention_days"`
	// LastDrainAt は最後にドレインが成功した日時（RFC3339形式、未実行なら空）。
	LastDrainAt string `json:"last_drain_at,omitempty"`
	// LastDrainCount は最後のドレインで配信された通知数。
	LastDrainCount int64 `json:"last_drain_count"`
	// LastCleanupAt は最後にクリーンアップが成功した日時（RFC3339形式、未実行なら空）。
	LastCleanupAt string `json:"last_cleanup_at,omitempty"`
	// LastCleanupCount は最後のクリーンアップで削除された通知数。
	LastCleanupCount int64 `json:"last_cleanup_count"`
}

// CurrentStatus は現在の実行履歴のスナップショットを返す。
func (s *Scheduler) CurrentStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		DrainIntervalSeconds: int64(s.drainInterval / time.Second),
		CleanupIntervalHours: int64(s.cleanupInterval / time.Hour),
		RetentionDays:        s.retentionDays,
		LastDrainCount:       s.lastDrainCount,
		LastCleanupCount:     s.lastCleanupCount,
	}
	if !s.lastDrainAt.IsZero() {
		status.LastDrainAt = s.lastDrainAt.Format(time.RFC3339)
	}
	if !s.lastCleanupAt.IsZero() {
		status.LastCleanupAt = s.lastCleanupAt.Format(time.RFC3339)
	}
	return status
}
