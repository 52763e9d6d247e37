package scheduler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/attendhub/pkg/httpclient"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockNotificationServer は通知サービスのドレイン・クリーンアップAPIを模倣する。
type mockNotificationServer struct {
	mu           sync.Mutex
	drainCalls   int
	cleanupCalls int
	cleanupQuery string
	server       *httptest.Server
}

func newMockNotificationServer(t *testing.T, sentCount, removedCount int64) *mockNotificationServer {
	t.Helper()

	m := &mockNotificationServer{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/notifications/drain":
			m.drainCalls++
			json.NewEncoder(w).Encode(map[string]int64{"sent_count": sentCount}) //nolint:errcheck
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/notifications/cleanup":
			m.cleanupCalls++
			m.cleanupQuery = r.URL.RawQuery
			json.NewEncoder(w).Encode(map[string]int64{"removed_count": removedCount}) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockNotificationServer) counts() (int, int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drainCalls, m.cleanupCalls, m.cleanupQuery
}

// TestDrainOnce はドレイン依頼のテスト。
func TestDrainOnce(t *testing.T) {
	t.Parallel()

	t.Run("ドレインを依頼し配信数を記録する", func(t *testing.T) {
		t.Parallel()
		mock := newMockNotificationServer(t, 3, 0)
		s := NewScheduler(httpclient.New(mock.server.URL), 30*time.Second, 24*time.Hour, 30)

		s.drainOnce()

		drains, _, _ := mock.counts()
		if drains != 1 {
			t.Errorf("ドレイン呼び出し数: got %d, want 1", drains)
		}

		status := s.CurrentStatus()
		if status.LastDrainCount != 3 {
			t.Errorf("LastDrainCount: got %d, want 3", status.LastDrainCount)
		}
		if status.LastDrainAt == "" {
			t.Error("LastDrainAtが空")
		}
	})

	t.Run("通知サービスがエラーを返す場合は履歴を更新しない", func(t *testing.T) {
		t.Parallel()
		errorServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(errorServer.Close)

		s := NewScheduler(httpclient.New(errorServer.URL), 30*time.Second, 24*time.Hour, 30)
		s.drainOnce()

		status := s.CurrentStatus()
		if status.LastDrainAt != "" {
			t.Errorf("LastDrainAt: got %s, want 空", status.LastDrainAt)
		}
	})
}

// TestCleanupOnce はクリーンアップ依頼のテスト。
func TestCleanupOnce(t *testing.T) {
	t.Parallel()

	t.Run("保持日数を指定してクリーンアップを依頼する", func(t *testing.T) {
		t.Parallel()
		mock := newMockNotificationServer(t, 0, 5)
		s := NewScheduler(httpclient.New(mock.server.URL), 30*time.Second, 24*time.Hour, 14)

		s.cleanupOnce()

		_, cleanups, query := mock.counts()
		if cleanups != 1 {
			t.Errorf("クリーンアップ呼び出し数: got %d, want 1", cleanups)
		}
		if query != "days=14" {
			t.Errorf("クエリパラメータ: got %s, want days=14", query)
		}

		status := s.CurrentStatus()
		if status.LastCleanupCount != 5 {
			t.Errorf("LastCleanupCount: got %d, want 5", status.LastCleanupCount)
		}
		if status.LastCleanupAt == "" {
			t.Error("LastCleanupAtが空")
		}
	})
}

// TestNewSchedulerFromEnv は環境変数からの構築のテスト。
// 環境変数を操作するためt.Parallel()は使用しない。
func TestNewSchedulerFromEnv(t *testing.T) {
	t.Run("デフォルト値で構築される", func(t *testing.T) {
		s := newSchedulerFromEnv()

		if s.drainInterval != 30*time.Second {
			t.Errorf("drainInterval: got %s, want 30s", s.drainInterval)
		}
		if s.cleanupInterval != 24*time.Hour {
			t.Errorf("cleanupInterval: got %s, want 24h", s.cleanupInterval)
		}
		if s.retentionDays != 30 {
			t.Errorf("retentionDays: got %d, want 30", s.retentionDays)
		}
	})

	t.Run("環境変数で間隔を上書きできる", func(t *testing.T) {
		t.Setenv("DRAIN_INTERVAL_SECONDS", "10")
		t.Setenv("CLEANUP_INTERVAL_HOURS", "6")
		t.Setenv("RETENTION_DAYS", "7")

		s := newSchedulerFromEnv()

		if s.drainInterval != 10*time.Second {
			t.Errorf("drainInterval: got %s, want 10s", s.drainInterval)
		}
		if s.cleanupInterval != 6*time.Hour {
			t.Errorf("cleanupInterval: got %s, want 6h", s.cleanupInterval)
		}
		if s.retentionDays != 7 {
			t.Errorf("retentionDays: got %d, want 7", s.retentionDays)
		}
	})

	t.Run("不正な環境変数は無視される", func(t *testing.T) {
		t.Setenv("DRAIN_INTERVAL_SECONDS", "abc")
		t.Setenv("RETENTION_DAYS", "-1")

		s := newSchedulerFromEnv()

		if s.drainInterval != 30*time.Second {
			t.Errorf("drainInterval: got %s, want 30s", s.drainInterval)
		}
		if s.retentionDays != 30 {
			t.Errorf("retentionDays: got %d, want 30", s.retentionDays)
		}
	})
}

// TestCurrentStatus は実行履歴スナップショットのテスト。
func TestCurrentStatus(t *testing.T) {
	t.Parallel()

	s := NewScheduler(httpclient.New("http://localhost:0"), 30*time.Second, 24*time.Hour, 30)
	status := s.CurrentStatus()

	if status.DrainIntervalSeconds != 30 {
		t.Errorf("DrainIntervalSeconds: got %d, want 30", status.DrainIntervalSeconds)
	}
	if status.CleanupIntervalHours != 24 {
		t.Errorf("CleanupIntervalHours: got %d, want 24", status.CleanupIntervalHours)
	}
	if status.LastDrainAt != "" || status.LastCleanupAt != "" {
		t.Error("未実行の履歴が空でない")
	}
}

// TestHandleStatus は実行履歴APIのテスト。
func TestHandleStatus(t *testing.T) {
	t.Parallel()

	mock := newMockNotificationServer(t, 2, 0)
	sched := NewScheduler(httpclient.New(mock.server.URL), 30*time.Second, 24*time.Hour, 30)
	sched.drainOnce()

	router := gin.New()
	s := &Server{router: router, port: "0", scheduler: sched}
	router.GET("/api/v1/scheduler/status", s.handleStatus())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}

	var status Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("JSONのパースに失敗: %v", err)
	}
	if status.LastDrainCount != 2 {
		t.Errorf("LastDrainCount: got %d, want 2", status.LastDrainCount)
	}
}
