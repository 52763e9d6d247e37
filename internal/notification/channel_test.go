package notification

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nao1215/attendhub/pkg/httpclient"
)

// TestChannelPolicy はチャネルの配信条件判定を検証する。
func TestChannelPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		policy channelPolicy
		d      Delivery
		want   bool
	}{
		{
			name:   "許可タイプが空の場合は全タイプが対象",
			policy: channelPolicy{minPriority: 1},
			d:      Delivery{NotificationType: "info", Priority: 1},
			want:   true,
		},
		{
			name: "許可タイプに含まれるタイプは対象",
			policy: channelPolicy{
				allowedTypes: map[string]struct{}{"warning": {}, "error": {}},
				minPriority:  1,
			},
			d:    Delivery{NotificationType: "warning", Priority: 1},
			want: true,
		},
		{
			name: "許可タイプに含まれないタイプは対象外",
			policy: channelPolicy{
				allowedTypes: map[string]struct{}{"warning": {}},
				minPriority:  1,
			},
			d:    Delivery{NotificationType: "info", Priority: 5},
			want: false,
		},
		{
			name:   "最小優先度未満は対象外",
			policy: channelPolicy{minPriority: 3},
			d:      Delivery{NotificationType: "info", Priority: 2},
			want:   false,
		},
		{
			name:   "最小優先度ちょうどは対象",
			policy: channelPolicy{minPriority: 3},
			d:      Delivery{NotificationType: "info", Priority: 3},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.policy.applies(tt.d); got != tt.want {
				t.Errorf("applies() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestPolicyFromEnv は環境変数からの配信条件の構築を検証する。
func TestPolicyFromEnv(t *testing.T) {
	t.Run("カンマ区切りの許可タイプと最小優先度を読み込む", func(t *testing.T) {
		t.Setenv("TEST_ALLOWED_TYPES", "warning, error")
		t.Setenv("TEST_MIN_PRIORITY", "4")

		p := policyFromEnv("TEST_ALLOWED_TYPES", "TEST_MIN_PRIORITY", 1)

		if p.minPriority != 4 {
			t.Errorf("minPriority: got %d, want 4", p.minPriority)
		}
		if _, ok := p.allowedTypes["warning"]; !ok {
			t.Error("warningが許可タイプに含まれていない")
		}
		if _, ok := p.allowedTypes["error"]; !ok {
			t.Error("errorが許可タイプに含まれていない")
		}
		if _, ok := p.allowedTypes["info"]; ok {
			t.Error("infoが許可タイプに含まれている")
		}
	})

	t.Run("未設定の場合はデフォルト値が使われる", func(t *testing.T) {
		p := policyFromEnv("UNSET_ALLOWED_TYPES", "UNSET_MIN_PRIORITY", 3)

		if p.minPriority != 3 {
			t.Errorf("minPriority: got %d, want 3", p.minPriority)
		}
		if len(p.allowedTypes) != 0 {
			t.Errorf("allowedTypes: got %v, want 空", p.allowedTypes)
		}
	})

	t.Run("範囲外の最小優先度は無視される", func(t *testing.T) {
		t.Setenv("TEST_MIN_PRIORITY", "99")

		p := policyFromEnv("TEST_ALLOWED_TYPES_2", "TEST_MIN_PRIORITY", 2)

		if p.minPriority != 2 {
			t.Errorf("minPriority: got %d, want 2", p.minPriority)
		}
	})
}

// TestChannelsFromEnv は環境変数に基づくチャネル構築を検証する。
func TestChannelsFromEnv(t *testing.T) {
	t.Run("デフォルトではプッシュチャネルのみ有効", func(t *testing.T) {
		channels := channelsFromEnv()

		if len(channels) != 1 {
			t.Fatalf("チャネル数: got %d, want 1", len(channels))
		}
		if channels[0].Name() != "push" {
			t.Errorf("チャネル名: got %s, want push", channels[0].Name())
		}
	})

	t.Run("SENDGRID_API_KEY設定時はメールチャネルが有効", func(t *testing.T) {
		t.Setenv("SENDGRID_API_KEY", "test-key")
		t.Setenv("EMAIL_TO", "admin@example.com")

		channels := channelsFromEnv()

		if len(channels) != 2 {
			t.Fatalf("チャネル数: got %d, want 2", len(channels))
		}
		if channels[1].Name() != "email" {
			t.Errorf("チャネル名: got %s, want email", channels[1].Name())
		}
	})

	t.Run("WEBHOOK_URL設定時はWebhookチャネルが有効", func(t *testing.T) {
		t.Setenv("WEBHOOK_URL", "http://localhost:9000/hook")

		channels := channelsFromEnv()

		if len(channels) != 2 {
			t.Fatalf("チャネル数: got %d, want 2", len(channels))
		}
		if channels[1].Name() != "webhook" {
			t.Errorf("チャネル名: got %s, want webhook", channels[1].Name())
		}
	})
}

// TestPushChannel はプッシュチャネルの配信を検証する。
func TestPushChannel(t *testing.T) {
	t.Parallel()

	ch := &pushChannel{policy: channelPolicy{minPriority: 1}}

	if ch.Name() != "push" {
		t.Errorf("Name() = %s, want push", ch.Name())
	}

	d := Delivery{ID: "n-1", Title: "テスト", Priority: 1}
	if !ch.Applicable(d) {
		t.Error("デフォルト条件で配信対象にならない")
	}
	if err := ch.Send(t.Context(), d); err != nil {
		t.Errorf("Send()でエラーが発生: %v", err)
	}
}

// TestWebhookChannel はWebhookチャネルの配信を検証する。
func TestWebhookChannel(t *testing.T) {
	t.Parallel()

	t.Run("イベントエンベロープがPOSTされる", func(t *testing.T) {
		t.Parallel()

		var received webhookPayload
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &received); err != nil {
				t.Errorf("ペイロードのパースに失敗: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(func() { ts.Close() })

		ch := &webhookChannel{
			policy: channelPolicy{minPriority: 1},
			client: httpclient.New(ts.URL),
		}

		d := Delivery{
			ID:               "n-1",
			Title:            "Webhookテスト",
			Message:          "メッセージ",
			NotificationType: "system",
			Priority:         2,
		}
		if err := ch.Send(t.Context(), d); err != nil {
			t.Fatalf("Send()でエラーが発生: %v", err)
		}

		if received.ID != "n-1" {
			t.Errorf("id: got %s, want n-1", received.ID)
		}
		if received.NotificationType != "system" {
			t.Errorf("notification_type: got %s, want system", received.NotificationType)
		}
		if received.Timestamp == "" {
			t.Error("timestampが空")
		}
	})

	t.Run("Webhook先がエラーを返した場合は配信拒否になる", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(func() { ts.Close() })

		ch := &webhookChannel{
			policy: channelPolicy{minPriority: 1},
			client: httpclient.New(ts.URL),
		}

		if err := ch.Send(t.Context(), Delivery{ID: "n-1"}); err == nil {
			t.Error("エラーが期待されたがnilが返った")
		}
	})
}

// TestEmailChannel はメールチャネルの配信を検証する。
// SendGrid APIはホスト差し替えによりモックサーバーで受ける。
func TestEmailChannel(t *testing.T) {
	t.Parallel()

	t.Run("送信先が未設定の場合は配信対象外", func(t *testing.T) {
		t.Parallel()

		ch := &emailChannel{policy: channelPolicy{minPriority: 1}}
		if ch.Applicable(Delivery{Priority: 5}) {
			t.Error("送信先未設定なのに配信対象になった")
		}
	})

	t.Run("SendGrid APIにメール送信リクエストが送られる", func(t *testing.T) {
		t.Parallel()

		var gotPath string
		var gotBody map[string]any
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &gotBody); err != nil {
				t.Errorf("リクエストボディのパースに失敗: %v", err)
			}
			w.WriteHeader(http.StatusAccepted)
		}))
		t.Cleanup(func() { ts.Close() })

		ch := &emailChannel{
			policy: channelPolicy{minPriority: 3},
			apiKey: "test-key",
			host:   ts.URL,
			from:   "noreply@example.com",
			to:     "admin@example.com",
		}

		d := Delivery{ID: "n-1", Title: "メールテスト", Message: "本文", Priority: 4}
		if !ch.Applicable(d) {
			t.Fatal("配信対象にならない")
		}
		if err := ch.Send(t.Context(), d); err != nil {
			t.Fatalf("Send()でエラーが発生: %v", err)
		}

		if gotPath != "/v3/mail/send" {
			t.Errorf("path: got %s, want /v3/mail/send", gotPath)
		}
		if gotBody["personalizations"] == nil {
			t.Error("personalizationsが含まれていない")
		}
	})

	t.Run("SendGrid APIがエラーを返した場合は配信拒否になる", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		t.Cleanup(func() { ts.Close() })

		ch := &emailChannel{
			policy: channelPolicy{minPriority: 1},
			apiKey: "bad-key",
			host:   ts.URL,
			to:     "admin@example.com",
		}

		if err := ch.Send(t.Context(), Delivery{ID: "n-1", Title: "t", Message: "m", Priority: 5}); err == nil {
			t.Error("エラーが期待されたがnilが返った")
		}
	})
}
