package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/nao1215/attendhub/pkg/httpclient"
)

// Delivery は配信チャネルに渡す通知の内容。
type Delivery struct {
	// ID は通知の一意識別子。
	ID string
	// Title は通知のタイトル。
	Title string
	// Message は通知メッセージ。
	Message string
	// NotificationType は通知のタイプ。
	NotificationType string
	// Priority は通知の優先度（1〜5）。
	Priority int64
}

// Channel は通知の配信チャネルを表すインターフェース。
// 1つ以上のチャネルがSendに成功すれば配信成功として扱う。
type Channel interface {
	// Name はチャネル名を返す。
	Name() string
	// Applicable はこのチャネルが通知を配信対象とするか判定する。
	Applicable(d Delivery) bool
	// Send は通知を配信する。失敗はそのチャネルでの拒否として扱う。
	Send(ctx context.Context, d Delivery) error
}

// channelPolicy はチャネルごとの配信条件。環境変数から構築する。
type channelPolicy struct {
	// allowedTypes は配信対象の通知タイプ。空の場合は全タイプを対象とする。
	allowedTypes map[string]struct{}
	// minPriority は配信対象とする最小優先度。
	minPriority int64
}

// applies は通知が配信条件を満たすか判定する。
func (p channelPolicy) applies(d Delivery) bool {
	if d.Priority < p.minPriority {
		return false
	}
	if len(p.allowedTypes) == 0 {
		return true
	}
	_, ok := p.allowedTypes[d.NotificationType]
	return ok
}

// policyFromEnv は環境変数からチャネルの配信条件を構築する。
// typesKey はカンマ区切りの許可タイプ、priorityKey は最小優先度を指定する。
func policyFromEnv(typesKey, priorityKey string, defaultMinPriority int64) channelPolicy {
	p := channelPolicy{minPriority: defaultMinPriority}

	if csv := os.Getenv(typesKey); csv != "" {
		p.allowedTypes = make(map[string]struct{})
		for _, t := range strings.Split(csv, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				p.allowedTypes[t] = struct{}{}
			}
		}
	}

	if v := os.Getenv(priorityKey); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 1 && n <= 5 {
			p.minPriority = n
		}
	}

	return p
}

// channelsFromEnv は環境変数の設定に基づいて有効な配信チャネルを構築する。
// プッシュチャネルは常に有効。メールはSENDGRID_API_KEY、
// WebhookはWEBHOOK_URLが設定されている場合のみ有効になる。
func channelsFromEnv() []Channel {
	channels := []Channel{
		&pushChannel{
			policy: policyFromEnv("PUSH_ALLOWED_TYPES", "PUSH_MIN_PRIORITY", 1),
		},
	}

	if apiKey := os.Getenv("SENDGRID_API_KEY"); apiKey != "" {
		host := os.Getenv("SENDGRID_HOST")
		if host == "" {
			host = "https://api.sendgrid.com"
		}
		channels = append(channels, &emailChannel{
			policy: policyFromEnv("EMAIL_ALLOWED_TYPES", "EMAIL_MIN_PRIORITY", 3),
			apiKey: apiKey,
			host:   host,
			from:   os.Getenv("EMAIL_FROM"),
			to:     os.Getenv("EMAIL_TO"),
		})
	}

	if webhookURL := os.Getenv("WEBHOOK_URL"); webhookURL != "" {
		channels = append(channels, &webhookChannel{
			policy: policyFromEnv("WEBHOOK_ALLOWED_TYPES", "WEBHOOK_MIN_PRIORITY", 1),
			client: httpclient.New(webhookURL),
		})
	}

	return channels
}

// pushChannel はログ出力にバックエンドされたプッシュ配信チャネル。
type pushChannel struct {
	policy channelPolicy
}

// Name はチャネル名を返す。
func (ch *pushChannel) Name() string { return "push" }

// Applicable はこのチャネルが通知を配信対象とするか判定する。
func (ch *pushChannel) Applicable(d Delivery) bool { return ch.policy.applies(d) }

// Send はプッシュ通知を配信する。
func (ch *pushChannel) Send(_ context.Context, d Delivery) error {
	log.Printf("[Push] 通知を配信: id=%s, title=%s, priority=%d", d.ID, d.Title, d.Priority)
	return nil
}

// emailChannel はSendGrid経由のメール配信チャネル。
type emailChannel struct {
	policy channelPolicy
	// apiKey はSendGridのAPIキー。
	apiKey string
	// host はSendGrid APIのホスト。
	host string
	// from は送信元メールアドレス。
	from string
	// to は送信先メールアドレス。
	to string
}

// Name はチャネル名を返す。
func (ch *emailChannel) Name() string { return "email" }

// Applicable はこのチャネルが通知を配信対象とするか判定する。
func (ch *emailChannel) Applicable(d Delivery) bool {
	return ch.to != "" && ch.policy.applies(d)
}

// Send はSendGrid API経由でメールを送信する。
func (ch *emailChannel) Send(ctx context.Context, d Delivery) error {
	p := sgmail.NewPersonalization()
	p.Subject = fmt.Sprintf("[AttendHub] %s", d.Title)
	p.AddTos(sgmail.NewEmail("", ch.to))

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail("AttendHub", ch.from))
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", d.Message))

	req := sendgrid.GetRequest(ch.apiKey, "/v3/mail/send", ch.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("メール送信に失敗: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("メール送信に失敗: status=%d", res.StatusCode)
	}
	return nil
}

// webhookChannel は外部URLへのJSON POSTによる配信チャネル。
type webhookChannel struct {
	policy channelPolicy
	// client はWebhook先への通信クライアント。
	client *httpclient.Client
}

// webhookPayload はWebhookに送信するイベントエンベロープ。
type webhookPayload struct {
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
	// Timestamp は配信時刻（RFC3339形式）。
	Timestamp string `json:"timestamp"`
}

// Name はチャネル名を返す。
func (ch *webhookChannel) Name() string { return "webhook" }

// Applicable はこのチャネルが通知を配信対象とするか判定する。
func (ch *webhookChannel) Applicable(d Delivery) bool { return ch.policy.applies(d) }

// Send はWebhook先にイベントエンベロープをPOSTする。
func (ch *webhookChannel) Send(ctx context.Context, d Delivery) error {
	payload := webhookPayload{
		ID:               d.ID,
		Title:            d.Title,
		Message:          d.Message,
		NotificationType: d.NotificationType,
		Priority:         d.Priority,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}
	if err := ch.client.PostJSON(ctx, "", payload, nil); err != nil {
		return fmt.Errorf("Webhook配信に失敗: %w", err)
	}
	return nil
}
