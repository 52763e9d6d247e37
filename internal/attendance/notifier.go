package attendance

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/nao1215/attendhub/pkg/httpclient"
	"github.com/nao1215/attendhub/pkg/middleware"
)

// notifier は認識結果に応じて通知サービスへ通知をキュー登録する。
type notifier struct {
	// client は通知サービスへの通信クライアント。
	client *httpclient.Client
}

// newNotifierFromEnv は環境変数NOTIFICATION_URLからnotifierを構築する。
// 通知サービスのJWT認証を通過するため、サービストークンを発行して設定する。
func newNotifierFromEnv() *notifier {
	url := os.Getenv("NOTIFICATION_URL")
	if url == "" {
		url = "http://localhost:8083"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "dev-secret-key"
	}

	client := httpclient.New(url)
	token, err := middleware.GenerateJWT(jwtSecret, "attendance-service", "attendance@attendhub.local")
	if err != nil {
		log.Printf("[Attendance] サービストークンの発行に失敗: %v", err)
	} else {
		client.SetAuthToken(token)
	}

	return &notifier{client: client}
}

// enqueueRequest は通知サービスへのキュー登録リクエストのJSON構造。
type enqueueRequest struct {
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Message は通知メッセージ。
	Message string `json:"message"`
	// NotificationType は通知のタイプ。
	NotificationType string `json:"notification_type"`
	// Priority は通知の優先度（1〜5）。
	Priority int64 `json:"priority"`
}

// notifyMatch は照合結果に応じた通知をキュー登録する。
// 認識された人物1人につき1件の出席通知を送り、未認識の顔があれば
// 1件の警告通知をまとめて送る。登録失敗はログに記録するだけで伝播しない。
func (n *notifier) notifyMatch(ctx context.Context, result *RecognitionResult) {
	for _, person := range result.Recognized {
		n.enqueue(ctx, enqueueRequest{
			Title:            fmt.Sprintf("出席登録: %s", person.Name),
			Message:          fmt.Sprintf("%sさんの出席を記録しました（信頼度 %.2f）", person.Name, person.Confidence),
			NotificationType: "attendance",
			Priority:         2,
		})
	}

	if result.UnknownCount > 0 {
		n.enqueue(ctx, enqueueRequest{
			Title:            "未登録の顔を検出",
			Message:          fmt.Sprintf("未登録の顔が%d件検出されました", result.UnknownCount),
			NotificationType: "warning",
			Priority:         4,
		})
	}
}

// notifyRegistered は人物登録の完了通知をキュー登録する。
func (n *notifier) notifyRegistered(ctx context.Context, name string) {
	n.enqueue(ctx, enqueueRequest{
		Title:            "人物を登録しました",
		Message:          fmt.Sprintf("%sさんの顔情報を登録しました", name),
		NotificationType: "system",
		Priority:         1,
	})
}

// enqueue は通知サービスの内部APIに通知を登録する。失敗はログのみ。
func (n *notifier) enqueue(ctx context.Context, req enqueueRequest) {
	var resp map[string]any
	if err := n.client.PostJSON(ctx, "/api/v1/internal/send", req, &resp); err != nil {
		log.Printf("[Attendance] 通知のキュー登録に失敗: %v", err)
	}
}
