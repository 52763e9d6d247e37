package notification

import (
	"context"
	"fmt"
	"os"

	"github.com/nao1215/attendhub/pkg/httpclient"
)

// enhancer は外部AIサービスによる通知文面の改善クライアント。
type enhancer struct {
	// client はAIサービスへの通信クライアント。
	client *httpclient.Client
}

// newEnhancerFromEnv は環境変数AI_SERVICE_URLからenhancerを構築する。
// 未設定の場合はnilを返し、文面改善は行われない。
func newEnhancerFromEnv() *enhancer {
	url := os.Getenv("AI_SERVICE_URL")
	if url == "" {
		return nil
	}
	return &enhancer{client: httpclient.New(url)}
}

// enhanceRequest は文面改善リクエストのJSON構造。
type enhanceRequest struct {
	// Text は改善対象のテキスト。
	Text string `json:"text"`
}

// enhanceResponse は文面改善レスポンスのJSON構造。
type enhanceResponse struct {
	// Text は改善後のテキスト。
	Text string `json:"text"`
	// SentimentScore はテキストの感情スコア（0.0〜1.0）。
	SentimentScore float64 `json:"sentiment_score"`
}

// Enhance は通知メッセージの文面を改善し、感情スコアと共に返す。
// AIサービスが範囲外のスコアを返した場合は0.0〜1.0に丸める。
func (e *enhancer) Enhance(ctx context.Context, text string) (string, float64, error) {
	var resp enhanceResponse
	if err := e.client.PostJSON(ctx, "/api/v1/enhance", enhanceRequest{Text: text}, &resp); err != nil {
		return "", 0, fmt.Errorf("文面改善リクエストに失敗: %w", err)
	}
	if resp.Text == "" {
		return "", 0, fmt.Errorf("文面改善レスポンスが空です")
	}

	score := resp.SentimentScore
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return resp.Text, score, nil
}
