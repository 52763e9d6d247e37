package attendance

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nao1215/attendhub/pkg/httpclient"
)

// cameraClient はネットワークカメラのスナップショットURLからフレームを取得する。
type cameraClient struct {
	// client はカメラへの通信クライアント。取得はタイムアウトで打ち切る。
	client *httpclient.Client
}

// newCameraFromEnv は環境変数CAMERA_URLからカメラクライアントを構築する。
// 未設定の場合はnilを返し、フレーム取得APIは利用不可になる。
// タイムアウトはCAMERA_TIMEOUT_SECONDS（デフォルト5秒）で指定する。
func newCameraFromEnv() *cameraClient {
	url := os.Getenv("CAMERA_URL")
	if url == "" {
		return nil
	}

	timeout := 5 * time.Second
	if v := os.Getenv("CAMERA_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}

	return &cameraClient{client: httpclient.NewWithTimeout(url, timeout)}
}

// Frame はカメラから1枚のJPEGフレームを取得する。
func (c *cameraClient) Frame(ctx context.Context) ([]byte, error) {
	frame, err := c.client.GetBytes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("カメラからのフレーム取得に失敗: %w", err)
	}
	return frame, nil
}
