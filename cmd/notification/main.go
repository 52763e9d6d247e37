// 通知サービスのエントリポイント。
// 優先度付きキューで通知を管理し、プッシュ・メール・Webhookの
// 複数チャネルへの配信、分析サマリーの提供を担当する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/attendhub/internal/notification"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8083"
	}

	server, err := notification.NewServer(port)
	if err != nil {
		log.Fatalf("通知サーバーの初期化に失敗: %v", err)
	}

	log.Printf("通知サービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("通知サービスの起動に失敗: %v", err)
	}
}
