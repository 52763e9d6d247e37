// スケジューラサービスのエントリポイント。
// 通知キューの定期ドレインと古い通知のクリーンアップを駆動する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/attendhub/internal/scheduler"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8085"
	}

	server, err := scheduler.NewServer(port)
	if err != nil {
		log.Fatalf("スケジューラサーバーの初期化に失敗: %v", err)
	}

	log.Printf("スケジューラサービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("スケジューラサービスの起動に失敗: %v", err)
	}
}
