// イベントストアサービスのエントリポイント。
// 各サービスの状態変更をイベントとして追記専用に永続化し、
// 監査・デバッグ・増分取り込み用の読み出しAPIを提供する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/attendhub/internal/eventstore"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8084"
	}

	server, err := eventstore.NewServer(port)
	if err != nil {
		log.Fatalf("イベントストアサーバーの初期化に失敗: %v", err)
	}

	log.Printf("イベントストアサービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("イベントストアサービスの起動に失敗: %v", err)
	}
}
