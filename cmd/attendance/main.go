// 出席管理サービスのエントリポイント。
// 顔写真による人物登録と出席照合、出席サマリーの提供、
// ネットワークカメラからのフレーム取得を担当する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/attendhub/internal/attendance"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	server, err := attendance.NewServer(port)
	if err != nil {
		log.Fatalf("出席管理サーバーの初期化に失敗: %v", err)
	}

	log.Printf("出席管理サービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("出席管理サービスの起動に失敗: %v", err)
	}
}
