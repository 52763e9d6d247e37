// Package attendance は顔認識による出席管理サービスの内部実装を提供する。
//
// 登録された人物の顔埋め込み（128次元ディスクリプタ）と照合して
// 写真から出席者を認識し、出席記録を保存する。認識結果に応じて
// 通知サービスへ出席通知・警告通知をキュー登録する。
//
// 主な機能:
//   - 人物の登録（写真から顔埋め込みを抽出、1人あたり最大5件）
//   - 写真による出席照合（ユークリッド距離による最近傍探索）
//   - 出席サマリーの集計
//   - ネットワークカメラからのフレーム取得
package attendance
