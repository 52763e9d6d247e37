// Package scheduler は通知キューの定期処理を担当するサービス。
// 通知サービスに対して一定間隔でドレイン（期限到来した保留通知の配信）を依頼し、
// 1日1回のペースで保持期間を過ぎた古い通知のクリーンアップを依頼する。
// 自前の状態はインメモリの実行履歴のみで、永続化は通知サービス側に委ねる。
package scheduler
