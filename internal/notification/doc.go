// Package notification は通知サービスの内部実装を提供する。
//
// 優先度付きの通知キューを管理し、スケジュール指定された通知を
// 期日到来時に配信する。配信はプッシュ・メール・Webhookの
// 複数チャネルに対して行われ、1つ以上のチャネルが受理すれば
// 配信成功として扱う（at-least-once配信）。
//
// 主な機能:
//   - 通知のキュー登録（タイプ・優先度・スケジュールの検証付き）
//   - 単一通知の配信とステータスのCAS遷移（pending→sent/failed）
//   - 期日到来済み通知の一括配信（drain）
//   - 失敗通知の明示的な再キュー（reset）
//   - 古い通知の削除（cleanup）
//   - 配信率・優先度分布・ピーク時間帯の分析
//   - 通知タイプ別の最適送信時刻の提案
package notification
