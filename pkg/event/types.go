package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeIdentity は顔認識の登録者エンティティを表す。
	AggregateTypeIdentity AggregateType = "Identity"
	// AggregateTypeAttendance は出席記録エンティティを表す。
	AggregateTypeAttendance AggregateType = "Attendance"
	// AggregateTypeNotification は通知エンティティを表す。
	AggregateTypeNotification AggregateType = "Notification"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeIdentityRegistered は登録者の顔写真が登録されたことを表す。
	TypeIdentityRegistered Type = "IdentityRegistered"
	// TypeAttendanceMarked は顔認識による出席登録が行われたことを表す。
	TypeAttendanceMarked Type = "AttendanceMarked"

	// TypeNotificationQueued は通知がキューに登録されたことを表す。
	TypeNotificationQueued Type = "NotificationQueued"
	// TypeNotificationSent は通知が配信されたことを表す。
	TypeNotificationSent Type = "NotificationSent"
	// TypeNotificationFailed は全チャネルが通知の配信を拒否したことを表す。
	TypeNotificationFailed Type = "NotificationFailed"
	// TypeNotificationsCleanedUp は保持期限切れの通知が削除されたことを表す。
	TypeNotificationsCleanedUp Type = "NotificationsCleanedUp"
)

// Event はEvent Sourcingにおける不変のイベントレコードを表す。
// すべての状態変更はこの構造体としてEvent Storeに永続化される。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// Version はAggregate内でのイベントの順序番号。楽観的排他制御に使用する。
	Version int64 `json:"version"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// IdentityRegisteredData はIdentityRegisteredイベントのデータ。
type IdentityRegisteredData struct {
	// DisplayName は登録者の表示名。
	DisplayName string `json:"display_name"`
	// EmbeddingCount は登録後にその登録者が保持する特徴ベクトルの数。
	EmbeddingCount int `json:"embedding_count"`
}

// RecognizedFace は出席登録時に認識された顔の情報。
type RecognizedFace struct {
	// IdentityID は認識された登録者のID。
	IdentityID string `json:"identity_id"`
	// DisplayName は認識された登録者の表示名。
	DisplayName string `json:"display_name"`
	// Confidence は認識の信頼度（0.0〜1.0）。
	Confidence float64 `json:"confidence"`
}

// AttendanceMarkedData はAttendanceMarkedイベントのデータ。
type AttendanceMarkedData struct {
	// Recognized は認識された顔の一覧。
	Recognized []RecognizedFace `json:"recognized"`
	// UnknownCount は認識できなかった顔の数。
	UnknownCount int `json:"unknown_count"`
}

// NotificationQueuedData はNotificationQueuedイベントのデータ。
type NotificationQueuedData struct {
	// Title は通知のタイトル。
	Title string `json:"title"`
	// NotificationType は通知の種類。
	NotificationType string `json:"notification_type"`
	// Priority は通知の優先度（1〜5）。
	Priority int64 `json:"priority"`
}

// NotificationSentData はNotificationSentイベントのデータ。
type NotificationSentData struct {
	// Title は通知のタイトル。
	Title string `json:"title"`
	// NotificationType は通知の種類。
	NotificationType string `json:"notification_type"`
	// Channels は配信を受理したチャネル名の一覧。
	Channels []string `json:"channels"`
}

// NotificationFailedData はNotificationFailedイベントのデータ。
type NotificationFailedData struct {
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Reason は配信失敗の理由。
	Reason string `json:"reason"`
}

// NotificationsCleanedUpData はNotificationsCleanedUpイベントのデータ。
type NotificationsCleanedUpData struct {
	// RemovedCount は削除された通知の数。
	RemovedCount int64 `json:"removed_count"`
	// CutoffDays は保持期間（日数）。
	CutoffDays int `json:"cutoff_days"`
}
