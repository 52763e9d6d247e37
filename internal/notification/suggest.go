package notification

import "time"

// preferredHours は通知タイプごとの推奨送信時刻（時）。
// 出席通知は始業前、会議通知は昼休み明け、システム通知は終業前に送る。
var preferredHours = map[string]int{
	"attendance": 9,
	"meeting":    13,
	"system":     17,
}

// suggestOptimalTime は通知タイプに応じた次の最適送信時刻を返す。
// 推奨時刻が定義されていないタイプは次の正時を返す。
// 返す時刻は必ずnowより未来になる。
func suggestOptimalTime(notificationType string, now time.Time) time.Time {
	hour, ok := preferredHours[notificationType]
	if !ok {
		return now.Truncate(time.Hour).Add(time.Hour)
	}

	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
