package notification

import (
	"math"
	"strconv"

	notificationdb "github.com/nao1215/attendhub/internal/notification/db"
)

// analyticsSummary は通知の配信状況の分析結果。
type analyticsSummary struct {
	// TotalNotifications は集計期間内の通知の総数。
	TotalNotifications int64 `json:"total_notifications"`
	// SentNotifications は送信済み通知の数。
	SentNotifications int64 `json:"sent_notifications"`
	// DeliveryRate は配信率（パーセント、小数点以下2桁）。
	DeliveryRate float64 `json:"delivery_rate"`
	// PriorityDistribution は優先度ごとの通知数。
	PriorityDistribution map[string]int64 `json:"priority_distribution"`
	// CategoryDistribution は通知タイプごとの通知数。
	CategoryDistribution map[string]int64 `json:"category_distribution"`
	// PeakHour は通知作成が最も多い時間帯（0〜23）。通知が無い場合は-1。
	PeakHour int `json:"peak_hour"`
}

// computeAnalytics は通知の一覧から配信状況の分析結果を計算する。
// 配信率はsent/total*100を小数点以下2桁に丸めた値で、通知が無い場合は0。
// ピーク時間帯は作成数が同数の場合は早い時間帯を採用する。
func computeAnalytics(notifications []notificationdb.Notification) analyticsSummary {
	summary := analyticsSummary{
		PriorityDistribution: make(map[string]int64),
		CategoryDistribution: make(map[string]int64),
		PeakHour:             -1,
	}

	if len(notifications) == 0 {
		return summary
	}

	var hourCounts [24]int64
	for _, n := range notifications {
		summary.TotalNotifications++
		if n.Status == statusSent {
			summary.SentNotifications++
		}
		summary.PriorityDistribution[strconv.FormatInt(n.Priority, 10)]++
		summary.CategoryDistribution[n.NotificationType]++
		hourCounts[n.CreatedAt.Hour()]++
	}

	rate := float64(summary.SentNotifications) / float64(summary.TotalNotifications) * 100
	summary.DeliveryRate = math.Round(rate*100) / 100

	var peakCount int64
	for hour, count := range hourCounts {
		if count > peakCount {
			peakCount = count
			summary.PeakHour = hour
		}
	}

	return summary
}
