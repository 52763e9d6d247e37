package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	notificationdb "github.com/nao1215/attendhub/internal/notification/db"
	"github.com/nao1215/attendhub/pkg/event"
)

// sendOne は単一の通知を配信し、ステータスをCASで遷移させる。
// 通知が存在しない、またはpendingでない場合は配信せずfalseを返す（冪等）。
// 1つ以上のチャネルが受理すればpending→sent、全チャネルが拒否すれば
// pending→failedに遷移する。
func (s *Server) sendOne(ctx context.Context, id string) (bool, error) {
	n, err := s.queries.GetNotificationByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("通知の取得に失敗: %w", err)
	}

	if n.Status != statusPending {
		return false, nil
	}

	d := Delivery{
		ID:               n.ID,
		Title:            n.Title,
		Message:          n.Message,
		NotificationType: n.NotificationType,
		Priority:         n.Priority,
	}

	var accepted []string
	for _, ch := range s.channels {
		if !ch.Applicable(d) {
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.channelTimeout)
		err := ch.Send(attemptCtx, d)
		cancel()

		if err != nil {
			log.Printf("[Notification] チャネル %s が通知 %s を拒否: %v", ch.Name(), n.ID, err)
			continue
		}
		accepted = append(accepted, ch.Name())
	}

	if len(accepted) == 0 {
		rows, err := s.queries.MarkFailed(ctx, n.ID)
		if err != nil {
			return false, fmt.Errorf("失敗ステータスへの更新に失敗: %w", err)
		}
		if rows == 1 {
			s.emitEvent(ctx, n.ID, event.TypeNotificationFailed, event.NotificationFailedData{
				Title:  n.Title,
				Reason: "全チャネルが配信を拒否",
			})
		}
		return false, nil
	}

	rows, err := s.queries.MarkSent(ctx, notificationdb.MarkSentParams{
		SentAt: sql.NullTime{Time: time.Now().UTC(), Valid: true},
		ID:     n.ID,
	})
	if err != nil {
		return false, fmt.Errorf("送信済みステータスへの更新に失敗: %w", err)
	}
	if rows == 0 {
		// 並行する送信者に先を越された場合。二重配信イベントは発行しない
		return false, nil
	}

	s.emitEvent(ctx, n.ID, event.TypeNotificationSent, event.NotificationSentData{
		Title:            n.Title,
		NotificationType: n.NotificationType,
		Channels:         accepted,
	})
	return true, nil
}

// drainDue は期日到来済みのpending通知を優先度順に一括配信する。
// 優先度の高い順、同一優先度では作成日時の古い順に処理する。
func (s *Server) drainDue(ctx context.Context) (int, error) {
	due, err := s.queries.ListDuePending(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("配信対象の取得に失敗: %w", err)
	}

	sentCount := 0
	for _, n := range due {
		sent, err := s.sendOne(ctx, n.ID)
		if err != nil {
			log.Printf("[Notification] 通知 %s の配信に失敗: %v", n.ID, err)
			continue
		}
		if sent {
			sentCount++
		}
	}
	return sentCount, nil
}

// cleanup は指定日数より古い通知をステータスに関わらず削除する。
func (s *Server) cleanup(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	removed, err := s.queries.DeleteNotificationsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("古い通知の削除に失敗: %w", err)
	}

	if removed > 0 {
		s.emitEvent(ctx, "cleanup", event.TypeNotificationsCleanedUp, event.NotificationsCleanedUpData{
			RemovedCount: removed,
			CutoffDays:   days,
		})
	}
	return removed, nil
}

// reset はfailedの通知をpendingに戻す。failed以外の通知には作用しない。
func (s *Server) reset(ctx context.Context, id string) (bool, error) {
	rows, err := s.queries.ResetFailed(ctx, id)
	if err != nil {
		return false, fmt.Errorf("ステータスのリセットに失敗: %w", err)
	}
	return rows == 1, nil
}

// selfTest は使い捨ての通知行に対してキューの基本動作を検証する。
// 登録・送信済み遷移・分析・削除の各ステップの成否を返す。
func (s *Server) selfTest(ctx context.Context) map[string]bool {
	results := map[string]bool{
		"enqueue":   false,
		"mark_sent": false,
		"analytics": false,
		"cleanup":   false,
	}

	id := uuid.New().String()
	err := s.queries.CreateNotification(ctx, notificationdb.CreateNotificationParams{
		ID:               id,
		Title:            "セルフテスト",
		Message:          "キューの動作確認",
		NotificationType: "system",
		Priority:         1,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[Notification] セルフテスト登録エラー: %v", err)
		return results
	}
	results["enqueue"] = true

	rows, err := s.queries.MarkSent(ctx, notificationdb.MarkSentParams{
		SentAt: sql.NullTime{Time: time.Now().UTC(), Valid: true},
		ID:     id,
	})
	results["mark_sent"] = err == nil && rows == 1

	since := time.Now().UTC().AddDate(0, 0, -1)
	rows2, err := s.queries.ListNotificationsSince(ctx, since)
	results["analytics"] = err == nil && computeAnalytics(rows2).TotalNotifications >= 1

	err = s.queries.DeleteNotification(ctx, id)
	results["cleanup"] = err == nil

	return results
}

// emitEvent はEvent Storeにイベントを送信する。
// イベント送信に失敗してもログに記録し、通知処理自体は成功として扱う。
func (s *Server) emitEvent(ctx context.Context, notificationID string, eventType event.Type, data any) {
	e, err := event.New(
		fmt.Sprintf("notification-%s", notificationID),
		event.AggregateTypeNotification,
		eventType,
		0,
		data,
	)
	if err != nil {
		log.Printf("[Notification] イベントの生成に失敗: %v", err)
		return
	}

	body := map[string]any{
		"aggregate_id":   e.AggregateID,
		"aggregate_type": string(e.AggregateType),
		"event_type":     string(e.EventType),
		"data":           e.Data,
	}

	var resp map[string]any
	if err := s.eventStoreClient.PostJSON(ctx, "/api/v1/events", body, &resp); err != nil {
		log.Printf("[Notification] %sイベントの送信に失敗: %v", eventType, err)
	}
}
