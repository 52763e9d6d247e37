package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	attendancedb "github.com/nao1215/attendhub/internal/attendance/db"
)

// maxEmbeddingsPerIdentity は1人あたりに保持する顔埋め込みの上限。
// 上限を超えた場合は最も古い埋め込みから削除する。
const maxEmbeddingsPerIdentity = 5

// Engine は顔認識による登録・照合処理の中核。
type Engine struct {
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *attendancedb.Queries
	// db はSQLiteデータベース接続。トランザクション開始に使用する。
	db *sql.DB
	// encoder は顔ディスクリプタの抽出器。
	encoder FaceEncoder
	// tolerance は認識と判定する最大ユークリッド距離。
	tolerance float64
}

// NewEngine は新しい認識エンジンを生成する。
func NewEngine(db *sql.DB, encoder FaceEncoder, tolerance float64) *Engine {
	return &Engine{
		queries:   attendancedb.New(db),
		db:        db,
		encoder:   encoder,
		tolerance: tolerance,
	}
}

// RegisterResult は人物登録の結果。
type RegisterResult struct {
	// IdentityID は登録された人物の一意識別子。
	IdentityID string `json:"identity_id"`
	// Name は登録された表示名。
	Name string `json:"name"`
	// EmbeddingCount は登録後の埋め込み数。
	EmbeddingCount int64 `json:"embedding_count"`
}

// RecognizedPerson は照合で認識された人物。
type RecognizedPerson struct {
	// IdentityID は認識された人物の一意識別子。
	IdentityID string `json:"identity_id"`
	// Name は認識された人物の表示名。
	Name string `json:"name"`
	// Confidence は認識の信頼度（0.0〜1.0）。
	Confidence float64 `json:"confidence"`
}

// RecognitionResult は出席照合の結果。
// 顔が検出できない等の検証失敗はSuccess=falseで表現し、エラーにはしない。
type RecognitionResult struct {
	// Success は照合が実行できたかどうか。
	Success bool `json:"success"`
	// Recognized は認識された人物の一覧（信頼度の降順、同率は名前順）。
	Recognized []RecognizedPerson `json:"recognized"`
	// UnknownCount は認識できなかった顔の数。
	UnknownCount int `json:"unknown_count"`
	// Error は照合が実行できなかった理由。Success=falseの場合のみ設定される。
	Error string `json:"error,omitempty"`
}

// Register は写真から顔埋め込みを抽出して人物を登録する。
// 写真にちょうど1つの顔が写っている必要がある。
// 同名（大文字小文字を区別しない）の人物が存在する場合は埋め込みを追記し、
// 上限を超えた分は最も古い埋め込みから削除する。
func (e *Engine) Register(ctx context.Context, name string, photo []byte) (*RegisterResult, error) {
	descriptors, err := e.encoder.Descriptors(photo)
	if err != nil {
		return nil, err
	}
	if len(descriptors) == 0 {
		return nil, ErrNoFaceDetected
	}
	if len(descriptors) > 1 {
		return nil, ErrMultipleFacesDetected
	}

	vector, err := json.Marshal(descriptors[0])
	if err != nil {
		return nil, fmt.Errorf("埋め込みのシリアライズに失敗: %w", err)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	qtx := e.queries.WithTx(tx)
	now := time.Now().UTC()

	identity, err := qtx.GetIdentityByName(ctx, name)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("人物の検索に失敗: %w", err)
		}
		identity = attendancedb.Identity{
			ID:          uuid.New().String(),
			DisplayName: name,
			CreatedAt:   now,
		}
		if err := qtx.CreateIdentity(ctx, attendancedb.CreateIdentityParams{
			ID:          identity.ID,
			DisplayName: identity.DisplayName,
			CreatedAt:   identity.CreatedAt,
		}); err != nil {
			return nil, fmt.Errorf("人物の登録に失敗: %w", err)
		}
	}

	if err := qtx.CreateEmbedding(ctx, attendancedb.CreateEmbeddingParams{
		ID:         uuid.New().String(),
		IdentityID: identity.ID,
		Vector:     string(vector),
		CreatedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("埋め込みの保存に失敗: %w", err)
	}

	count, err := qtx.CountEmbeddingsByIdentity(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("埋め込み数の取得に失敗: %w", err)
	}
	for count > maxEmbeddingsPerIdentity {
		if err := qtx.DeleteOldestEmbedding(ctx, identity.ID); err != nil {
			return nil, fmt.Errorf("古い埋め込みの削除に失敗: %w", err)
		}
		count--
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}

	return &RegisterResult{
		IdentityID:     identity.ID,
		Name:           identity.DisplayName,
		EmbeddingCount: count,
	}, nil
}

// Match は写真内の全ての顔を登録済み埋め込みと照合し、出席記録を保存する。
// 顔が検出できない・画像がデコードできない場合はSuccess=falseの結果を返す。
func (e *Engine) Match(ctx context.Context, photo []byte) (*RecognitionResult, error) {
	descriptors, err := e.encoder.Descriptors(photo)
	if err != nil {
		if errors.Is(err, ErrImageDecode) {
			return &RecognitionResult{
				Success:    false,
				Recognized: []RecognizedPerson{},
				Error:      ErrImageDecode.Error(),
			}, nil
		}
		return nil, err
	}
	if len(descriptors) == 0 {
		return &RecognitionResult{
			Success:    false,
			Recognized: []RecognizedPerson{},
			Error:      ErrNoFaceDetected.Error(),
		}, nil
	}

	enrolled, err := e.queries.ListAllEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("登録済み埋め込みの取得に失敗: %w", err)
	}

	// 人物ごとに最大信頼度を保持して重複を排除する
	best := make(map[string]RecognizedPerson)
	unknownCount := 0
	for _, descriptor := range descriptors {
		person, ok, err := e.nearestEnrolled(descriptor, enrolled)
		if err != nil {
			return nil, err
		}
		if !ok {
			unknownCount++
			continue
		}
		if prev, exists := best[person.IdentityID]; !exists || person.Confidence > prev.Confidence {
			best[person.IdentityID] = person
		}
	}

	recognized := make([]RecognizedPerson, 0, len(best))
	for _, person := range best {
		recognized = append(recognized, person)
	}
	sort.Slice(recognized, func(i, j int) bool {
		if recognized[i].Confidence != recognized[j].Confidence {
			return recognized[i].Confidence > recognized[j].Confidence
		}
		return recognized[i].Name < recognized[j].Name
	})

	now := time.Now().UTC()
	for _, person := range recognized {
		if err := e.queries.CreateAttendanceRecord(ctx, attendancedb.CreateAttendanceRecordParams{
			ID:         uuid.New().String(),
			IdentityID: person.IdentityID,
			PersonName: person.Name,
			Confidence: person.Confidence,
			RecordedAt: now,
		}); err != nil {
			return nil, fmt.Errorf("出席記録の保存に失敗: %w", err)
		}
	}

	return &RecognitionResult{
		Success:      true,
		Recognized:   recognized,
		UnknownCount: unknownCount,
	}, nil
}

// nearestEnrolled はディスクリプタに最も近い登録済み埋め込みを探す。
// 最短距離がtolerance以内の場合のみ認識とみなす。
func (e *Engine) nearestEnrolled(descriptor []float32, enrolled []attendancedb.ListAllEmbeddingsRow) (RecognizedPerson, bool, error) {
	bestDistance := math.Inf(1)
	var bestRow attendancedb.ListAllEmbeddingsRow

	for _, row := range enrolled {
		var vector []float32
		if err := json.Unmarshal([]byte(row.Vector), &vector); err != nil {
			return RecognizedPerson{}, false, fmt.Errorf("埋め込みのデシリアライズに失敗: %w", err)
		}
		if len(vector) != len(descriptor) {
			continue
		}

		distance := euclideanDistance(descriptor, vector)
		if distance < bestDistance {
			bestDistance = distance
			bestRow = row
		}
	}

	if bestDistance > e.tolerance {
		return RecognizedPerson{}, false, nil
	}

	return RecognizedPerson{
		IdentityID: bestRow.IdentityID,
		Name:       bestRow.DisplayName,
		Confidence: clamp01(1 - bestDistance),
	}, true, nil
}

// euclideanDistance は2つのディスクリプタ間のユークリッド距離を計算する。
func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// clamp01 は値を0.0〜1.0の範囲に収める。
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
