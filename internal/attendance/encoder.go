package attendance

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	// PNG/GIF画像のデコードを有効にするための登録
	_ "image/gif"
	_ "image/png"

	"github.com/Kagami/go-face"
)

// 画像・顔検出に関する検証エラー。ハンドラでHTTP 400に変換される。
var (
	// ErrImageDecode は画像のデコードに失敗したことを表す。
	ErrImageDecode = errors.New("画像のデコードに失敗しました")
	// ErrNoFaceDetected は画像から顔が検出されなかったことを表す。
	ErrNoFaceDetected = errors.New("顔が検出されませんでした")
	// ErrMultipleFacesDetected は登録画像に複数の顔が含まれていたことを表す。
	ErrMultipleFacesDetected = errors.New("複数の顔が検出されました")
)

// FaceEncoder は画像から顔ごとの128次元ディスクリプタを抽出するインターフェース。
type FaceEncoder interface {
	// Descriptors は画像内の全ての顔のディスクリプタを返す。
	// 画像がデコードできない場合はErrImageDecodeを返す。
	Descriptors(imageData []byte) ([][]float32, error)
	// Close はエンコーダが保持するリソースを解放する。
	Close()
}

// DlibEncoder はdlibの顔認識モデル（go-face）によるFaceEncoder実装。
type DlibEncoder struct {
	// rec はgo-faceの認識器。
	rec *face.Recognizer
}

// NewDlibEncoder はモデルファイルのディレクトリを指定してエンコーダを生成する。
func NewDlibEncoder(modelsDir string) (*DlibEncoder, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("顔認識モデルの読み込みに失敗: %w", err)
	}
	return &DlibEncoder{rec: rec}, nil
}

// Descriptors は画像内の全ての顔の128次元ディスクリプタを返す。
func (e *DlibEncoder) Descriptors(imageData []byte) ([][]float32, error) {
	jpegData, err := toJPEG(imageData)
	if err != nil {
		return nil, err
	}

	faces, err := e.rec.Recognize(jpegData)
	if err != nil {
		return nil, fmt.Errorf("顔検出に失敗: %w", err)
	}

	descriptors := make([][]float32, 0, len(faces))
	for _, f := range faces {
		d := make([]float32, len(f.Descriptor))
		copy(d, f.Descriptor[:])
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// Close は認識器のリソースを解放する。
func (e *DlibEncoder) Close() {
	e.rec.Close()
}

// toJPEG は入力画像をJPEGに正規化する。
// go-faceはJPEGのみ扱えるため、PNG/GIFはデコードして再エンコードする。
func toJPEG(data []byte) ([]byte, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if format == "jpeg" {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("JPEGへの変換に失敗: %w", err)
	}
	return buf.Bytes(), nil
}
