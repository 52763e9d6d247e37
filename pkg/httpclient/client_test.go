package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// testRequest はテストサーバーが受け取ったリクエスト情報を保持する構造体。
type testRequest struct {
	// Method はHTTPメソッド。
	Method string
	// Path はリクエストパス。
	Path string
	// Body はリクエストボディ。
	Body []byte
	// Headers はリクエストヘッダー。
	Headers http.Header
}

// testPayload はテスト用のリクエスト/レスポンスペイロード。
type testPayload struct {
	// Name はテスト用の名前フィールド。
	Name string `json:"name"`
	// Value はテスト用の値フィールド。
	Value int `json:"value"`
}

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("クライアントが正常に生成されること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080")
		if client == nil {
			t.Fatal("New()がnilを返した")
		}
		if client.baseURL != "http://localhost:8080" {
			t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:8080")
		}
		if client.httpClient == nil {
			t.Fatal("httpClientがnil")
		}
	})

	t.Run("タイムアウトが30秒に設定されていること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080")
		if client.httpClient.Timeout.Seconds() != 30 {
			t.Errorf("Timeout = %v, want 30s", client.httpClient.Timeout)
		}
	})
}

// TestNewWithTimeout はタイムアウト指定付きのクライアント生成を検証する。
func TestNewWithTimeout(t *testing.T) {
	t.Parallel()

	client := NewWithTimeout("http://localhost:8080", 5*time.Second)
	if client.httpClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.httpClient.Timeout)
	}
}

// TestPostJSON はPostJSON関数を検証する。
func TestPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("正常にPOSTリクエストを送信してレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received.Method = r.Method
			received.Path = r.URL.Path
			received.Body, _ = io.ReadAll(r.Body)
			received.Headers = r.Header

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(testPayload{Name: "response", Value: 200})
		}))
		defer ts.Close()

		client := New(ts.URL)
		body := testPayload{Name: "request", Value: 100}
		var result testPayload

		err := client.PostJSON(context.Background(), "/api/events", body, &result)
		if err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}

		// リクエストの検証
		if received.Method != http.MethodPost {
			t.Errorf("Method = %q, want %q", received.Method, http.MethodPost)
		}
		if received.Path != "/api/events" {
			t.Errorf("Path = %q, want %q", received.Path, "/api/events")
		}

		// リクエストボディの検証
		var sentBody testPayload
		if err := json.Unmarshal(received.Body, &sentBody); err != nil {
			t.Fatalf("リクエストボディのパースに失敗: %v", err)
		}
		if sentBody.Name != "request" || sentBody.Value != 100 {
			t.Errorf("リクエストボディ = %+v, want {request 100}", sentBody)
		}

		// レスポンスの検証
		if result.Name != "response" || result.Value != 200 {
			t.Errorf("レスポンス = %+v, want {response 200}", result)
		}
	})

	t.Run("エラーレスポンスの場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		client := New(ts.URL)
		if err := client.PostJSON(context.Background(), "/fail", nil, nil); err == nil {
			t.Error("エラーが期待されたがnilが返った")
		}
	})
}

// TestGetJSON はGetJSON関数を検証する。
func TestGetJSON(t *testing.T) {
	t.Parallel()

	t.Run("正常にGETリクエストを送信してレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("Method = %q, want %q", r.Method, http.MethodGet)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(testPayload{Name: "item", Value: 42})
		}))
		defer ts.Close()

		client := New(ts.URL)
		var result testPayload
		if err := client.GetJSON(context.Background(), "/api/items/1", &result); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}
		if result.Name != "item" || result.Value != 42 {
			t.Errorf("レスポンス = %+v, want {item 42}", result)
		}
	})
}

// TestDeleteJSON はDeleteJSON関数を検証する。
func TestDeleteJSON(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Method = %q, want %q", r.Method, http.MethodDelete)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"removed_count": 3})
	}))
	defer ts.Close()

	client := New(ts.URL)
	var result map[string]int
	if err := client.DeleteJSON(context.Background(), "/api/v1/notifications/cleanup?days=30", &result); err != nil {
		t.Fatalf("DeleteJSON()でエラーが発生: %v", err)
	}
	if result["removed_count"] != 3 {
		t.Errorf("removed_count = %d, want 3", result["removed_count"])
	}
}

// TestGetBytes はGetBytes関数を検証する。
func TestGetBytes(t *testing.T) {
	t.Parallel()

	t.Run("レスポンスボディをそのまま取得できること", func(t *testing.T) {
		t.Parallel()

		raw := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(raw)
		}))
		defer ts.Close()

		client := New(ts.URL)
		got, err := client.GetBytes(context.Background(), "/snapshot.jpg")
		if err != nil {
			t.Fatalf("GetBytes()でエラーが発生: %v", err)
		}
		if string(got) != string(raw) {
			t.Errorf("レスポンスボディが一致しない: got %v, want %v", got, raw)
		}
	})

	t.Run("エラーレスポンスの場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		client := New(ts.URL)
		if _, err := client.GetBytes(context.Background(), "/snapshot.jpg"); err == nil {
			t.Error("エラーが期待されたがnilが返った")
		}
	})
}

// TestSetAuthToken はBearerトークンの付与を検証する。
func TestSetAuthToken(t *testing.T) {
	t.Parallel()

	t.Run("設定したトークンがAuthorizationヘッダーに付与されること", func(t *testing.T) {
		t.Parallel()

		var gotAuth string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		client := New(ts.URL)
		client.SetAuthToken("service-token")
		if err := client.PostJSON(context.Background(), "/api", nil, nil); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if gotAuth != "Bearer service-token" {
			t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer service-token")
		}
	})

	t.Run("トークン未設定の場合はAuthorizationヘッダーを付与しないこと", func(t *testing.T) {
		t.Parallel()

		var gotAuth string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		client := New(ts.URL)
		if err := client.PostJSON(context.Background(), "/api", nil, nil); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if gotAuth != "" {
			t.Errorf("Authorization = %q, want 空", gotAuth)
		}
	})
}

// TestWithUserID はコンテキスト経由のユーザーID伝播を検証する。
func TestWithUserID(t *testing.T) {
	t.Parallel()

	var gotUserID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = r.Header.Get("X-User-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := New(ts.URL)
	ctx := WithUserID(context.Background(), "user-1")
	if err := client.PostJSON(ctx, "/api", nil, nil); err != nil {
		t.Fatalf("PostJSON()でエラーが発生: %v", err)
	}
	if gotUserID != "user-1" {
		t.Errorf("X-User-ID = %q, want user-1", gotUserID)
	}
}
