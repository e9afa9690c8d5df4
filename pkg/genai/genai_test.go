package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return client, srv
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGenerateText(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "  Rewritten story.  "}},
				},
			}},
		})
	})

	text, err := client.GenerateText(context.Background(), "gemini-2.0-flash", "rewrite this")
	require.NoError(t, err)

	assert.Equal(t, "Rewritten story.", text)
	assert.Equal(t, "/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotReq.Contents, 1)
	require.Len(t, gotReq.Contents[0].Parts, 1)
	assert.Equal(t, "rewrite this", gotReq.Contents[0].Parts[0].Text)
	assert.Nil(t, gotReq.GenerationConfig)
}

func TestGenerateTextErrors(t *testing.T) {
	tests := map[string]struct {
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		"upstream error status": {
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"message":"quota exhausted"}}`,
			wantMsg: "status 429",
		},
		"no candidates": {
			status:  http.StatusOK,
			body:    `{"candidates":[]}`,
			wantErr: ErrEmptyResponse,
		},
		"candidate without text": {
			status:  http.StatusOK,
			body:    `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`,
			wantErr: ErrEmptyResponse,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.GenerateText(context.Background(), "gemini-2.0-flash", "p")
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.wantMsg != "" {
				assert.Contains(t, err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestGenerateImage(t *testing.T) {
	pngBytes := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	var gotReq generateRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{
						{"text": "here is your image"},
						{"inlineData": map[string]any{
							"mimeType": "image/png",
							"data":     base64.StdEncoding.EncodeToString(pngBytes),
						}},
					},
				},
			}},
		})
	})

	img, err := client.GenerateImage(context.Background(), "image-model", "a newsroom at dawn")
	require.NoError(t, err)

	assert.Equal(t, "image/png", img.MIME)
	assert.Equal(t, pngBytes, img.Bytes)
	require.NotNil(t, gotReq.GenerationConfig)
	assert.Equal(t, []string{"TEXT", "IMAGE"}, gotReq.GenerationConfig.ResponseModalities)
}

func TestGenerateImageNoInlineData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sorry, text only"}]}}]}`))
	})

	_, err := client.GenerateImage(context.Background(), "image-model", "p")
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestGenerateImageBadBase64(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"%%%"}}]}}]}`))
	})

	_, err := client.GenerateImage(context.Background(), "image-model", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode inline image")
}

func TestTransportErrorRedactsKey(t *testing.T) {
	client, err := New(Config{APIKey: "sekret-key", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = client.GenerateText(context.Background(), "gemini-2.0-flash", "p")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "sekret-key")
}
