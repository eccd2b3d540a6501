package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeEmbeddingServer mimics the OpenAI embeddings endpoint with
// deterministic 3-dimensional vectors. failures is the number of initial
// requests answered with a 500 before it starts succeeding.
func fakeEmbeddingServer(t *testing.T, counter *atomic.Int64, failures int64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := counter.Add(1)
		if n <= failures {
			writeAPIError(w, http.StatusInternalServerError, "upstream exploded")
			return
		}

		var body struct {
			Input interface{} `json:"input"`
			Model string      `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var texts []string
		switch v := body.Input.(type) {
		case string:
			texts = []string{v}
		case []interface{}:
			for _, item := range v {
				texts = append(texts, item.(string))
			}
		}

		data := make([]map[string]interface{}, len(texts))
		for i := range texts {
			data[i] = map[string]interface{}{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{0.1, 0.2, 0.3},
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"data":   data,
			"model":  body.Model,
			"usage":  map[string]int{"prompt_tokens": len(texts) * 4, "total_tokens": len(texts) * 4},
		})
	}))
}

func fakeChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]string{"role": "assistant", "content": content},
				},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "server_error",
		},
	})
}

func testProvider(baseURL string, maxRetries int) *OpenAIProvider {
	return NewOpenAIProvider(OpenAIConfig{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		ChatModel:      "test-chat",
		EmbeddingModel: "test-embedding",
		MaxRetries:     maxRetries,
		InitialDelay:   time.Millisecond,
	})
}

func TestOpenAIProvider_EmbedEmpty(t *testing.T) {
	var counter atomic.Int64
	server := fakeEmbeddingServer(t, &counter, 0)
	defer server.Close()

	p := testProvider(server.URL, 1)
	resp, err := p.Embed(context.Background(), NewEmbeddingRequest(nil))
	require.NoError(t, err)
	require.Empty(t, resp.Embeddings())
	require.Zero(t, counter.Load(), "empty input must not hit the API")
}

func TestOpenAIProvider_Embed(t *testing.T) {
	var counter atomic.Int64
	server := fakeEmbeddingServer(t, &counter, 0)
	defer server.Close()

	p := testProvider(server.URL, 1)
	resp, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"a", "b"}))
	require.NoError(t, err)

	embeddings := resp.Embeddings()
	require.Len(t, embeddings, 2)
	require.InDeltaSlice(t, []float64{0.1, 0.2, 0.3}, embeddings[0], 1e-6)
	require.Equal(t, int64(1), counter.Load())
}

func TestOpenAIProvider_EmbedRetriesServerErrors(t *testing.T) {
	var counter atomic.Int64
	server := fakeEmbeddingServer(t, &counter, 2)
	defer server.Close()

	p := testProvider(server.URL, 5)
	resp, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"a"}))
	require.NoError(t, err)
	require.Len(t, resp.Embeddings(), 1)
	require.Equal(t, int64(3), counter.Load(), "two failures then one success")
}

func TestOpenAIProvider_EmbedExhaustsRetries(t *testing.T) {
	var counter atomic.Int64
	server := fakeEmbeddingServer(t, &counter, 100)
	defer server.Close()

	p := testProvider(server.URL, 2)
	_, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"a"}))
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, "embedding", provErr.Operation())
	require.Equal(t, http.StatusInternalServerError, provErr.StatusCode())
	require.Equal(t, int64(3), counter.Load(), "initial attempt plus two retries")
}

func TestOpenAIProvider_EmbedUnsupported(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", ChatModel: "only-chat"})
	require.True(t, p.SupportsTextGeneration())
	require.False(t, p.SupportsEmbedding())

	_, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"a"}))
	require.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestOpenAIProvider_ChatCompletion(t *testing.T) {
	server := fakeChatServer(t, `{"totalPayableINR": 9530}`)
	defer server.Close()

	p := testProvider(server.URL, 1)
	resp, err := p.ChatCompletion(context.Background(), NewChatCompletionRequest([]Message{
		SystemMessage("You are a pricing assistant."),
		UserMessage("Quote this profile."),
	}))
	require.NoError(t, err)
	require.Equal(t, `{"totalPayableINR": 9530}`, resp.Content())
	require.Equal(t, "stop", resp.FinishReason())
	require.Equal(t, 15, resp.Usage().TotalTokens())
}

func TestOpenAIProvider_ChatCompletionUnsupported(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", EmbeddingModel: "only-embed"})

	_, err := p.ChatCompletion(context.Background(), NewChatCompletionRequest(nil))
	require.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestOpenAIProvider_DoesNotRetryClientErrors(t *testing.T) {
	var counter atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		writeAPIError(w, http.StatusBadRequest, "invalid model")
	}))
	defer server.Close()

	p := testProvider(server.URL, 5)
	_, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"a"}))
	require.Error(t, err)
	require.Equal(t, int64(1), counter.Load(), "400s must not be retried")
}

func TestIsRetryable(t *testing.T) {
	require.True(t, isRetryable(errEmbeddingCountMismatch))
	require.False(t, isRetryable(context.Canceled))
}
