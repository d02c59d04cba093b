package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/routeflow/llm"
	"github.com/BaSui01/routeflow/llm/providers"
)

func newTestProvider(baseURL string, mutate func(*Config)) *Provider {
	cfg := Config{
		ProviderName: "testprov",
		APIKey:       "sk-test",
		BaseURL:      baseURL,
		DefaultModel: "test-model",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, nil)
}

func TestNewDefaults(t *testing.T) {
	p := newTestProvider("https://api.example.com", nil)
	assert.Equal(t, "testprov", p.Name())
	assert.Equal(t, "/v1/chat/completions", p.Cfg.EndpointPath)
	assert.Equal(t, "/v1/models", p.Cfg.ModelsEndpoint)
	assert.Equal(t, providers.DefaultTimeout, p.Client.Timeout)
	assert.NotNil(t, p.Logger)
}

func TestCompletion(t *testing.T) {
	t.Run("成功响应", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body providers.OpenAICompatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "test-model", body.Model)
			assert.False(t, body.Stream)

			json.NewEncoder(w).Encode(providers.OpenAICompatResponse{
				ID:    "cmpl-1",
				Model: "test-model",
				Choices: []providers.OpenAICompatChoice{{
					FinishReason: "stop",
					Message:      providers.OpenAICompatRespMessage{Role: "assistant", Content: "hi there"},
				}},
				Usage:   &providers.OpenAICompatUsage{PromptTokens: 2, CompletionTokens: 3, TotalTokens: 5},
				Created: 1700000000,
			})
		}))
		defer srv.Close()

		p := newTestProvider(srv.URL, nil)
		resp, err := p.Completion(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewUserMessage("hi")},
		})
		require.NoError(t, err)
		assert.Equal(t, "hi there", resp.Text())
		assert.Equal(t, "testprov", resp.Provider)
		assert.Equal(t, 5, resp.Usage.TotalTokens)
		assert.Equal(t, time.Unix(1700000000, 0), resp.CreatedAt)
	})

	t.Run("401 映射为认证错误", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
		}))
		defer srv.Close()

		p := newTestProvider(srv.URL, nil)
		_, err := p.Completion(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewUserMessage("hi")},
		})
		var lerr *llm.Error
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, llm.ErrUnauthorized, lerr.Code)
		assert.Equal(t, "testprov", lerr.Provider)
		assert.Contains(t, lerr.Message, "invalid api key")
	})

	t.Run("自定义 header 构建", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "custom-value", r.Header.Get("X-Custom"))
			json.NewEncoder(w).Encode(providers.OpenAICompatResponse{})
		}))
		defer srv.Close()

		p := newTestProvider(srv.URL, func(cfg *Config) {
			cfg.BuildHeaders = func(r *http.Request, apiKey string) {
				providers.BearerTokenHeaders(r, apiKey)
				r.Header.Set("X-Custom", "custom-value")
			}
		})
		_, err := p.Completion(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewUserMessage("hi")},
		})
		require.NoError(t, err)
	})

	t.Run("请求钩子可改写请求体", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body providers.OpenAICompatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, 100, body.MaxTokens)
			json.NewEncoder(w).Encode(providers.OpenAICompatResponse{})
		}))
		defer srv.Close()

		p := newTestProvider(srv.URL, func(cfg *Config) {
			cfg.RequestHook = func(req *llm.ChatRequest, body *providers.OpenAICompatRequest) {
				body.MaxTokens = 100
			}
		})
		_, err := p.Completion(context.Background(), &llm.ChatRequest{
			Messages:  []llm.Message{llm.NewUserMessage("hi")},
			MaxTokens: 99999,
		})
		require.NoError(t, err)
	})

	t.Run("非视觉 Provider 剥离图片片段", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			msgs := body["messages"].([]any)
			first := msgs[0].(map[string]any)
			// 图片被剥离后退化为纯文本 content
			_, isString := first["content"].(string)
			assert.True(t, isString, "expected text-only content after image stripping")
			json.NewEncoder(w).Encode(providers.OpenAICompatResponse{})
		}))
		defer srv.Close()

		p := newTestProvider(srv.URL, nil) // SupportsVision 默认 false
		_, err := p.Completion(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewUserMultipart(llm.ImagePart("aGVsbG8=", "image/png"))},
		})
		require.NoError(t, err)
	})

	t.Run("拒绝 assistant 轮次的端点过滤 assistant 消息", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body providers.OpenAICompatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Messages, 2)
			for _, m := range body.Messages {
				assert.NotEqual(t, "assistant", m.Role)
			}
			json.NewEncoder(w).Encode(providers.OpenAICompatResponse{})
		}))
		defer srv.Close()

		p := newTestProvider(srv.URL, func(cfg *Config) {
			cfg.RejectsAssistantTurns = true
		})
		_, err := p.Completion(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{
				llm.NewUserMessage("first question"),
				llm.NewAssistantMessage("earlier answer"),
				llm.NewUserMessage("follow-up"),
			},
		})
		require.NoError(t, err)
	})
}

func TestStream(t *testing.T) {
	t.Run("SSE 增量与用量", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body providers.OpenAICompatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.True(t, body.Stream)

			w.Header().Set("Content-Type", "text/event-stream")
			w.Write([]byte(`data: {"id":"s-1","model":"test-model","choices":[{"index":0,"delta":{"content":"Hel"}}]}` + "\n\n"))
			w.Write([]byte(`data: {"id":"s-1","model":"test-model","choices":[{"index":0,"delta":{"content":"lo"}}]}` + "\n\n"))
			w.Write([]byte(`data: {"id":"s-1","model":"test-model","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":2,"completion_tokens":2,"total_tokens":4}}` + "\n\n"))
			w.Write([]byte("data: [DONE]\n\n"))
		}))
		defer srv.Close()

		p := newTestProvider(srv.URL, nil)
		ch, err := p.Stream(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewUserMessage("hi")},
		})
		require.NoError(t, err)

		var chunks []llm.StreamChunk
		for c := range ch {
			chunks = append(chunks, c)
		}
		require.Len(t, chunks, 3)
		assert.Equal(t, "Hel", chunks[0].Delta.Content)
		assert.Equal(t, "lo", chunks[1].Delta.Content)
		assert.Equal(t, "stop", chunks[2].FinishReason)
		require.NotNil(t, chunks[2].Usage)
		assert.Equal(t, 4, chunks[2].Usage.TotalTokens)
		for _, c := range chunks {
			assert.Nil(t, c.Err)
			assert.Equal(t, "testprov", c.Provider)
		}
	})

	t.Run("429 在建立流之前返回错误", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down"}}`))
		}))
		defer srv.Close()

		p := newTestProvider(srv.URL, nil)
		_, err := p.Stream(context.Background(), &llm.ChatRequest{
			Messages: []llm.Message{llm.NewUserMessage("hi")},
		})
		var lerr *llm.Error
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, llm.ErrRateLimited, lerr.Code)
		assert.True(t, lerr.Retryable)
	})
}

func TestHealthCheck(t *testing.T) {
	t.Run("200 判健康", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/models", r.URL.Path)
			w.Write([]byte(`{"data":[]}`))
		}))
		defer srv.Close()

		p := newTestProvider(srv.URL, nil)
		status, err := p.HealthCheck(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Healthy)
	})

	t.Run("非 200 判不健康", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		p := newTestProvider(srv.URL, nil)
		status, err := p.HealthCheck(context.Background())
		require.Error(t, err)
		assert.False(t, status.Healthy)
	})
}
