package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avacaato/loop-orchestration/internal/config"
	"github.com/Avacaato/loop-orchestration/internal/llm"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// fakeOllama serves the OpenAI-compatible subset of the Ollama API.
func fakeOllama(t *testing.T, models []string, got *chatRequest) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if got != nil {
			*got = req
		}
		if !HasModel(models, req.Model) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `{"error":{"message":"model %q not found, try pulling it first","type":"api_error"}}`, req.Model)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl-1","object":"chat.completion","model":"llama3.2","choices":[{"index":0,"message":{"role":"assistant","content":"Done. [PHASE_COMPLETE]"},"finish_reason":"stop"}]}`)
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		type model struct {
			ID     string `json:"id"`
			Object string `json:"object"`
		}
		list := struct {
			Object string  `json:"object"`
			Data   []model `json:"data"`
		}{Object: "list"}
		for _, m := range models {
			list.Data = append(list.Data, model{ID: m, Object: "model"})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaGenerate(t *testing.T) {
	var got chatRequest
	srv := fakeOllama(t, []string{"llama3.2:latest"}, &got)
	gen := NewOllama("llama3.2", srv.URL, 5*time.Second)

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "first"},
		{Role: llm.RoleAssistant, Content: "reply"},
	}
	out, err := gen.Generate(context.Background(), "next", "be brief", history)
	require.NoError(t, err)
	assert.Equal(t, "Done. [PHASE_COMPLETE]", out)

	assert.Equal(t, "llama3.2", got.Model)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "be brief", got.Messages[0].Content)
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, "next", got.Messages[3].Content)
}

func TestOllamaModelNotFound(t *testing.T) {
	srv := fakeOllama(t, []string{"mistral:latest"}, nil)
	gen := NewOllama("llama3.2", srv.URL, 5*time.Second)

	_, err := gen.Generate(context.Background(), "hi", "", nil)
	var te *llm.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, llm.KindModelNotFound, te.Kind)
	assert.Equal(t, http.StatusNotFound, te.HTTPStatus)
	assert.Equal(t, llm.RetryClassNonRetryable, llm.ClassifyError(err))
}

func TestUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	gen := NewOllama("llama3.2", url, 2*time.Second)
	_, err := gen.Generate(context.Background(), "hi", "", nil)

	var te *llm.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, llm.KindUnreachable, te.Kind)
	assert.Equal(t, llm.RetryClassRetryable, llm.ClassifyError(err))
}

func TestRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	gen := NewOllama("llama3.2", srv.URL, 50*time.Millisecond)
	_, err := gen.Generate(context.Background(), "hi", "", nil)

	var te *llm.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, llm.KindTimeout, te.Kind)
}

func TestCallerCancellationIsNotWrapped(t *testing.T) {
	srv := fakeOllama(t, []string{"llama3.2"}, nil)
	gen := NewOllama("llama3.2", srv.URL, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gen.Generate(ctx, "hi", "", nil)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

	var te *llm.TransportError
	assert.False(t, errors.As(err, &te))
}

func TestCheck(t *testing.T) {
	srv := fakeOllama(t, []string{"llama3.2:latest", "qwen2.5-coder:7b"}, nil)

	cfg := config.Default(t.TempDir())
	cfg.BaseURL = srv.URL

	h := Check(context.Background(), &cfg)
	assert.True(t, h.OK(), h.Message)
	assert.Equal(t, srv.URL+"/v1", h.Endpoint)

	cfg.Model = "codellama"
	h = Check(context.Background(), &cfg)
	assert.True(t, h.Reachable)
	assert.False(t, h.ModelAvailable)
	assert.Contains(t, h.Message, "ollama pull codellama")

	srv.Close()
	h = Check(context.Background(), &cfg)
	assert.False(t, h.Reachable)
	assert.Contains(t, h.Message, "ollama serve")
}

func TestNewBase(t *testing.T) {
	cfg := config.Default(t.TempDir())

	g, err := NewBase(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIGenerator{}, g)

	cfg.Provider = OpenAI
	_, err = NewBase(&cfg)
	assert.ErrorContains(t, err, "api_key")

	cfg.APIKey = "sk-test"
	g, err = NewBase(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIGenerator{}, g)

	cfg.Provider = Anthropic
	g, err = NewBase(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicGenerator{}, g)

	r, err := New(&cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &llm.Retrying{}, r)
}

func TestAnthropicMessagesMergesRoles(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleSystem, Content: "ignored"},
		{Role: llm.RoleUser, Content: "a"},
		{Role: llm.RoleUser, Content: "b"},
		{Role: llm.RoleAssistant, Content: "c"},
	}
	msgs := anthropicMessages("d", history)
	require.Len(t, msgs, 3)
	assert.Equal(t, "a\n\nb", *msgs[0].Content[0].Text)
	assert.Equal(t, "c", *msgs[1].Content[0].Text)
	assert.Equal(t, "d", *msgs[2].Content[0].Text)
}

func TestExtractErrorMetadata(t *testing.T) {
	status, retry := extractErrorMetadata(errors.New("error, status code: 429, message: slow down, retry-after: 12"))
	assert.Equal(t, 429, status)
	assert.Equal(t, 12*time.Second, retry)

	status, retry = extractErrorMetadata(errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"))
	assert.Zero(t, status)
	assert.Zero(t, retry)
}

func TestHasModel(t *testing.T) {
	models := []string{"llama3.2:latest", "mistral"}
	assert.True(t, HasModel(models, "llama3.2"))
	assert.True(t, HasModel(models, "llama3.2:latest"))
	assert.True(t, HasModel(models, "mistral"))
	assert.False(t, HasModel(models, "llama3"))
}
