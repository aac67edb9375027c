package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultOllamaModel      = "gpt-oss"
	defaultOllamaEmbedModel = "nomic-embed-text"
	defaultOllamaEmbedDim   = 768
)

type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	embedModel string
	embedDim   int
}

// Ollama API request structure
type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

func NewOllamaClient() (*OllamaClient, error) {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	model := os.Getenv("OLLAMA_MODEL")
	if baseURL == "" {
		return nil, fmt.Errorf("OLLAMA_BASE_URL environment variable not set")
	}
	if model == "" {
		slog.Warn("OLLAMA_MODEL not set, defaulting to " + defaultOllamaModel)
		model = defaultOllamaModel
	}
	embedModel := os.Getenv("OLLAMA_EMBED_MODEL")
	if embedModel == "" {
		embedModel = defaultOllamaEmbedModel
	}
	embedDim := defaultOllamaEmbedDim
	if raw := os.Getenv("OLLAMA_EMBED_DIM"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid OLLAMA_EMBED_DIM %q", raw)
		}
		embedDim = parsed
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	slog.Info("Initializing Ollama client", "base_url", baseURL, "default_model", model, "embed_model", embedModel)
	return &OllamaClient{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseURL,
		model:      model,
		embedModel: embedModel,
		embedDim:   embedDim,
	}, nil
}

// Generate implements the LLMClient interface
func (o *OllamaClient) Generate(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {

	slog.Debug("Generating text via Ollama", "model", o.model)
	generateURL := o.baseURL + "/api/generate"
	options := make(map[string]interface{})
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	} else {
		options["temperature"] = float32(0.2)
	}
	if params.TopK != nil {
		options["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		options["num_predict"] = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		options["stop"] = params.Stop
	}
	payload := ollamaGenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  false,
		Options: options,
	}

	respBodyBytes, err := o.post(ctx, generateURL, payload)
	if err != nil {
		return "", err
	}

	var ollamaResp ollamaGenerateResponse
	if err := json.Unmarshal(respBodyBytes, &ollamaResp); err != nil {
		slog.Error("Failed to parse JSON response from Ollama", "error", err, "response", string(respBodyBytes))
		return "", fmt.Errorf("failed to parse Ollama response: %w", err)
	}

	slog.Debug("Received response from Ollama")
	return ollamaResp.Response, nil
}

// Embed implements the Embedder interface.
// Ollama's embeddings endpoint takes one prompt per call, so inputs are
// embedded sequentially.
func (o *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embedURL := o.baseURL + "/api/embeddings"
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		payload := ollamaEmbeddingRequest{Model: o.embedModel, Prompt: text}
		respBodyBytes, err := o.post(ctx, embedURL, payload)
		if err != nil {
			return nil, err
		}
		var embedResp ollamaEmbeddingResponse
		if err := json.Unmarshal(respBodyBytes, &embedResp); err != nil {
			slog.Error("Failed to parse embedding response from Ollama", "error", err)
			return nil, fmt.Errorf("failed to parse Ollama embedding response: %w", err)
		}
		if len(embedResp.Embedding) == 0 {
			return nil, fmt.Errorf("Ollama returned an empty embedding for model '%s'", o.embedModel)
		}
		out = append(out, embedResp.Embedding)
	}
	return out, nil
}

// Dimension implements the Embedder interface
func (o *OllamaClient) Dimension() int {
	return o.embedDim
}

func (o *OllamaClient) post(ctx context.Context, url string, payload any) ([]byte, error) {
	reqBodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request to Ollama: %w", err)
	}

	// Use NewRequestWithContext to respect context cancellation/timeout
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request to Ollama: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		slog.Error("Ollama API call failed", "error", err)
		return nil, fmt.Errorf("Ollama API call failed: %w", err)
	}
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from Ollama: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			var errResp struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(respBodyBytes, &errResp); err == nil && strings.Contains(errResp.Error, "model") && strings.Contains(errResp.Error, "not found") {
				slog.Warn("Ollama model not found", "model", o.model)
				return nil, fmt.Errorf("model '%s' not found. Please run: 'ollama pull %s'", o.model, o.model)
			}
		}
		slog.Error("Ollama returned an error", "status_code", resp.StatusCode, "response", string(respBodyBytes))
		return nil, fmt.Errorf("Ollama failed with status %d: %s", resp.StatusCode, string(respBodyBytes))
	}
	return respBodyBytes, nil
}
