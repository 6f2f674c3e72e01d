package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"
)

const snippetLimit = 1024

// HTTPChat calls an OpenAI-compatible /chat/completions endpoint over plain
// HTTP (DeepSeek, OpenRouter, a local gateway, ...).
type HTTPChat struct {
	name    string
	BaseURL string
	APIKey  string
	Model   string
	httpc   *http.Client
}

func NewHTTPChat(name, baseURL, apiKey, model string) *HTTPChat {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	return &HTTPChat{
		name:    name,
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		// Timeout=0: дедлайн задаёт ctx каждой попытки
		httpc: &http.Client{Timeout: 0, Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client (tests, tracing).
func (c *HTTPChat) WithHTTPClient(h *http.Client) *HTTPChat {
	if h != nil {
		c.httpc = h
	}
	return c
}

func (c *HTTPChat) Name() string { return c.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	// некоторые шлюзы отвечают {"response": "..."} или {"result":{"response":"..."}}
	Response string `json:"response"`
	Result   *struct {
		Response string `json:"response"`
	} `json:"result"`
}

func (r chatResponse) text() string {
	for _, ch := range r.Choices {
		if s := strings.TrimSpace(ch.Message.Content); s != "" {
			return s
		}
	}
	if s := strings.TrimSpace(r.Response); s != "" {
		return s
	}
	if r.Result != nil {
		return strings.TrimSpace(r.Result.Response)
	}
	return ""
}

func (c *HTTPChat) Generate(ctx context.Context, p Prompt) (string, error) {
	body := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Temperature: p.Temperature,
		MaxTokens:   p.MaxOutputTokens,
	}
	payload, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", classify(c.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify(c.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{Service: c.name, Kind: FailureStatus, Status: resp.StatusCode, Body: truncate(raw, snippetLimit)}
	}

	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		var out chatResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", &UpstreamError{Service: c.name, Kind: FailureMalformed, Status: resp.StatusCode, Body: truncate(raw, snippetLimit), Err: err}
		}
		if s := out.text(); s != "" {
			return s, nil
		}
	case mt == "text/plain":
		if s := strings.TrimSpace(string(raw)); s != "" {
			return s, nil
		}
	default:
		return "", &UpstreamError{
			Service: c.name, Kind: FailureContentType, Status: resp.StatusCode,
			Body: truncate(raw, snippetLimit), Err: fmt.Errorf("unexpected content type %q", mt),
		}
	}
	return "", &UpstreamError{Service: c.name, Kind: FailureEmpty, Status: resp.StatusCode, Body: truncate(raw, snippetLimit), Err: ErrEmpty}
}
