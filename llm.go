package flowens

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/body"
)

// TextCompleter answers a single prompt with a single text completion.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// HTTPCompleter speaks the OpenAI-compatible chat completion endpoint most
// hosted and local model servers expose.
type HTTPCompleter struct {
	cli    *gentleman.Client
	apiKey string
	model  string
}

func NewHTTPCompleter(baseUrl, apiKey, model string) *HTTPCompleter {
	return &HTTPCompleter{
		cli:    gentleman.New().URL(baseUrl),
		apiKey: apiKey,
		model:  model,
	}
}

func (h *HTTPCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	req := h.cli.Post()
	req.Path("/v1/chat/completions")
	if h.apiKey != "" {
		req.SetHeader("Authorization", "Bearer "+h.apiKey)
	}
	req.Use(body.JSON(map[string]interface{}{
		"model": h.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0,
	}))
	resp, err := req.Send()
	if err != nil {
		return "", err
	}
	defer resp.Close()
	if !resp.Ok {
		return "", fmt.Errorf("completion request failed; http code: %d, errMsg:%s", resp.StatusCode, resp.String())
	}
	content := gjson.Get(resp.String(), "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("completion response missing content: %s", resp.String())
	}
	return content.String(), nil
}

// FallbackCompleter tries each completer in order and returns the first
// success. Order is priority.
type FallbackCompleter struct {
	completers []TextCompleter
}

func NewFallbackCompleter(completers ...TextCompleter) *FallbackCompleter {
	return &FallbackCompleter{completers: completers}
}

func (f *FallbackCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	for _, cc := range f.completers {
		result, err := cc.Complete(ctx, prompt)
		if err != nil {
			log.Warn("completer failed, trying next", "err", err)
			continue
		}
		return result, nil
	}
	return "", ErrNoCompleterMatched
}
