// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"github.com/jeranaias/inkwell/internal/model"
	"github.com/jeranaias/inkwell/internal/vault"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotInitialized indicates the gateway has no usable credential.
// Callers can act on this (prompt for setup) instead of parsing a
// fallback reply.
var ErrNotInitialized = errors.New("model gateway not initialized: run 'inkwell setup'")

// =============================================================================
// TYPES
// =============================================================================

// Message is one turn of a conversation as sent to the model.
type Message struct {
	Role    model.Role
	Content string
}

// UsageRecorder receives token accounting for each successful request.
type UsageRecorder interface {
	RecordUsage(model string, promptTokens, completionTokens int64, elapsed time.Duration)
}

// =============================================================================
// GATEWAY
// =============================================================================

// Gateway owns the OpenAI client and the credential lifecycle. It is
// either initialized (holds a client built from a valid-looking key) or
// not; Complete refuses to run uninitialized and otherwise never
// returns an error, so one failed request cannot wedge a session.
type Gateway struct {
	mu       sync.RWMutex
	client   *openai.Client
	params   RequestParams
	vault    vault.Vault
	limiter  *rate.Limiter
	recorder UsageRecorder
	opts     []option.RequestOption
}

// New creates an uninitialized gateway. Extra request options apply to
// every client the gateway builds; tests use option.WithBaseURL to
// point at a stub server.
func New(v vault.Vault, params RequestParams, opts ...option.RequestOption) *Gateway {
	return &Gateway{
		vault:  v,
		params: params,
		// PERFORMANCE: Soft client-side cap well under account limits
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		opts:    opts,
	}
}

// SetRecorder attaches a usage recorder. Pass nil to disable recording.
func (g *Gateway) SetRecorder(r UsageRecorder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recorder = r
}

// SetParams replaces the request parameters, e.g. after a config
// reload.
func (g *Gateway) SetParams(p RequestParams) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.params = p
}

// Initialize builds the client from the given credential, falling back
// to the vault's stored key when credential is empty. Returns whether
// the gateway is now ready. Never returns an error: a missing key is a
// normal pre-setup state, and the previous client (if any) is replaced
// atomically only on success.
func (g *Gateway) Initialize(credential string) bool {
	key := credential
	if key == "" && g.vault != nil {
		if stored, err := g.vault.Retrieve(vault.KeyOpenAIAPI); err == nil {
			key = stored
		}
	}
	if key == "" {
		return false
	}

	opts := append([]option.RequestOption{option.WithAPIKey(key)}, g.opts...)
	client := openai.NewClient(opts...)

	g.mu.Lock()
	g.client = &client
	g.mu.Unlock()
	return true
}

// Ready reports whether the gateway holds a client.
func (g *Gateway) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.client != nil
}

// Clear drops the client, returning the gateway to its uninitialized
// state. Used when the stored credential is removed.
func (g *Gateway) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.client = nil
}

// Complete sends a conversation to the model and returns the reply
// text. modelOverride, when non-empty, replaces the configured model.
//
// The only error returned is ErrNotInitialized. Transport and API
// failures are logged and yield an empty reply; the caller substitutes
// its fallback text so the conversation survives a bad request.
func (g *Gateway) Complete(ctx context.Context, msgs []Message, modelOverride string) (string, error) {
	g.mu.RLock()
	client := g.client
	params := g.params
	recorder := g.recorder
	g.mu.RUnlock()

	if client == nil {
		return "", ErrNotInitialized
	}

	if err := g.limiter.Wait(ctx); err != nil {
		log.Printf("gateway: rate limit wait aborted: %v", err)
		return "", nil
	}

	req := buildRequest(BuildParams(params, modelOverride), msgs)

	start := time.Now()
	res, err := client.Chat.Completions.New(ctx, req)
	if err != nil {
		log.Printf("gateway: chat completion failed: %v", err)
		return "", nil
	}

	if recorder != nil {
		recorder.RecordUsage(req.Model, res.Usage.PromptTokens, res.Usage.CompletionTokens, time.Since(start))
	}

	if len(res.Choices) == 0 {
		log.Printf("gateway: response contained no choices")
		return "", nil
	}
	return res.Choices[0].Message.Content, nil
}

// buildRequest converts the shaped parameter bag and conversation into
// the SDK request type. Absent keys stay unset on the wire.
func buildRequest(bag map[string]any, msgs []Message) openai.ChatCompletionNewParams {
	req := openai.ChatCompletionNewParams{
		Model:    bag["model"].(string),
		Messages: toParamMessages(msgs),
	}

	if v, ok := bag["temperature"].(float64); ok {
		req.Temperature = openai.Float(v)
	}
	if v, ok := bag["max_tokens"].(int64); ok {
		req.MaxTokens = openai.Int(v)
	}
	if v, ok := bag["max_completion_tokens"].(int64); ok {
		req.MaxCompletionTokens = openai.Int(v)
	}
	if v, ok := bag["top_p"].(float64); ok {
		req.TopP = openai.Float(v)
	}
	if v, ok := bag["frequency_penalty"].(float64); ok {
		req.FrequencyPenalty = openai.Float(v)
	}
	if v, ok := bag["presence_penalty"].(float64); ok {
		req.PresencePenalty = openai.Float(v)
	}

	return req
}

// toParamMessages converts conversation turns to SDK message unions.
// Unknown roles are sent as user turns.
func toParamMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
