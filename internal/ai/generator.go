// Package ai implements the AI Generator (§4.3): a streaming/non-streaming
// wrapper over the provider SDK with model fallback ordering. Grounded on
// the event-accumulation shape of the teacher's internal/engine/llm_client.go
// (chunked reads feeding partial deltas through a callback, retry on
// transient failure) but calling google.golang.org/genai directly instead
// of proxying to an external service, since this core owns AI generation
// itself rather than delegating to a sidecar.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

// MetricsRecorder is the narrow internal/obsv.Metrics slice the Generator
// records latency, token usage, and model-fallback events against.
// Defined locally so ai never imports obsv directly; a nil recorder (the
// zero value of Generator.metrics) simply means metrics are not wired.
type MetricsRecorder interface {
	ObserveAILatency(model, status string, seconds float64)
	AddAITokens(model string, tokens int)
	IncAIModelFallback(model string)
}

// Options configures a single generate call.
type Options struct {
	SystemInstruction string
}

// Result is returned by a completed (non-streaming, or post-stream) call.
type Result struct {
	Final       string
	Tokens      int
	Model       string
	BlockReason string
}

// Partial is one incremental chunk of a streaming response. Text is the
// cumulative text so far, matching the dispatcher's "emit each cumulative
// partial" requirement (§4.6 step 12).
type Partial struct {
	Text string
}

// ErrAllModelsFailed is returned when every model in the fallback order
// fails for a call (§4.3 "On total failure, returns an error").
var ErrAllModelsFailed = errors.New("ai: all models failed")

// errModelNotFound signals a provider "not found" response for the
// attempted model, causing the Generator to prune it for the rest of the
// process (§4.3 "a model is removed from consideration ... if the provider
// reports 'not found'").
var errModelNotFound = errors.New("ai: model not found")

// modelClient is the narrow slice of the genai SDK the Generator drives;
// an interface so tests can substitute a fake without a live API key.
type modelClient interface {
	GenerateContent(ctx context.Context, model string, prompt string, sysInstruction string) (text string, tokens int, err error)
	GenerateContentStream(ctx context.Context, model string, prompt string, sysInstruction string, onPartial func(cumulative string)) (text string, tokens int, err error)
	GenerateWithImage(ctx context.Context, model string, prompt string, imageBytes []byte, mime string) (text string, err error)
}

// Generator is the AI Generator. Its pruned-model set is guarded by its
// own RWMutex (§9 REDESIGN FLAGS: "model as a single-writer update behind
// the AI Generator's own critical section; other components receive the
// effective model via the generator's return value, not by reading the
// shared cell") — a single Generator is shared across every session's
// goroutine, so candidateModels/pruneModel must be safe for concurrent use.
type Generator struct {
	client       modelClient
	defaultModel string
	fallbacks    []string

	mu    sync.RWMutex
	state fallbackState

	metrics MetricsRecorder
}

// WithMetrics attaches a metrics recorder (internal/obsv.Metrics). Returns
// g for chaining at construction time.
func (g *Generator) WithMetrics(metrics MetricsRecorder) *Generator {
	g.metrics = metrics
	return g
}

type fallbackState struct {
	pruned map[string]bool
}

// NewGenerator builds a Generator with the given default model and ordered
// fallback list (provider default, then declared fallbacks, per §4.3).
func NewGenerator(client modelClient, defaultModel string, fallbacks []string) *Generator {
	return &Generator{
		client:       client,
		defaultModel: defaultModel,
		fallbacks:    fallbacks,
		state:        fallbackState{pruned: make(map[string]bool)},
	}
}

func (g *Generator) candidateModels() []string {
	all := append([]string{g.defaultModel}, g.fallbacks...)
	out := make([]string, 0, len(all))
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, m := range all {
		if !g.state.pruned[m] {
			out = append(out, m)
		}
	}
	return out
}

func (g *Generator) pruneModel(model string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.pruned[model] = true
}

// Generate performs a non-streaming call, trying models in fallback order.
func (g *Generator) Generate(ctx context.Context, prompt string, opts Options) (Result, error) {
	for _, model := range g.candidateModels() {
		start := time.Now()
		text, tokens, err := g.client.GenerateContent(ctx, model, prompt, opts.SystemInstruction)
		g.observe(model, err, time.Since(start), tokens)
		if err == nil {
			return Result{Final: text, Tokens: tokens, Model: model}, nil
		}
		if errors.Is(err, errModelNotFound) {
			log.Printf("ai: model %s not found, pruning from fallback order", model)
			g.pruneModel(model)
			continue
		}
		log.Printf("ai: model %s failed: %v", model, err)
	}
	return Result{}, fmt.Errorf("%w", ErrAllModelsFailed)
}

// observe records latency, token usage, and fallback events for one model
// attempt. A no-op when no MetricsRecorder is wired.
func (g *Generator) observe(model string, err error, elapsed time.Duration, tokens int) {
	if g.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, errModelNotFound) {
			g.metrics.IncAIModelFallback(model)
		}
	}
	g.metrics.ObserveAILatency(model, status, elapsed.Seconds())
	if err == nil && tokens > 0 {
		g.metrics.AddAITokens(model, tokens)
	}
}

// GenerateStream performs a streaming call, emitting cumulative partials to
// onPartial as they arrive, trying models in the same fallback order as
// Generate. Every attempt uses the provider's streaming call; a model that
// cannot stream is not retried with the non-streaming call, its error just
// moves on to the next model like any other failure.
func (g *Generator) GenerateStream(ctx context.Context, prompt string, opts Options, onPartial func(Partial)) (Result, error) {
	for _, model := range g.candidateModels() {
		start := time.Now()
		text, tokens, err := g.client.GenerateContentStream(ctx, model, prompt, opts.SystemInstruction, func(cumulative string) {
			onPartial(Partial{Text: cumulative})
		})
		g.observe(model, err, time.Since(start), tokens)
		if err == nil {
			return Result{Final: text, Tokens: tokens, Model: model}, nil
		}
		if errors.Is(err, errModelNotFound) {
			log.Printf("ai: model %s not found, pruning from fallback order", model)
			g.pruneModel(model)
			continue
		}
		log.Printf("ai: streaming with model %s failed: %v", model, err)
	}
	return Result{}, fmt.Errorf("%w", ErrAllModelsFailed)
}

// GenerateWithImage is the vision path (§4.3): a single-shot, non-streaming
// call with the same fallback ordering.
func (g *Generator) GenerateWithImage(ctx context.Context, prompt string, imageBytes []byte, mime string) (Result, error) {
	for _, model := range g.candidateModels() {
		text, err := g.client.GenerateWithImage(ctx, model, prompt, imageBytes, mime)
		if err == nil {
			return Result{Final: text, Model: model}, nil
		}
		if errors.Is(err, errModelNotFound) {
			g.pruneModel(model)
			continue
		}
		log.Printf("ai: vision call with model %s failed: %v", model, err)
	}
	return Result{}, fmt.Errorf("%w", ErrAllModelsFailed)
}

// TruncateWords enforces the caller-side 30-whitespace-token limit,
// appending an ellipsis when truncation occurs (§4.3 "Word-limit
// enforcement").
func TruncateWords(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) <= limit {
		return text
	}
	return strings.Join(words[:limit], " ") + "..."
}

// genaiClient is the modelClient implementation backed by the real SDK.
type genaiClient struct {
	client *genai.Client
}

var _ modelClient = (*genaiClient)(nil)
