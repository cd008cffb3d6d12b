package insight

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"nexuserp/backend/internal/cache"
	"nexuserp/backend/internal/metrics"
)

const (
	defaultTimeout  = 20 * time.Second
	defaultCacheTTL = 10 * time.Minute
)

type Engine struct {
	summarizer Summarizer
	cache      cache.InsightCache
	cacheTTL   time.Duration
	timeout    time.Duration
	inflight   singleflight.Group
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEngine(summarizer Summarizer, cacheStore cache.InsightCache, cacheTTL time.Duration, timeout time.Duration, opts ...Option) *Engine {
	if summarizer == nil {
		summarizer = NoopSummarizer{}
	}
	if cacheStore == nil {
		cacheStore = cache.NoopInsightCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	e := &Engine{
		summarizer: summarizer,
		cache:      cacheStore,
		cacheTTL:   cacheTTL,
		timeout:    timeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate never fails: remote errors and empty answers are folded into a
// Result carrying fixed fallback text. Concurrent requests for the same
// prompt share one summarizer call.
func (e *Engine) Generate(ctx context.Context, kind Kind, snap Snapshot) (Result, error) {
	prompt, err := BuildPrompt(kind, snap)
	if err != nil {
		return Result{}, err
	}

	startedAt := time.Now()
	cacheKey := buildCacheKey(kind, prompt)
	if text, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok && text != "" {
		return Result{
			Kind:      kind,
			Text:      text,
			Outcome:   OutcomeSuccess,
			Cached:    true,
			LatencyMS: time.Since(startedAt).Milliseconds(),
		}, nil
	}

	// The shared call must not be cut short because the first caller went away.
	callCtx := context.WithoutCancel(ctx)
	value, _, _ := e.inflight.Do(cacheKey, func() (any, error) {
		return e.call(callCtx, kind, prompt, cacheKey), nil
	})

	result := value.(Result)
	result.LatencyMS = time.Since(startedAt).Milliseconds()
	return result, nil
}

func (e *Engine) call(ctx context.Context, kind Kind, prompt string, cacheKey string) Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	startedAt := time.Now()
	text, err := e.summarizer.Summarize(ctx, prompt)
	elapsed := time.Since(startedAt)
	text = strings.TrimSpace(text)

	var result Result
	switch {
	case err != nil:
		e.logger.Warn("insight generation failed", zap.String("kind", string(kind)), zap.Duration("elapsed", elapsed), zap.Error(err))
		result = Result{Kind: kind, Text: errorText(kind), Outcome: OutcomeError, Err: err}
	case text == "":
		result = Result{Kind: kind, Text: emptyText(kind), Outcome: OutcomeFallback}
	default:
		result = Result{Kind: kind, Text: text, Outcome: OutcomeSuccess}
		if err := e.cache.Set(ctx, cacheKey, text, e.cacheTTL); err != nil {
			e.logger.Warn("insight cache write failed", zap.Error(err))
		}
	}

	e.metrics.ObserveInsight(string(kind), string(result.Outcome), elapsed)
	return result
}

func buildCacheKey(kind Kind, prompt string) string {
	hash := sha1.Sum([]byte(fmt.Sprintf("%s|%s", kind, prompt)))
	return "erp:insight:" + hex.EncodeToString(hash[:])
}
