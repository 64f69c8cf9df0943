// Package advisor asks a generative model for short financial tips based on
// the ledger. It never fails: every problem maps to a fixed fallback text.
package advisor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"smartexpense/internal/cache"
	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/metrics"
)

const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
)

const (
	OfflineMessage = "AI insights are offline. Configure an API key to receive personalised financial tips."
	EmptyMessage   = "Keep tracking your expenses to see detailed AI insights here!"
	ErrorMessage   = "Start adding transactions to get AI-powered financial advice."
)

// Outcome labels where a tip came from.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeCached  Outcome = "cached"
	OutcomeEmpty   Outcome = "empty"
	OutcomeError   Outcome = "error"
	OutcomeOffline Outcome = "offline"
)

// Provider generates free text for a prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Tips is the advisory text and how it was produced.
type Tips struct {
	Text    string  `json:"text"`
	Outcome Outcome `json:"outcome"`
}

// Config selects and tunes the provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// NewProvider returns nil when no API key is configured.
func NewProvider(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	switch cfg.Provider {
	case "", "gemini":
		return NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout), nil
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

type Advisor struct {
	provider Provider
	cache    *cache.LRUCache[string]
	timeout  time.Duration
	logger   *log.Logger
}

const cacheSize = 64

// New builds an advisor. A nil provider puts it in offline mode.
func New(provider Provider, timeout, cacheTTL time.Duration, logger *log.Logger) *Advisor {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentAdvisor)
	}
	a := &Advisor{
		provider: provider,
		timeout:  timeout,
		logger:   logger.WithComponent(log.ComponentAdvisor),
	}
	if cacheTTL > 0 {
		a.cache = cache.NewLRUCache[string](cacheSize, cacheTTL)
	}
	return a
}

// Cache exposes the response cache so a janitor can sweep it. It is nil when caching is off.
func (a *Advisor) Cache() *cache.LRUCache[string] { return a.cache }

func (a *Advisor) Online() bool { return a.provider != nil }

func (a *Advisor) providerName() string {
	if a.provider == nil {
		return "none"
	}
	return a.provider.Name()
}

// Tips requests advice for the given ledger and stats.
func (a *Advisor) Tips(ctx context.Context, txs []core.Transaction, stats core.FinancialStats) Tips {
	provider := a.providerName()
	if a.provider == nil {
		metrics.AdvisorRequests.WithLabelValues(provider, string(OutcomeOffline)).Inc()
		return Tips{Text: OfflineMessage, Outcome: OutcomeOffline}
	}

	prompt := BuildPrompt(txs, stats)
	key := cacheKey(provider, prompt)
	if a.cache != nil {
		if text, ok := a.cache.Get(key); ok {
			metrics.AdvisorRequests.WithLabelValues(provider, string(OutcomeCached)).Inc()
			return Tips{Text: text, Outcome: OutcomeCached}
		}
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := a.provider.Generate(ctx, prompt)
	metrics.AdvisorLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		a.logger.WarnContext(ctx, "AI provider call failed",
			log.FieldProvider, provider,
			log.FieldError, err)
		metrics.AdvisorRequests.WithLabelValues(provider, string(OutcomeError)).Inc()
		return Tips{Text: ErrorMessage, Outcome: OutcomeError}
	}
	if text == "" {
		metrics.AdvisorRequests.WithLabelValues(provider, string(OutcomeEmpty)).Inc()
		return Tips{Text: EmptyMessage, Outcome: OutcomeEmpty}
	}

	if a.cache != nil {
		a.cache.Set(key, text)
	}
	metrics.AdvisorRequests.WithLabelValues(provider, string(OutcomeOK)).Inc()
	a.logger.DebugContext(ctx, "AI tips generated", log.FieldProvider, provider, "chars", len(text))
	return Tips{Text: text, Outcome: OutcomeOK}
}

func cacheKey(provider, prompt string) string {
	sum := sha256.Sum256([]byte(provider + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}
