package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Veraticus/callguard/internal/common"
	"github.com/Veraticus/callguard/internal/guidance"
	"github.com/Veraticus/callguard/internal/metrics"
	"github.com/Veraticus/callguard/internal/model"
	"github.com/Veraticus/callguard/internal/risk"
	"github.com/Veraticus/callguard/internal/service"
)

// Fixed fallback used whenever the remote classifier cannot produce a result.
const (
	FallbackLevel = model.RiskMedium
	FallbackScore = 50
)

// Classifier turns call transcripts into analysis results using a remote LLM.
type Classifier struct {
	client    Client
	guidance  *guidance.Generator
	cache     *resultCache
	limiter   *rateLimiter
	breaker   *breaker
	logger    *slog.Logger
	now       func() time.Time
	retryOpts service.RetryOptions
	timeout   time.Duration
}

// NewClassifier creates a classifier for the configured provider. A missing
// API key yields common.ErrConfigurationMissing.
func NewClassifier(cfg Config, gen *guidance.Generator, logger *slog.Logger) (*Classifier, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewClassifierWithClient(client, cfg, gen, logger), nil
}

// NewClassifierWithClient wraps an existing client.
func NewClassifierWithClient(client Client, cfg Config, gen *guidance.Generator, logger *slog.Logger) *Classifier {
	if gen == nil {
		gen = guidance.MustDefault()
	}
	if logger == nil {
		logger = slog.Default()
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 2
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = 500 * time.Millisecond
	}

	return &Classifier{
		client:    client,
		guidance:  gen,
		cache:     newResultCache(cfg.CacheTTL),
		limiter:   newRateLimiter(cfg.RateLimit),
		breaker:   newBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		logger:    logger,
		now:       time.Now,
		retryOpts: retryOpts,
		timeout:   cfg.timeout(),
	}
}

// Classify analyzes transcript for locale. An empty transcript returns
// common.ErrInvalidInput; every other failure is logged and replaced by the
// fallback result, so the error is nil.
func (c *Classifier) Classify(ctx context.Context, transcript, locale string) (model.AnalysisResult, error) {
	result, err := c.Assess(ctx, transcript, locale)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, common.ErrInvalidInput) {
		return model.AnalysisResult{}, err
	}

	common.LogError(c.logger, err, "remote classification failed, using fallback", "locale", locale)
	fallback := c.Fallback(locale)
	metrics.ObserveAnalysis(string(fallback.Source), string(fallback.RiskLevel))
	return fallback, nil
}

// Assess runs the remote pipeline and reports failures instead of absorbing
// them. Errors wrap one of common.ErrInvalidInput,
// common.ErrClassifierUnavailable or common.ErrMalformedResponse.
func (c *Classifier) Assess(ctx context.Context, transcript, locale string) (result model.AnalysisResult, err error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return model.AnalysisResult{}, fmt.Errorf("%w: no transcript provided", common.ErrInvalidInput)
	}

	key := cacheKey(transcript, locale)
	if cached, ok := c.cache.get(key); ok {
		c.logger.Debug("cache hit for transcript", "locale", locale)
		cached.Timestamp = c.now()
		return cached, nil
	}

	if !c.breaker.allow() {
		return model.AnalysisResult{}, fmt.Errorf("%w: circuit open after repeated failures", common.ErrClassifierUnavailable)
	}

	start := time.Now()
	defer func() {
		metrics.ObserveClassifierCall(time.Since(start), common.Reason(err))
		if err == nil || errors.Is(err, common.ErrMalformedResponse) {
			c.breaker.success()
		} else {
			c.breaker.failure()
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content, err := c.complete(ctx, Request{
		System: buildSystemPrompt(c.promptLanguage(locale)),
		User:   buildUserPrompt(transcript),
	})
	if err != nil {
		return model.AnalysisResult{}, err
	}

	result, err = c.interpret(content, locale)
	if err != nil {
		c.logger.Debug("unparseable classifier output", "content", truncate(content, 256))
		return model.AnalysisResult{}, err
	}

	c.cache.set(key, result)
	metrics.ObserveAnalysis(string(result.Source), string(result.RiskLevel))
	c.logger.Info("transcript classified",
		"locale", locale,
		"risk_level", result.RiskLevel,
		"risk_score", result.RiskScore,
		"detected", len(result.DetectedIndicators()))

	return result, nil
}

func (c *Classifier) complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrClassifierUnavailable, err)
	}

	var content string
	err := common.WithRetry(ctx, func() error {
		out, err := c.client.Complete(ctx, req)
		if err != nil {
			c.logger.Warn("classifier attempt failed", "error", err)
			if errors.Is(err, common.ErrMalformedResponse) {
				return common.Permanent(err)
			}
			return err
		}
		content = out
		return nil
	}, c.retryOpts)
	if err != nil {
		if errors.Is(err, common.ErrClassifierUnavailable) || errors.Is(err, common.ErrMalformedResponse) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", common.ErrClassifierUnavailable, err)
	}
	return content, nil
}

// interpret parses model output and normalizes it: indicators follow the
// catalog, and level and score are recomputed from the detections.
func (c *Classifier) interpret(content, locale string) (model.AnalysisResult, error) {
	wire, err := parseAnalysis(content)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	claimed, err := model.ParseRiskLevel(wire.RiskLevel)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	dets := reconcile(wire.Indicators)
	level, score := risk.Classify(dets, risk.AuthoritativeZero)
	if claimed != level || int(math.Round(wire.RiskScore)) != score {
		c.logger.Debug("remote banding differs from local banding",
			"claimed_level", claimed,
			"claimed_score", wire.RiskScore,
			"level", level,
			"score", score)
	}

	lines := c.guidance.Guidance(level, locale)
	if claimed == level {
		if remote := cleanLines(wire.Guidance); len(remote) > 0 {
			lines = remote
		}
	}

	return model.AnalysisResult{
		RiskLevel:  level,
		RiskScore:  score,
		Indicators: dets,
		Guidance:   lines,
		Timestamp:  c.now(),
		Source:     model.SourceRemote,
	}, nil
}

func (c *Classifier) promptLanguage(locale string) string {
	code := strings.TrimSpace(locale)
	if code == "" {
		code = c.guidance.DefaultLocale()
	}
	if name := c.guidance.LanguageName(code); name != code {
		return fmt.Sprintf("%s, %s", name, code)
	}
	return code
}

// Fallback returns the fixed result used when the remote classifier fails.
func (c *Classifier) Fallback(locale string) model.AnalysisResult {
	return Fallback(c.guidance, locale, c.now())
}

// Fallback builds the fixed medium/50 result with nothing detected.
func Fallback(gen *guidance.Generator, locale string, at time.Time) model.AnalysisResult {
	if gen == nil {
		gen = guidance.MustDefault()
	}
	return model.AnalysisResult{
		RiskLevel:  FallbackLevel,
		RiskScore:  FallbackScore,
		Indicators: model.EmptyDetections(),
		Guidance:   gen.Guidance(FallbackLevel, locale),
		Timestamp:  at,
		Source:     model.SourceFallback,
	}
}

// Close stops background goroutines and cleans up resources.
func (c *Classifier) Close() error {
	if c.cache != nil {
		c.cache.Close()
	}
	return nil
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
