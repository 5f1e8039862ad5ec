package ai

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync"
	"time"

	"github.com/bryanwahyu/copyguard/internal/domain/ai"
	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
	"github.com/bryanwahyu/copyguard/internal/infra/ai/prompt"
)

// DefaultTimeout bounds one model call when the caller configures none.
const DefaultTimeout = 120 * time.Second

const promptCacheSize = 16

// Service is the analysis engine: prompt, model call, parse, defaults.
// Safe for concurrent use.
type Service struct {
	client  ai.Model
	timeout time.Duration

	mu      sync.Mutex
	prompts map[[sha256.Size]byte]string
}

func NewService(client ai.Model, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		client:  client,
		timeout: timeout,
		prompts: make(map[[sha256.Size]byte]string),
	}
}

// Result is a parsed analysis plus the raw text the model produced.
type Result struct {
	Analysis reviews.Analysis
	Raw      string
}

// Analyze runs one review through the model. Failures are *ai.AnalysisError.
func (s *Service) Analyze(ctx context.Context, content string, contentType reviews.ContentType, guidelines string) (Result, error) {
	system := s.systemPrompt(guidelines)
	user := prompt.GetUserPrompt(string(contentType), content)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Complete(callCtx, system, user)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return Result{}, &ai.AnalysisError{Kind: ai.KindTimeout, Err: err}
		}
		return Result{}, &ai.AnalysisError{Kind: ai.KindUpstream, Err: err}
	}

	a, err := ParseAnalysis(raw)
	if err != nil {
		return Result{}, &ai.AnalysisError{Kind: ai.KindMalformed, Err: err, Raw: raw}
	}
	return Result{Analysis: a, Raw: raw}, nil
}

func (s *Service) systemPrompt(guidelines string) string {
	key := sha256.Sum256([]byte(guidelines))

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.prompts[key]; ok {
		return p
	}
	if len(s.prompts) >= promptCacheSize {
		clear(s.prompts)
	}
	p := prompt.GetSystemPrompt(guidelines)
	s.prompts[key] = p
	return p
}
