// Package ai runs model analyses and decodes their JSON replies.
//
// Decoding is lenient about absence: a key that is missing and a key set to
// an explicit JSON null are treated alike and both get the default value.
// Only a present, non-null value of the wrong type fails a review.
package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
)

// Defaults for fields the model left out.
var defaultAnalysis = reviews.Analysis{
	BrandScore:      50,
	ComplianceFlags: []reviews.ComplianceFlag{},
	Sentiment:       "neutral",
	SentimentScore:  0.5,
	OverallRating:   "C",
}

// StripCodeFence removes a markdown fence around the response: the first line
// when the text opens with ```, and the last line when it is only ```.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

// ParseAnalysis decodes the model response into an Analysis. Missing or null
// fields get defaults; present fields of the wrong type are an error.
func ParseAnalysis(raw string) (reviews.Analysis, error) {
	text := StripCodeFence(raw)
	if text == "" {
		return reviews.Analysis{}, errors.New("empty response")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return reviews.Analysis{}, fmt.Errorf("decoding JSON object: %w", err)
	}

	a := defaultAnalysis
	a.ComplianceFlags = []reviews.ComplianceFlag{}

	if v, ok := present(fields, "brand_score"); ok {
		score, err := decodeInt(v)
		if err != nil {
			return reviews.Analysis{}, fmt.Errorf("brand_score: %w", err)
		}
		a.BrandScore = score
	}
	if v, ok := present(fields, "compliance_flags"); ok {
		var flags []reviews.ComplianceFlag
		if err := json.Unmarshal(v, &flags); err != nil {
			return reviews.Analysis{}, fmt.Errorf("compliance_flags: %w", err)
		}
		if flags != nil {
			a.ComplianceFlags = flags
		}
	}
	if v, ok := present(fields, "sentiment_score"); ok {
		if err := json.Unmarshal(v, &a.SentimentScore); err != nil {
			return reviews.Analysis{}, fmt.Errorf("sentiment_score: %w", err)
		}
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"brand_feedback", &a.BrandFeedback},
		{"sentiment", &a.Sentiment},
		{"sentiment_feedback", &a.SentimentFeedback},
		{"suggested_rewrite", &a.SuggestedRewrite},
		{"overall_rating", &a.OverallRating},
		{"summary", &a.Summary},
	}
	for _, f := range strs {
		v, ok := present(fields, f.key)
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return reviews.Analysis{}, fmt.Errorf("%s: %w", f.key, err)
		}
	}
	return a, nil
}

// present treats an explicit JSON null the same as a missing key.
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

func decodeInt(v json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected an integer, got %s", string(v))
	}
	return int(f), nil
}
