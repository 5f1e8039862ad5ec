package prompt

import (
	"fmt"
	"strings"
	"unicode"
)

const systemTemplate = `You are a senior marketing communications expert and brand compliance specialist.

Your job is to review marketing content and return a thorough analysis as valid JSON.

%s

Evaluate content on three dimensions:
1. **Brand Voice** - Does the content match the brand's tone, language, and identity?
2. **Compliance** - Are there legal risks, unsubstantiated claims, missing disclosures, or prohibited language?
3. **Sentiment & Effectiveness** - Is the messaging compelling, clear, and emotionally resonant?

Return ONLY valid JSON matching this exact schema (no markdown, no explanation):
{
  "brand_score": <integer 0-100>,
  "brand_feedback": "<2-3 sentences on brand alignment>",
  "compliance_flags": [
    {
      "text": "<exact quoted phrase from content>",
      "issue": "<clear description of the problem>",
      "severity": "high|medium|low",
      "suggestion": "<specific corrected phrasing>"
    }
  ],
  "sentiment": "positive|neutral|negative",
  "sentiment_score": <float 0.0-1.0>,
  "sentiment_feedback": "<1-2 sentences on tone and emotional impact>",
  "suggested_rewrite": "<full improved version of the content>",
  "overall_rating": "A|B|C|D|F",
  "summary": "<2-3 sentence overall assessment>"
}

If there are no compliance flags, return an empty array. Be specific and actionable.`

const noGuidelines = "No specific brand guidelines have been configured. " +
	"Apply general best practices for professional marketing communications."

// GetSystemPrompt embeds the rubric, the guidelines (or the generic fallback)
// and the output schema.
func GetSystemPrompt(guidelines string) string {
	section := noGuidelines
	if g := strings.TrimSpace(guidelines); g != "" {
		section = "## Brand Guidelines\n\n" + g +
			"\n\nUse these guidelines as the primary reference for brand voice scoring."
	}
	return fmt.Sprintf(systemTemplate, section)
}

// GetUserPrompt labels the content type and appends the raw content.
func GetUserPrompt(contentType, content string) string {
	return fmt.Sprintf("Content Type: %s\n\nContent to Review:\n\n%s", ContentTypeLabel(contentType), content)
}

var labels = map[string]string{
	"social_media": "Social Media Post",
	"blog":         "Blog / Website Copy",
	"email":        "Email Campaign",
	"ad_copy":      "Ad Copy",
}

// ContentTypeLabel maps a content type to its human label. Unknown types
// have underscores replaced by spaces and every letter run title-cased,
// so "ad-copy" becomes "Ad-Copy".
func ContentTypeLabel(contentType string) string {
	if l, ok := labels[contentType]; ok {
		return l
	}
	var b strings.Builder
	prevLetter := false
	for _, r := range strings.ReplaceAll(contentType, "_", " ") {
		if prevLetter {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(unicode.ToUpper(r))
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}
