package ai

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/HammerMeetNail/solutionbase/internal/config"
	"github.com/HammerMeetNail/solutionbase/internal/logging"
)

const (
	// Below this many words the cleaned text is used as its own summary.
	minSummaryWords = 30
	maxSummaryChars = 250
)

// Summarizer produces a short plain-text summary of markdown content.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// NewSummarizer returns the summarizer selected by cfg.AI.SummaryProvider.
// Gemini failures degrade to the local summarizer.
func NewSummarizer(cfg *config.Config) Summarizer {
	local := LocalSummarizer{}
	if cfg == nil || cfg.AI.SummaryProvider != "gemini" {
		return local
	}
	return &fallbackSummarizer{
		primary:  NewGeminiSummarizer(cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel),
		fallback: local,
	}
}

var (
	codeBlockRe  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`[^`\n]*`")
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headerRe     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
)

// CleanMarkdown strips fenced code, inline code, link targets and header
// markers so the remaining prose can be summarized.
func CleanMarkdown(text string) string {
	text = codeBlockRe.ReplaceAllString(text, "")
	text = inlineCodeRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = headerRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// LocalSummarizer truncates cleaned content. It never fails.
type LocalSummarizer struct{}

func (LocalSummarizer) Summarize(_ context.Context, content string) (string, error) {
	cleaned := CleanMarkdown(content)
	if len(strings.Fields(cleaned)) < minSummaryWords {
		return truncateRunes(cleaned, maxSummaryChars), nil
	}
	return truncateWords(cleaned, maxSummaryChars) + "...", nil
}

type fallbackSummarizer struct {
	primary  Summarizer
	fallback Summarizer
}

func (f *fallbackSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	if len(strings.Fields(CleanMarkdown(content))) < minSummaryWords {
		return f.fallback.Summarize(ctx, content)
	}
	summary, err := f.primary.Summarize(ctx, content)
	if err == nil && strings.TrimSpace(summary) != "" {
		return summary, nil
	}
	if err != nil {
		logging.FromContext(ctx).Warn("Summary provider failed, using local summary", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return f.fallback.Summarize(ctx, content)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// truncateWords cuts s to at most n runes without splitting a word, unless
// the first word alone is longer than n.
func truncateWords(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut := []rune(s)[:n]
	if i := strings.LastIndex(string(cut), " "); i > 0 {
		return string(cut)[:i]
	}
	return string(cut)
}
