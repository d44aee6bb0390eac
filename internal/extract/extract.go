// Package extract turns raw social-media text into normalized ticker
// symbol counts. Extraction is pure: no I/O, and a malformed item is
// skipped with a warning rather than aborting the batch.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"meme-radar/internal/domain"
)

// Default symbol length bounds, matching typical ticker conventions.
const (
	DefaultMinLength = 3
	DefaultMaxLength = 10
)

// DefaultStoplist contains common uppercase tokens that are not tickers.
// The stoplist is policy, not heuristics: callers can replace it wholesale.
var DefaultStoplist = []string{
	"THE", "AND", "FOR", "NOT", "ARE", "ALL", "NEW", "NOW", "WHO", "WHY",
	"YOU", "CEO", "USA", "USD", "EUR", "ETF", "IMO", "TLDR", "HODL", "DYOR",
	"FOMO", "ATH", "APY", "NFT", "AMA", "LOL", "WTF", "PSA",
}

// Options configures an Extractor.
type Options struct {
	MinLength int      // minimum symbol length (default 3)
	MaxLength int      // maximum symbol length (default 10)
	Stoplist  []string // uppercase tokens excluded from counting
	Logger    zerolog.Logger
}

// Extractor counts candidate ticker symbols in cleaned text.
type Extractor struct {
	pattern  *regexp.Regexp
	stoplist map[string]struct{}
	logger   zerolog.Logger
}

// New creates an Extractor. Returns an error when the length bounds are
// inconsistent.
func New(opts Options) (*Extractor, error) {
	minLen := opts.MinLength
	if minLen == 0 {
		minLen = DefaultMinLength
	}
	maxLen := opts.MaxLength
	if maxLen == 0 {
		maxLen = DefaultMaxLength
	}
	if minLen < 1 || maxLen < minLen {
		return nil, fmt.Errorf("invalid symbol length bounds [%d, %d]", minLen, maxLen)
	}

	// Uppercase alphabetic runs of bounded length, optionally prefixed by
	// a currency sigil. \b on both sides keeps "FOOBARBAZX" from matching
	// a shorter prefix.
	pattern, err := regexp.Compile(fmt.Sprintf(`\$?\b[A-Z]{%d,%d}\b`, minLen, maxLen))
	if err != nil {
		return nil, fmt.Errorf("compile symbol pattern: %w", err)
	}

	stoplist := make(map[string]struct{}, len(opts.Stoplist))
	for _, word := range opts.Stoplist {
		stoplist[strings.ToUpper(word)] = struct{}{}
	}

	return &Extractor{
		pattern:  pattern,
		stoplist: stoplist,
		logger:   opts.Logger,
	}, nil
}

// Extract counts symbol occurrences across all posts. Per-item failures
// are logged and skipped; the batch never aborts.
func (e *Extractor) Extract(posts []domain.Post) domain.SymbolCounts {
	counts := make(domain.SymbolCounts)
	for _, post := range posts {
		text, ok := Sanitize(post.Text)
		if !ok {
			e.logger.Warn().Str("source", post.Source).Msg("skipping post that could not be cleaned")
			continue
		}
		for _, match := range e.pattern.FindAllString(text, -1) {
			symbol := Normalize(match)
			if _, stopped := e.stoplist[symbol]; stopped {
				continue
			}
			counts.Add(symbol, 1)
		}
	}
	return counts
}

// Normalize strips the currency sigil and uppercases a matched token,
// so "$FOO" and "FOO" count as the same symbol.
func Normalize(token string) string {
	return strings.ToUpper(strings.TrimPrefix(token, "$"))
}

// Sanitize repairs invalid UTF-8 and drops non-printable runes. It returns
// false when nothing printable survives a non-empty input. Source adapters
// run it on fetch so downstream stages only see clean text.
func Sanitize(text string) (string, bool) {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if text != "" && strings.TrimSpace(cleaned) == "" {
		return "", false
	}
	return cleaned, true
}
