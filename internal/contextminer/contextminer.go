// Package contextminer builds the once-per-run ContextPack the Drafter and
// Refiner work from: symbol/docstring extraction, framework-hint detection,
// and character-budgeted truncation over the target source.
package contextminer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/deepaksaipendyala/quest/internal/model"
)

// DefaultMaxChars bounds the embedded source text when no explicit budget
// is configured.
const DefaultMaxChars = 24000

var (
	defRe   = regexp.MustCompile(`^\s*def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	classRe = regexp.MustCompile(`^\s*class\s+([A-Za-z_][A-Za-z0-9_]*)\s*[:\(]`)
)

// Miner parses target source into a ContextPack.
type Miner struct {
	MaxChars int
}

// New builds a Miner with the given character budget. A non-positive value
// falls back to DefaultMaxChars.
func New(maxChars int) *Miner {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Miner{MaxChars: maxChars}
}

// Mine parses source (the target file's full text) and repoPath (its
// repository-relative location, used only for framework-hint detection)
// into a ContextPack. Mine never fails: a source that can't be scanned
// cleanly still yields a usable pack marked ParseFailed with empty symbols.
func (m *Miner) Mine(repoPath, source string) model.ContextPack {
	symbols, docstrings, parseFailed := extractSymbols(source)
	if parseFailed {
		symbols, docstrings = nil, nil
	}

	pack := model.ContextPack{
		Symbols:        symbols,
		Docstrings:     docstrings,
		FrameworkHints: detectFrameworkHints(repoPath, source),
		ParseFailed:    parseFailed,
	}

	pack.CodeSrc, pack.Truncated = truncatePreservingLines(source, m.MaxChars)
	pack.Summary = summarize(symbols, pack.FrameworkHints)

	return pack
}

// extractSymbols finds top-level function and class names in source order
// and, for each, the first paragraph of its docstring (or "" if absent).
// This is a line-oriented scan rather than a full parser: source with
// unbalanced quotes or indentation the scanner can't make sense of still
// returns whatever symbols were found before the point of confusion, with
// parseFailed set so downstream can note the shortfall.
func extractSymbols(source string) (symbols, docstrings []string, parseFailed bool) {
	lines := strings.Split(source, "\n")
	parseFailed = !balancedTripleQuotes(source)

	for i, line := range lines {
		var name string
		if mm := defRe.FindStringSubmatch(line); mm != nil {
			name = mm[1]
		} else if mm := classRe.FindStringSubmatch(line); mm != nil {
			name = mm[1]
		} else {
			continue
		}
		symbols = append(symbols, name)
		docstrings = append(docstrings, firstDocstringParagraph(lines, i))
	}

	return symbols, docstrings, parseFailed
}

// firstDocstringParagraph returns the first paragraph of the docstring
// immediately following the def/class line at defLineIdx, or "" if the
// next non-blank line isn't a triple-quoted string.
func firstDocstringParagraph(lines []string, defLineIdx int) string {
	for i := defLineIdx + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		quote := ""
		switch {
		case strings.HasPrefix(trimmed, `"""`):
			quote = `"""`
		case strings.HasPrefix(trimmed, `'''`):
			quote = `'''`
		default:
			return ""
		}

		body := strings.TrimPrefix(trimmed, quote)
		if end := strings.Index(body, quote); end >= 0 {
			return strings.TrimSpace(body[:end])
		}

		var paragraph []string
		if body != "" {
			paragraph = append(paragraph, body)
		}
		for j := i + 1; j < len(lines); j++ {
			t := strings.TrimSpace(lines[j])
			if t == "" {
				break
			}
			if end := strings.Index(t, quote); end >= 0 {
				if end > 0 {
					paragraph = append(paragraph, strings.TrimSpace(t[:end]))
				}
				break
			}
			paragraph = append(paragraph, t)
		}
		return strings.TrimSpace(strings.Join(paragraph, " "))
	}
	return ""
}

// balancedTripleQuotes is a cheap syntax-sanity check: an odd count of
// triple-quote delimiters means the scan above may have walked into what it
// thought was code but was actually string contents, or vice versa.
func balancedTripleQuotes(source string) bool {
	return (strings.Count(source, `"""`)+strings.Count(source, `'''`))%2 == 0
}

// detectFrameworkHints infers test-framework conventions from repo path
// tokens and import statements in source.
func detectFrameworkHints(repoPath, source string) []model.FrameworkHint {
	var hints []model.FrameworkHint
	lowerPath := strings.ToLower(repoPath)
	lowerSrc := strings.ToLower(source)

	isDjango := strings.Contains(lowerPath, "django") || strings.Contains(lowerSrc, "from django") || strings.Contains(lowerSrc, "import django")
	usesPytest := strings.Contains(lowerSrc, "import pytest") || strings.Contains(lowerSrc, "from pytest")
	usesUnittest := strings.Contains(lowerSrc, "import unittest") || strings.Contains(lowerSrc, "from unittest")

	switch {
	case isDjango:
		hints = append(hints, model.FrameworkUnittestDjango)
	case usesPytest:
		hints = append(hints, model.FrameworkPytest)
	case usesUnittest:
		hints = append(hints, model.FrameworkUnittestPlain)
	default:
		hints = append(hints, model.FrameworkUnittestPlain)
	}

	return hints
}

// summarize builds a one-line human-readable digest of the pack's contents.
func summarize(symbols []string, hints []model.FrameworkHint) string {
	hintStr := "unittest-plain"
	if len(hints) > 0 {
		hintStr = string(hints[0])
	}
	noun := "symbols"
	if len(symbols) == 1 {
		noun = "symbol"
	}
	return fmt.Sprintf("%d top-level %s, framework hint: %s", len(symbols), noun, hintStr)
}

// truncatePreservingLines truncates source to at most maxChars characters,
// never splitting a line mid-way: it drops whole trailing lines until the
// remaining text fits.
func truncatePreservingLines(source string, maxChars int) (string, bool) {
	if len(source) <= maxChars {
		return source, false
	}

	lines := strings.Split(source, "\n")
	var b strings.Builder
	for _, line := range lines {
		extra := len(line) + 1 // account for the newline this line would add
		if b.Len()+extra > maxChars {
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n"), true
}
