// Package retrieval finds evidence passages for proposal citations.
package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"artbiz_proposal/generator"
)

// ErrUnavailable wraps generator.ErrProviderUnavailable so callers can test
// both collaborators with one errors.Is.
var ErrUnavailable = fmt.Errorf("retrieval: %w", generator.ErrProviderUnavailable)

// Evidence is one retrieved passage.
type Evidence struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"meta"`
}

// Preview returns at most n runes of the passage.
func (e Evidence) Preview(n int) string {
	r := []rune(e.Text)
	if len(r) <= n {
		return e.Text
	}
	return string(r[:n])
}

// Searcher returns up to k passages ranked for query. Fewer than k, or none,
// is a valid result. Filters are equality matches on metadata.
type Searcher interface {
	Search(ctx context.Context, query string, k int, filters map[string]string) ([]Evidence, error)
}

var yearRe = regexp.MustCompile(`(20\d{2})`)

// InferMetadata derives type/year/org from a file name. Latin keywords match
// whole name tokens ("pr" is not found in "proposal"), Hangul ones substrings.
func InferMetadata(filename string, now time.Time) map[string]string {
	low := strings.ToLower(filename)
	name := nameTokens(low)
	meta := map[string]string{
		"filename": filename,
		"type":     "general",
		"org":      "artbiz-org",
		"year":     strconv.Itoa(now.Year()),
	}
	switch {
	case name.hasAny("policy", "규정", "개인정보", "privacy"):
		meta["type"] = "policy"
	case name.hasAny("press", "pr", "보도", "release"):
		meta["type"] = "pr"
	case name.hasAny("proposal", "후원", "제안", "sponsor"):
		meta["type"] = "proposal"
	}
	if m := yearRe.FindString(low); m != "" {
		meta["year"] = m
	}
	switch {
	case name.hasAny("festival", "페스티벌"):
		meta["org"] = "festival-org"
	case name.hasAny("museum", "미술관"):
		meta["org"] = "museum-org"
	case name.hasAny("theatre", "극장"):
		meta["org"] = "theatre-org"
	}
	return meta
}

type tokens struct {
	raw   string
	words []string
}

func nameTokens(low string) tokens {
	return tokens{raw: low, words: strings.FieldsFunc(low, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})}
}

// hasAny: 两个字母的关键词必须整词命中，更长的允许作词头（sponsorship、proposals）。
func (t tokens) hasAny(keywords ...string) bool {
	for _, kw := range keywords {
		if !isASCII(kw) {
			if strings.Contains(t.raw, kw) {
				return true
			}
			continue
		}
		for _, w := range t.words {
			if w == kw || (len(kw) > 2 && strings.HasPrefix(w, kw)) {
				return true
			}
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func matchFilters(meta, filters map[string]string) bool {
	for k, v := range filters {
		if meta[k] != v {
			return false
		}
	}
	return true
}
