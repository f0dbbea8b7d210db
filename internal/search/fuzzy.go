// Package search finds accounts by their display labels and drives the
// interactive picker.
package search

import (
	"sort"
	"strings"

	"github.com/virex/go/internal/account"
)

// Entry is one account as the search engine sees it
type Entry struct {
	// Index is the position in the registry, used for display order and
	// for mutations
	Index   int
	Account account.Account
	Label   string
	User    string
}

// Entries builds search entries for accounts in display order
func Entries(accounts []account.Account) []Entry {
	entries := make([]Entry, len(accounts))
	for i, acc := range accounts {
		label, user := acc.Labels()
		entries[i] = Entry{Index: i, Account: acc, Label: label, User: user}
	}
	return entries
}

// MatchResult represents a search match with scoring information
type MatchResult struct {
	Entry      Entry
	Score      float64
	Highlights []HighlightRange
}

// HighlightRange represents a rune range of the label to highlight
type HighlightRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Engine provides fuzzy search capabilities for accounts
type Engine struct {
	// Configuration options
	maxResults int
}

// NewEngine creates a new fuzzy search engine with default settings
func NewEngine() *Engine {
	return &Engine{
		maxResults: 100,
	}
}

// SetMaxResults sets the maximum number of results to return
func (e *Engine) SetMaxResults(max int) {
	e.maxResults = max
}

// Search scores each entry's label, user label and name against query and
// returns the matches best first. An empty query returns every entry in
// display order.
func (e *Engine) Search(query string, entries []Entry) []MatchResult {
	query = strings.TrimSpace(query)
	if len(query) == 0 {
		// Return all results with score 0 when no query
		results := make([]MatchResult, len(entries))
		for i, entry := range entries {
			results[i] = MatchResult{Entry: entry}
		}
		return e.limitResults(results)
	}

	var matches []MatchResult

	for _, entry := range entries {
		score, highlights := e.scoreMatch(query, entry.Label)

		// User label and name count too, but only the label is highlighted
		for _, other := range []string{entry.User, entry.Account.Name} {
			if s, _ := e.scoreMatch(query, other); s > score {
				score, highlights = s, nil
			}
		}

		if score > 0 {
			matches = append(matches, MatchResult{Entry: entry, Score: score, Highlights: highlights})
		}
	}

	// Sort by score (descending), then keep display order
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Entry.Index < matches[j].Entry.Index
	})

	return e.limitResults(matches)
}

// Best returns the top match for query, if any
func (e *Engine) Best(query string, entries []Entry) (MatchResult, bool) {
	results := e.Search(query, entries)
	if len(results) == 0 {
		return MatchResult{}, false
	}
	return results[0], true
}

// scoreMatch calculates a fuzzy match score between query and target
func (e *Engine) scoreMatch(query, target string) (float64, []HighlightRange) {
	if target == "" {
		return 0.0, nil
	}

	queryNorm := normalizeString(query)
	targetNorm := normalizeString(target)
	queryLen := len([]rune(queryNorm))

	// Exact match gets highest score
	if queryNorm == targetNorm {
		highlights := []HighlightRange{{Start: 0, End: len([]rune(target))}}
		return 100.0, highlights
	}

	// Check for prefix match
	if strings.HasPrefix(targetNorm, queryNorm) {
		highlights := []HighlightRange{{Start: 0, End: queryLen}}
		return 90.0, highlights
	}

	// Check for substring match
	if idx := strings.Index(targetNorm, queryNorm); idx >= 0 {
		runeIdx := len([]rune(targetNorm[:idx]))
		highlights := []HighlightRange{{Start: runeIdx, End: runeIdx + queryLen}}
		score := 80.0 - float64(runeIdx)*2.0 // Prefer matches earlier in the string
		if score < 50.0 {
			score = 50.0
		}
		return score, highlights
	}

	// Fuzzy matching using character-by-character scoring
	return e.fuzzyScore(queryNorm, targetNorm)
}

// fuzzyScore performs character-by-character fuzzy matching
func (e *Engine) fuzzyScore(query, target string) (float64, []HighlightRange) {
	if len(query) == 0 || len(target) == 0 {
		return 0.0, nil
	}

	queryRunes := []rune(query)
	targetRunes := []rune(target)

	// Track matched positions for highlighting
	var matchedPositions []int

	queryPos := 0
	targetPos := 0
	consecutiveMatches := 0
	totalScore := 0.0

	for queryPos < len(queryRunes) && targetPos < len(targetRunes) {
		if queryRunes[queryPos] == targetRunes[targetPos] {
			matchedPositions = append(matchedPositions, targetPos)

			consecutiveMatches++
			// Bonus for consecutive matches
			totalScore += 2.0 + float64(consecutiveMatches)*0.5

			queryPos++
			targetPos++
		} else {
			consecutiveMatches = 0
			targetPos++
		}
	}

	// Check if we matched all query characters
	if queryPos < len(queryRunes) {
		return 0.0, nil
	}

	lengthRatio := float64(len(queryRunes)) / float64(len(targetRunes))
	finalScore := totalScore * lengthRatio * 20.0 // Scale to reasonable range

	// Fuzzy matches stay between the minimum and the substring tier
	if finalScore < 10.0 {
		finalScore = 10.0
	}
	if finalScore > 49.0 {
		finalScore = 49.0
	}

	return finalScore, createHighlights(matchedPositions)
}

// createHighlights converts matched positions into highlight ranges
func createHighlights(positions []int) []HighlightRange {
	if len(positions) == 0 {
		return nil
	}

	var highlights []HighlightRange
	start := positions[0]
	end := positions[0] + 1

	for i := 1; i < len(positions); i++ {
		if positions[i] == positions[i-1]+1 {
			// Consecutive position - extend current range
			end = positions[i] + 1
		} else {
			highlights = append(highlights, HighlightRange{Start: start, End: end})
			start = positions[i]
			end = positions[i] + 1
		}
	}

	return append(highlights, HighlightRange{Start: start, End: end})
}

// normalizeString folds case; matching is always case-insensitive
func normalizeString(s string) string {
	return strings.ToLower(s)
}

// limitResults limits the number of results returned
func (e *Engine) limitResults(results []MatchResult) []MatchResult {
	if e.maxResults <= 0 || len(results) <= e.maxResults {
		return results
	}
	return results[:e.maxResults]
}

// Filter keeps the entries whose account label or user label contains text,
// case-insensitively, in display order
func Filter(text string, entries []Entry) []Entry {
	var out []Entry
	for _, entry := range entries {
		if entry.Account.Matches(text) {
			out = append(out, entry)
		}
	}
	return out
}

// MatchQuality represents the quality of a match
type MatchQuality int

const (
	ExactMatch MatchQuality = iota
	PrefixMatch
	SubstringMatch
	FuzzyMatch
	NoMatch
)

// GetMatchQuality determines the quality of a match
func (e *Engine) GetMatchQuality(query, target string) MatchQuality {
	queryNorm := normalizeString(query)
	targetNorm := normalizeString(target)

	switch {
	case queryNorm == targetNorm:
		return ExactMatch
	case strings.HasPrefix(targetNorm, queryNorm):
		return PrefixMatch
	case strings.Contains(targetNorm, queryNorm):
		return SubstringMatch
	}

	if score, _ := e.fuzzyScore(queryNorm, targetNorm); score > 0 {
		return FuzzyMatch
	}
	return NoMatch
}
