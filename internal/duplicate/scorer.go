// Package duplicate scores a candidate transaction against a user's recent
// transactions and recommends whether to block, warn about or allow it.
package duplicate

import (
	"sort"
	"time"

	"dailyowo/internal/core"
)

const (
	Block Suggestion = "block"
	Warn  Suggestion = "warn"
	Allow Suggestion = "allow"
)

const (
	DefaultTimeWindowHours = 24
	DefaultMinimumScore    = 75

	blockScore    = 90
	strictCap     = 50
	maxMatches    = 5
	maxTotalScore = 100
)

type Suggestion string

// Options tune the scorer. Zero values fall back to the defaults.
type Options struct {
	TimeWindowHours int  `json:"timeWindowHours"`
	MinimumScore    int  `json:"minimumScore"`
	StrictMode      bool `json:"strictMode"`
}

func DefaultOptions() Options {
	return Options{TimeWindowHours: DefaultTimeWindowHours, MinimumScore: DefaultMinimumScore}
}

func (o Options) withDefaults() Options {
	if o.TimeWindowHours <= 0 {
		o.TimeWindowHours = DefaultTimeWindowHours
	}
	if o.MinimumScore <= 0 {
		o.MinimumScore = DefaultMinimumScore
	}
	return o
}

// Window is the time window as a duration.
func (o Options) Window() time.Duration {
	return time.Duration(o.withDefaults().TimeWindowHours) * time.Hour
}

// Match is one existing transaction that resembles the candidate.
type Match struct {
	Transaction core.Transaction `json:"transaction"`
	Score       int              `json:"score"`
	Rules       []string         `json:"rules"`
	Reasons     []string         `json:"reasons"`
}

type Result struct {
	IsDuplicate bool       `json:"isDuplicate"`
	Confidence  int        `json:"confidence"`
	Matches     []Match    `json:"matches"`
	Suggestion  Suggestion `json:"suggestion"`
	Reasons     []string   `json:"reasons"`
	// Degraded is set when the comparison pool could not be fetched and
	// the result was produced without comparing anything.
	Degraded bool `json:"degraded,omitempty"`
}

// ScorePair sums the points of every rule that fires for a and b, clamped to
// [0, 100]. In strict mode a pair without both an exact amount and the same
// category is capped at 50.
func ScorePair(a, b core.Transaction, strict bool) (score int, fired []string, reasons []string) {
	fired = make([]string, 0, len(rules))
	reasons = make([]string, 0, len(rules))
	for _, r := range rules {
		pts, reason := r.score(a, b)
		if pts <= 0 {
			continue
		}
		score += pts
		fired = append(fired, r.name)
		reasons = append(reasons, reason)
	}
	if score > maxTotalScore {
		score = maxTotalScore
	}
	if strict && !(isExactAmount(a, b) && isSameCategory(a, b)) && score > strictCap {
		score = strictCap
	}
	return score, fired, reasons
}

// Comparable reports whether existing belongs in candidate's comparison pool:
// same owner and type, not deleted, not the candidate itself, and dated
// within the window either side of the candidate.
func Comparable(candidate, existing core.Transaction, window time.Duration) bool {
	if existing.Deleted || existing.UserID != candidate.UserID || existing.Type != candidate.Type {
		return false
	}
	if candidate.ID != "" && existing.ID == candidate.ID {
		return false
	}
	d := candidate.Date.Sub(existing.Date)
	if d < 0 {
		d = -d
	}
	return d <= window
}

// Detect scores candidate against every comparable transaction in pool.
// The best match decides the outcome: 90 or more blocks, MinimumScore or
// more warns, anything else is allowed. Up to five matches are returned,
// best first.
func Detect(candidate core.Transaction, pool []core.Transaction, opts Options) Result {
	opts = opts.withDefaults()
	window := opts.Window()

	matches := make([]Match, 0)
	for _, existing := range pool {
		if !Comparable(candidate, existing, window) {
			continue
		}
		score, fired, reasons := ScorePair(candidate, existing, opts.StrictMode)
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{Transaction: existing, Score: score, Rules: fired, Reasons: reasons})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		di := absDuration(candidate.Date.Sub(matches[i].Transaction.Date))
		dj := absDuration(candidate.Date.Sub(matches[j].Transaction.Date))
		if di != dj {
			return di < dj
		}
		return matches[i].Transaction.ID < matches[j].Transaction.ID
	})
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}

	res := Result{Matches: matches, Suggestion: Allow, Reasons: []string{}}
	if len(matches) == 0 {
		return res
	}
	top := matches[0]
	res.Confidence = top.Score
	res.Reasons = append(res.Reasons, top.Reasons...)
	switch {
	case top.Score >= blockScore:
		res.Suggestion = Block
	case top.Score >= opts.MinimumScore:
		res.Suggestion = Warn
	}
	res.IsDuplicate = res.Suggestion != Allow
	return res
}

// FailOpen is the result used when duplicate detection cannot run.
func FailOpen(reason string) Result {
	return Result{
		Suggestion: Allow,
		Matches:    []Match{},
		Reasons:    []string{reason},
		Degraded:   true,
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
