// Package usernames normalizes handles and proposes alternatives when a handle
// is already taken.
package usernames

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// SuggestionCount is the number of alternatives Suggest always returns.
	SuggestionCount = 3

	MinLength = 3
	MaxLength = 30

	fallbackBase = "user"
	maxBaseLen   = 24
)

var validRe = regexp.MustCompile(`^[a-z0-9._]{3,30}$`)

// themed suffixes appended to the base handle.
var vocabulary = []string{"official", "hq", "studio", "creates", "live", "daily", "collab", "media"}

// Valid reports whether s is an acceptable handle as stored.
func Valid(s string) bool {
	return validRe.MatchString(s)
}

// Normalize is the form every handle is checked and stored in.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Sanitize lowercases raw and drops every character that is not a letter,
// digit, dot or underscore. An input with nothing usable becomes "user".
func Sanitize(raw string) string {
	var b strings.Builder

	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
		}
	}

	s := strings.Trim(b.String(), "._")
	if len(s) > maxBaseLen {
		s = strings.TrimRight(s[:maxBaseLen], "._")
	}
	if s == "" {
		return fallbackBase
	}

	return s
}

type Generator struct {
	rnd *rand.Rand
	now func() time.Time
}

// NewGenerator returns a Generator seeded from the runtime source.
func NewGenerator() *Generator {
	return &Generator{
		rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
}

// NewGeneratorWith is used when suggestions must be reproducible.
func NewGeneratorWith(rnd *rand.Rand, now func() time.Time) *Generator {
	return &Generator{rnd: rnd, now: now}
}

// Suggest returns exactly SuggestionCount distinct handles derived from raw.
// None of them equals the sanitized base. Calling it again reshuffles.
func (g *Generator) Suggest(raw string) []string {
	base := Sanitize(raw)

	seen := map[string]struct{}{base: {}}
	out := make([]string, 0, SuggestionCount)

	add := func(c string) {
		if c == "" || len(c) > MaxLength {
			return
		}
		if _, dup := seen[c]; dup {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	for attempt := 0; len(out) < SuggestionCount && attempt < 32; attempt++ {
		add(g.candidate(base))
	}

	// the random strategies can collide on tiny vocabularies; fill deterministically.
	for n := 1; len(out) < SuggestionCount; n++ {
		add(base + strconv.Itoa(100+n))
	}

	return out
}

func (g *Generator) candidate(base string) string {
	switch g.rnd.IntN(3) {
	case 0:
		// 2 or 3 digit suffix
		return base + strconv.Itoa(10+g.rnd.IntN(990))
	case 1:
		word := vocabulary[g.rnd.IntN(len(vocabulary))]
		if g.rnd.IntN(2) == 0 {
			return base + "_" + word
		}
		return base + word
	default:
		year := g.now().Year() - g.rnd.IntN(3)
		return base + strconv.Itoa(year)
	}
}
