// Package passwords evaluates password strength as independent predicates.
package passwords

import "unicode"

const (
	MinLength = 8

	// MaxBytes is the longest input bcrypt accepts.
	MaxBytes = 72
)

// Checks holds the result of each strength predicate.
type Checks struct {
	MinLength bool `json:"minLength"`
	HasLetter bool `json:"hasLetter"`
	HasDigit  bool `json:"hasDigit"`
	HasSymbol bool `json:"hasSymbol"`
	TooLong   bool `json:"tooLong"`
}

func Evaluate(pw string) Checks {
	var c Checks

	c.MinLength = len([]rune(pw)) >= MinLength
	c.TooLong = len(pw) > MaxBytes

	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			c.HasLetter = true
		case unicode.IsDigit(r):
			c.HasDigit = true
		default:
			c.HasSymbol = true
		}
	}

	return c
}

// OK reports whether all four predicates hold and the password fits bcrypt.
func (c Checks) OK() bool {
	return c.MinLength && c.HasLetter && c.HasDigit && c.HasSymbol && !c.TooLong
}

func Strong(pw string) bool {
	return Evaluate(pw).OK()
}
