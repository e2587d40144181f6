package passwords

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		pw   string
		want Checks
	}{
		{"", Checks{}},
		{"abc", Checks{HasLetter: true}},
		{"abcdefgh", Checks{MinLength: true, HasLetter: true}},
		{"abcdefg1", Checks{MinLength: true, HasLetter: true, HasDigit: true}},
		{"Abc12345!", Checks{MinLength: true, HasLetter: true, HasDigit: true, HasSymbol: true}},
		{"12345678!", Checks{MinLength: true, HasDigit: true, HasSymbol: true}},
		{"pass word1", Checks{MinLength: true, HasLetter: true, HasDigit: true, HasSymbol: true}},
		{"Abc1!" + strings.Repeat("x", 68), Checks{MinLength: true, HasLetter: true, HasDigit: true, HasSymbol: true, TooLong: true}},
	}

	for _, tt := range tests {
		t.Run(tt.pw, func(t *testing.T) {
			got := Evaluate(tt.pw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want == Checks{MinLength: true, HasLetter: true, HasDigit: true, HasSymbol: true}, got.OK())
		})
	}
}

func TestStrong(t *testing.T) {
	assert.True(t, Strong("Abc12345!"))
	assert.False(t, Strong("Abc1234!"[:7]))

	atLimit := "Abc1!" + strings.Repeat("x", MaxBytes-5)
	assert.True(t, Strong(atLimit))
	assert.False(t, Strong(atLimit+"x"))

	// multi-byte runes count in bytes against the bcrypt limit
	assert.False(t, Strong("Abc1!"+strings.Repeat("é", 34)))
}
