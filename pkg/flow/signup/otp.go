package signup

import "strings"

const OTPLength = 6

// OTPInput models the six single-digit boxes of the code screen.
type OTPInput struct {
	cells [OTPLength]byte
	focus int
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Type handles input into cell i. A single digit fills the cell and moves
// focus forward; a full code is distributed as a paste; an empty value
// clears the cell. Anything else is rejected and leaves the input unchanged.
func (o *OTPInput) Type(i int, s string) bool {
	if i < 0 || i >= OTPLength {
		return false
	}

	switch {
	case s == "":
		o.cells[i] = 0
		o.focus = i
		return true

	case len(s) == 1:
		if !isDigit(s[0]) {
			return false
		}
		o.cells[i] = s[0]
		o.focus = min(i+1, OTPLength-1)
		return true

	default:
		return o.Paste(s)
	}
}

// Backspace clears cell i, or the previous cell when i is already empty.
func (o *OTPInput) Backspace(i int) {
	if i < 0 || i >= OTPLength {
		return
	}

	if o.cells[i] != 0 {
		o.cells[i] = 0
		o.focus = i
		return
	}

	if i > 0 {
		o.cells[i-1] = 0
		o.focus = i - 1
	}
}

// Paste fills every cell from a six-digit string.
func (o *OTPInput) Paste(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != OTPLength {
		return false
	}

	for i := 0; i < OTPLength; i++ {
		if !isDigit(s[i]) {
			return false
		}
	}

	for i := 0; i < OTPLength; i++ {
		o.cells[i] = s[i]
	}
	o.focus = OTPLength - 1

	return true
}

func (o *OTPInput) Cell(i int) string {
	if i < 0 || i >= OTPLength || o.cells[i] == 0 {
		return ""
	}
	return string(o.cells[i])
}

func (o *OTPInput) Focus() int {
	return o.focus
}

func (o *OTPInput) Complete() bool {
	for _, c := range o.cells {
		if c == 0 {
			return false
		}
	}
	return true
}

// Code returns the entered digits, empty cells skipped.
func (o *OTPInput) Code() string {
	var b strings.Builder
	for _, c := range o.cells {
		if c != 0 {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (o *OTPInput) Reset() {
	*o = OTPInput{}
}
