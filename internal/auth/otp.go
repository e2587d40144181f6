package auth

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

var otpOpts = hotp.ValidateOpts{
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// newOTPSecret returns a fresh base32 HOTP secret for one reservation.
func newOTPSecret() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth.newOTPSecret: %w", err)
	}

	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// otpCode derives the code for the counter. Each resend bumps the counter,
// so earlier codes stop validating.
func otpCode(secret string, counter uint64) (string, error) {
	return hotp.GenerateCodeCustom(secret, counter, otpOpts)
}

func otpValid(code, secret string, counter uint64) bool {
	ok, err := hotp.ValidateCustom(code, counter, secret, otpOpts)
	return err == nil && ok
}
