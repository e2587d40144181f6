package models

const (
	PurposeSignupOTP     = "signup_otp"
	PurposePasswordReset = "password_reset"
)

// Message is the payload published to the mail queue.
type Message struct {
	Email   string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Purpose string `json:"purpose"`
}
