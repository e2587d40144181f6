package reset

import "net/url"

type Status string

const (
	StatusSuccess      Status = "success"
	StatusInvalidToken Status = "invalid-token"
	StatusExpired      Status = "expired"
	StatusUserNotFound Status = "user-not-found"
	StatusError        Status = "error"
	StatusRateLimited  Status = "rate-limited"
)

const (
	ForgotPasswordPath = "/forgot-password"
	ResultPath         = "/reset-password-result"
	SignInPath         = "/signin"
	SignUpPath         = "/signup"
)

type Action struct {
	Label string
	Href  string
}

// View is the fixed presentation for one result status.
type View struct {
	Icon        string
	Title       string
	Description string
	Primary     Action
	Secondary   *Action
}

var backToSignIn = &Action{Label: "Back to sign in", Href: SignInPath}

var views = map[Status]View{
	StatusSuccess: {
		Icon:        "check-circle",
		Title:       "Password Reset Successful",
		Description: "Your password has been updated. You can now sign in with your new password.",
		Primary:     Action{Label: "Sign in", Href: SignInPath},
	},
	StatusInvalidToken: {
		Icon:        "x-circle",
		Title:       "Invalid Reset Link",
		Description: "This password reset link is invalid or has already been used.",
		Primary:     Action{Label: "Request new link", Href: ForgotPasswordPath},
		Secondary:   backToSignIn,
	},
	StatusExpired: {
		Icon:        "clock",
		Title:       "Reset Link Expired",
		Description: "This password reset link has expired. Request a new one to continue.",
		Primary:     Action{Label: "Request new link", Href: ForgotPasswordPath},
		Secondary:   backToSignIn,
	},
	StatusUserNotFound: {
		Icon:        "user-x",
		Title:       "Account Not Found",
		Description: "We could not find the account this reset link belongs to.",
		Primary:     Action{Label: "Create account", Href: SignUpPath},
		Secondary:   backToSignIn,
	},
	StatusError: {
		Icon:        "alert-triangle",
		Title:       "Something Went Wrong",
		Description: "We could not reset your password. Please try again.",
		Primary:     Action{Label: "Try again", Href: ForgotPasswordPath},
		Secondary:   backToSignIn,
	},
	StatusRateLimited: {
		Icon:        "alert-circle",
		Title:       "Too Many Attempts",
		Description: "You have made too many reset attempts. Wait a few minutes and try again.",
		Primary:     Action{Label: "Back to sign in", Href: SignInPath},
	},
}

// ViewFor returns the view for s. Unknown statuses render as StatusError.
func ViewFor(s Status) View {
	if v, ok := views[s]; ok {
		return v
	}
	return views[StatusError]
}

// ParseStatus reads the status query parameter of the result page.
func ParseStatus(raw string) Status {
	s := Status(raw)
	if _, ok := views[s]; ok {
		return s
	}
	return StatusError
}

// ResultURL is the result page for s.
func ResultURL(s Status) string {
	return ResultPath + "?status=" + url.QueryEscape(string(s))
}
