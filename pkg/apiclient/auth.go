package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"marketplace/internal/models"
)

type userResponse struct {
	User models.PublicUser `json:"user"`
}

func (c *Client) SignIn(ctx context.Context, email, password string) (models.PublicUser, error) {
	var out userResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	}, &out)

	return out.User, err
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
}

type UsernameCheck struct {
	Username    string   `json:"username"`
	Available   bool     `json:"available"`
	Suggestions []string `json:"suggestions"`
}

func (c *Client) CheckUsername(ctx context.Context, username string) (UsernameCheck, error) {
	var out UsernameCheck
	err := c.do(ctx, http.MethodGet, "/api/auth/check-username?username="+url.QueryEscape(username), nil, &out)

	return out, err
}

type SignupRequest struct {
	Role     models.Role `json:"role"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Username string      `json:"username"`
	Password string      `json:"password"`
}

// Reservation is the server's hold on an unverified signup.
type Reservation struct {
	Email                string      `json:"email"`
	Username             string      `json:"username"`
	Role                 models.Role `json:"role"`
	ReservationExpiresAt time.Time   `json:"reservationExpiresAt"`
	OTPExpiresAt         time.Time   `json:"otpExpiresAt"`
	LastOTPSentAt        *time.Time  `json:"lastOtpSentAt"`
	Cooldown             int         `json:"cooldown"`
}

func (c *Client) RequestOTP(ctx context.Context, req SignupRequest) (Reservation, error) {
	var out Reservation
	err := c.do(ctx, http.MethodPost, "/api/auth/signup/request-otp", req, &out)

	return out, err
}

func (c *Client) ResendOTP(ctx context.Context, email string) (Reservation, error) {
	var out Reservation
	err := c.do(ctx, http.MethodPost, "/api/auth/signup/resend-otp", map[string]string{"email": email}, &out)

	return out, err
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (models.PublicUser, error) {
	var out userResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signup/verify-otp", map[string]string{
		"email": email,
		"otp":   otp,
	}, &out)

	return out.User, err
}

type cooldownResponse struct {
	Message  string `json:"message"`
	Cooldown int    `json:"cooldown"`
}

// ForgotPassword asks for a reset link and returns how long to wait before a resend.
func (c *Client) ForgotPassword(ctx context.Context, email string) (time.Duration, error) {
	return c.sendResetLink(ctx, "/api/auth/forgot-password", email)
}

func (c *Client) ResendPasswordResetEmail(ctx context.Context, email string) (time.Duration, error) {
	return c.sendResetLink(ctx, "/api/auth/resend-password-reset-email", email)
}

func (c *Client) sendResetLink(ctx context.Context, path, email string) (time.Duration, error) {
	var out cooldownResponse
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"email": email}, &out); err != nil {
		return 0, err
	}

	return time.Duration(out.Cooldown) * time.Second, nil
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"token":       token,
		"newPassword": newPassword,
	}, nil)
}

type OAuthSession struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

func (c *Client) OAuthSession(ctx context.Context) (OAuthSession, error) {
	var out OAuthSession
	err := c.do(ctx, http.MethodGet, "/api/auth/get-oauth-session", nil, &out)

	return out, err
}

// CompleteSocialAuth finishes a pending signup from any provider.
func (c *Client) CompleteSocialAuth(ctx context.Context, role models.Role, username string) (models.PublicUser, error) {
	return c.completeSignup(ctx, "/api/auth/complete-social-auth", role, username)
}

func (c *Client) CompleteGoogleSignup(ctx context.Context, role models.Role, username string) (models.PublicUser, error) {
	return c.completeSignup(ctx, "/api/auth/complete-google-signup", role, username)
}

func (c *Client) completeSignup(ctx context.Context, path string, role models.Role, username string) (models.PublicUser, error) {
	var out userResponse
	err := c.do(ctx, http.MethodPost, path, map[string]string{
		"role":     string(role),
		"username": username,
	}, &out)

	return out.User, err
}
