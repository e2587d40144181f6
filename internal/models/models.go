package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleInfluencer Role = "influencer"
	RoleBrand      Role = "brand"
	RoleManager    Role = "manager"
)

var Roles = []Role{RoleInfluencer, RoleBrand, RoleManager}

func (r Role) Valid() bool {
	switch r {
	case RoleInfluencer, RoleBrand, RoleManager:
		return true
	}
	return false
}

type User struct {
	ID         uuid.UUID
	Role       Role
	Name       string
	Email      string
	Username   string
	PassHash   []byte
	IsVerified bool
	CreatedAt  time.Time
}

// PublicUser is the user as returned to clients.
type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Role     Role      `json:"role"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Role:     u.Role,
		Name:     u.Name,
		Email:    u.Email,
		Username: u.Username,
	}
}

// Claims is the identity carried by the auth_token session cookie.
type Claims struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Reservation is an unconfirmed signup waiting for OTP verification.
type Reservation struct {
	Role          Role      `json:"role"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	PassHash      []byte    `json:"pass_hash"`
	ExpiresAt     time.Time `json:"expires_at"`
	OTPSecret     string    `json:"otp_secret"`
	OTPCounter    uint64    `json:"otp_counter"`
	OTPExpiresAt  time.Time `json:"otp_expires_at"`
	LastOTPSentAt time.Time `json:"last_otp_sent_at"`
	Attempts      int       `json:"attempts"`
}

func (r *Reservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

type PasswordResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *PasswordResetToken) IsUsed() bool {
	return t.UsedAt != nil
}

// OAuthSession is a provider identity that has no local account yet.
type OAuthSession struct {
	ID             string `json:"id"`
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
}

type BrandDetails struct {
	CompanyName string   `json:"companyName,omitempty"`
	Website     string   `json:"website,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	LogoURL     string   `json:"logoUrl,omitempty"`
	Socials     []string `json:"socials,omitempty"`
}

type InfluencerDetails struct {
	Bio            string            `json:"bio,omitempty"`
	Niches         []string          `json:"niches,omitempty"`
	Location       string            `json:"location,omitempty"`
	AvatarURL      string            `json:"avatarUrl,omitempty"`
	Platforms      map[string]string `json:"platforms,omitempty"`
	FollowerCount  int64             `json:"followerCount,omitempty"`
	EngagementRate float64           `json:"engagementRate,omitempty"`
}

type Profile struct {
	UserID            uuid.UUID          `json:"id"`
	Role              Role               `json:"role"`
	Name              string             `json:"name"`
	Email             string             `json:"email"`
	Username          string             `json:"username"`
	BrandDetails      *BrandDetails      `json:"brandDetails,omitempty"`
	InfluencerDetails *InfluencerDetails `json:"influencerDetails,omitempty"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

type CampaignStatus string

const (
	CampaignDraft  CampaignStatus = "draft"
	CampaignActive CampaignStatus = "active"
	CampaignClosed CampaignStatus = "closed"
)

type Campaign struct {
	ID          uuid.UUID       `json:"id"`
	BrandID     uuid.UUID       `json:"brandId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Budget      int64           `json:"budget"`
	Platforms   []string        `json:"platforms"`
	StartDate   *time.Time      `json:"startDate,omitempty"`
	EndDate     *time.Time      `json:"endDate,omitempty"`
	Status      CampaignStatus  `json:"status"`
	Extra       json.RawMessage `json:"extra,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRejected InviteStatus = "rejected"
	InviteExpired  InviteStatus = "expired"
)

func (s InviteStatus) Valid() bool {
	switch s {
	case InvitePending, InviteAccepted, InviteRejected, InviteExpired:
		return true
	}
	return false
}

// CanTransition reports whether an invite may move from s to next. Only pending
// invites move, and only forward.
func (s InviteStatus) CanTransition(next InviteStatus) bool {
	if s != InvitePending {
		return false
	}
	switch next {
	case InviteAccepted, InviteRejected, InviteExpired:
		return true
	}
	return false
}

type Invite struct {
	ID            uuid.UUID    `json:"id"`
	BrandID       uuid.UUID    `json:"brandId"`
	BrandName     string       `json:"brandName"`
	BrandHandle   string       `json:"brandHandle"`
	InfluencerID  uuid.UUID    `json:"influencerId"`
	CampaignID    *uuid.UUID   `json:"campaignId,omitempty"`
	CampaignLabel string       `json:"campaignLabel"`
	Note          string       `json:"note"`
	Status        InviteStatus `json:"status"`
	ExpiresAt     time.Time    `json:"expiresAt"`
	RespondedAt   *time.Time   `json:"respondedAt,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

func (i *Invite) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
