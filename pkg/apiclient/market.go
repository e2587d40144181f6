package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"marketplace/internal/models"

	"github.com/google/uuid"
)

type profileResponse struct {
	Profile models.Profile `json:"profile"`
}

func (c *Client) Me(ctx context.Context) (models.Profile, error) {
	return c.profile(ctx, "/api/profile/me")
}

func (c *Client) BrandProfile(ctx context.Context) (models.Profile, error) {
	return c.profile(ctx, "/api/profile/brand")
}

func (c *Client) InfluencerProfile(ctx context.Context) (models.Profile, error) {
	return c.profile(ctx, "/api/profile/influencer")
}

func (c *Client) profile(ctx context.Context, path string) (models.Profile, error) {
	var out profileResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out)

	return out.Profile, err
}

// UpdateBrandProfile replaces the brand details wholesale.
func (c *Client) UpdateBrandProfile(ctx context.Context, name string, details models.BrandDetails) (models.Profile, error) {
	var out profileResponse
	err := c.do(ctx, http.MethodPatch, "/api/profile/brand", map[string]any{
		"name":         name,
		"brandDetails": details,
	}, &out)

	return out.Profile, err
}

func (c *Client) UpdateInfluencerProfile(ctx context.Context, name string, details models.InfluencerDetails) (models.Profile, error) {
	var out profileResponse
	err := c.do(ctx, http.MethodPatch, "/api/profile/influencer", map[string]any{
		"name":              name,
		"influencerDetails": details,
	}, &out)

	return out.Profile, err
}

type CampaignRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Budget      int64                 `json:"budget,omitempty"`
	Platforms   []string              `json:"platforms,omitempty"`
	StartDate   *time.Time            `json:"startDate,omitempty"`
	EndDate     *time.Time            `json:"endDate,omitempty"`
	Status      models.CampaignStatus `json:"status,omitempty"`
	Extra       json.RawMessage       `json:"extra,omitempty"`
}

func (c *Client) CreateCampaign(ctx context.Context, req CampaignRequest) (models.Campaign, error) {
	var out struct {
		Campaign models.Campaign `json:"campaign"`
	}
	err := c.do(ctx, http.MethodPost, "/api/campaigns", req, &out)

	return out.Campaign, err
}

func (c *Client) Campaigns(ctx context.Context) ([]models.Campaign, error) {
	var out struct {
		Campaigns []models.Campaign `json:"campaigns"`
	}
	err := c.do(ctx, http.MethodGet, "/api/campaigns", nil, &out)

	return out.Campaigns, err
}

type InviteRequest struct {
	InfluencerUsername string     `json:"influencerUsername"`
	CampaignID         *uuid.UUID `json:"campaignId,omitempty"`
	CampaignLabel      string     `json:"campaignLabel,omitempty"`
	Note               string     `json:"note,omitempty"`
}

// Invite is an invite as the client renders it. Ids are opaque strings.
type Invite struct {
	ID            string              `json:"id"`
	BrandID       string              `json:"brandId"`
	BrandName     string              `json:"brandName"`
	BrandHandle   string              `json:"brandHandle"`
	CampaignLabel string              `json:"campaignLabel"`
	Note          string              `json:"note"`
	Status        models.InviteStatus `json:"status"`
	ExpiresAt     time.Time           `json:"expiresAt"`
	CreatedAt     time.Time           `json:"createdAt"`
}

type inviteResponse struct {
	Message string `json:"message"`
	Invite  Invite `json:"invite"`
}

func (c *Client) CreateInvite(ctx context.Context, req InviteRequest) (Invite, error) {
	var out inviteResponse
	err := c.do(ctx, http.MethodPost, "/api/invites", req, &out)

	return out.Invite, err
}

// Invites lists the signed-in influencer's invites. An empty status lists all.
func (c *Client) Invites(ctx context.Context, status models.InviteStatus) ([]Invite, error) {
	path := "/api/discover/invites"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}

	var out struct {
		Invites []Invite `json:"invites"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)

	return out.Invites, err
}

// RespondInvite accepts or rejects a pending invite and returns the server's message.
func (c *Client) RespondInvite(ctx context.Context, id string, status models.InviteStatus) (Invite, string, error) {
	var out inviteResponse
	err := c.do(ctx, http.MethodPatch, "/api/discover/invites/"+url.PathEscape(id)+"/respond", map[string]string{
		"status": string(status),
	}, &out)

	return out.Invite, out.Message, err
}
