package server

import (
	"time"

	"github.com/opentrusty/opentrusty/internal/db/models"
)

// View types shape API responses; secret material never leaves the
// store layer.

type userView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserView(u *models.User) *userView {
	return &userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.EmailOrEmpty(),
		FullName:  u.FullName,
		Phone:     u.Phone,
		Disabled:  u.Disabled,
		CreatedAt: u.CreatedAt,
	}
}

func userViews(users []models.User) ([]userView, []string) {
	views := make([]userView, len(users))
	ids := make([]string, len(users))
	for i := range users {
		views[i] = *newUserView(&users[i])
		ids[i] = users[i].ID
	}
	return views, ids
}

type apiKeyView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	ResourceID string     `json:"resource_id"`
	Prefix     string     `json:"prefix"`
	Decorator  string     `json:"decorator"`
	Disabled   bool       `json:"disabled"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func newAPIKeyView(k *models.APIKey) *apiKeyView {
	return &apiKeyView{
		ID:         k.ID,
		Name:       k.Name,
		ResourceID: k.ResourceID,
		Prefix:     k.Prefix,
		Decorator:  k.Decorator,
		Disabled:   k.Disabled,
		ExpiresAt:  k.ExpiresAt,
		CreatedAt:  k.CreatedAt,
	}
}

type inviteView struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	Email      string    `json:"email"`
	InvitedBy  string    `json:"invited_by"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func newInviteView(inv *models.Invite) *inviteView {
	return &inviteView{
		ID:         inv.ID,
		ResourceID: inv.ResourceID,
		Email:      inv.Email,
		InvitedBy:  inv.InvitedBy,
		ExpiresAt:  inv.ExpiresAt,
		CreatedAt:  inv.CreatedAt,
	}
}

type clientView struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"`
	ClientType   string    `json:"client_type"`
	Name         string    `json:"name"`
	RedirectURIs []string  `json:"redirect_uris"`
	Scopes       []string  `json:"scopes"`
	GrantTypes   []string  `json:"grant_types"`
	ProjectID    *string   `json:"project_id,omitempty"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
}

func newClientView(c *models.OAuthClient) *clientView {
	return &clientView{
		ID:           c.ID,
		ClientID:     c.ClientID,
		ClientType:   c.ClientType,
		Name:         c.Name,
		RedirectURIs: c.RedirectURIs,
		Scopes:       c.AllowedScopes,
		GrantTypes:   c.AllowedGrantTypes,
		ProjectID:    c.ProjectID,
		Disabled:     c.Disabled,
		CreatedAt:    c.CreatedAt,
	}
}
