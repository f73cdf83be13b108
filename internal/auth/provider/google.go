package provider

import (
	"context"
	"encoding/json"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/moimlab/moim/internal/auth/domain"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// Google adapts Google's OpenID Connect userinfo endpoint.
type Google struct {
	cfg *oauth2.Config
}

func NewGoogle(creds Credentials) *Google {
	return &Google{cfg: &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}}
}

func (g *Google) Name() domain.Provider { return domain.ProviderGoogle }

func (g *Google) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state)
}

func (g *Google) Exchange(ctx context.Context, code string) (domain.Identity, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return domain.Identity{}, err
	}

	body, err := fetchUserInfo(ctx, g.cfg, tok, googleUserInfoURL)
	if err != nil {
		return domain.Identity{}, err
	}

	var payload struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Identity{}, err
	}

	return domain.Identity{
		Provider:  domain.ProviderGoogle,
		SubjectID: payload.Sub,
		Email:     payload.Email,
		Name:      payload.Name,
		AvatarURL: payload.Picture,
	}, nil
}
