package provider

import (
	"context"
	"encoding/json"

	"golang.org/x/oauth2"

	"github.com/moimlab/moim/internal/auth/domain"
)

const naverUserInfoURL = "https://openapi.naver.com/v1/nid/me"

var naverEndpoint = oauth2.Endpoint{
	AuthURL:  "https://nid.naver.com/oauth2.0/authorize",
	TokenURL: "https://nid.naver.com/oauth2.0/token",
}

// Naver adapts the Naver member profile API. Naver wraps the profile in a
// response envelope with its own result code.
type Naver struct {
	cfg *oauth2.Config
}

func NewNaver(creds Credentials) *Naver {
	return &Naver{cfg: &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURL,
		Endpoint:     naverEndpoint,
	}}
}

func (n *Naver) Name() domain.Provider { return domain.ProviderNaver }

func (n *Naver) AuthCodeURL(state string) string {
	return n.cfg.AuthCodeURL(state)
}

func (n *Naver) Exchange(ctx context.Context, code string) (domain.Identity, error) {
	tok, err := n.cfg.Exchange(ctx, code)
	if err != nil {
		return domain.Identity{}, err
	}

	body, err := fetchUserInfo(ctx, n.cfg, tok, naverUserInfoURL)
	if err != nil {
		return domain.Identity{}, err
	}

	var payload struct {
		Response struct {
			ID           string `json:"id"`
			Email        string `json:"email"`
			Name         string `json:"name"`
			Nickname     string `json:"nickname"`
			ProfileImage string `json:"profile_image"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Identity{}, err
	}

	name := payload.Response.Name
	if name == "" {
		name = payload.Response.Nickname
	}

	return domain.Identity{
		Provider:  domain.ProviderNaver,
		SubjectID: payload.Response.ID,
		Email:     payload.Response.Email,
		Name:      name,
		AvatarURL: payload.Response.ProfileImage,
	}, nil
}
