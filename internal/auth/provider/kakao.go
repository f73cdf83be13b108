package provider

import (
	"context"
	"encoding/json"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/moimlab/moim/internal/auth/domain"
)

const kakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"

var kakaoEndpoint = oauth2.Endpoint{
	AuthURL:  "https://kauth.kakao.com/oauth/authorize",
	TokenURL: "https://kauth.kakao.com/oauth/token",
}

// Kakao adapts the Kakao user API. The subject id is numeric and the email
// and profile live under nested kakao_account/properties objects.
type Kakao struct {
	cfg *oauth2.Config
}

func NewKakao(creds Credentials) *Kakao {
	return &Kakao{cfg: &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURL,
		Endpoint:     kakaoEndpoint,
	}}
}

func (k *Kakao) Name() domain.Provider { return domain.ProviderKakao }

func (k *Kakao) AuthCodeURL(state string) string {
	return k.cfg.AuthCodeURL(state)
}

func (k *Kakao) Exchange(ctx context.Context, code string) (domain.Identity, error) {
	tok, err := k.cfg.Exchange(ctx, code)
	if err != nil {
		return domain.Identity{}, err
	}

	body, err := fetchUserInfo(ctx, k.cfg, tok, kakaoUserInfoURL)
	if err != nil {
		return domain.Identity{}, err
	}

	var payload struct {
		ID           int64 `json:"id"`
		KakaoAccount struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname        string `json:"nickname"`
				ProfileImageURL string `json:"profile_image_url"`
			} `json:"profile"`
		} `json:"kakao_account"`
		Properties struct {
			Nickname     string `json:"nickname"`
			ProfileImage string `json:"profile_image"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Identity{}, err
	}

	name := payload.KakaoAccount.Profile.Nickname
	if name == "" {
		name = payload.Properties.Nickname
	}
	avatar := payload.KakaoAccount.Profile.ProfileImageURL
	if avatar == "" {
		avatar = payload.Properties.ProfileImage
	}

	var subject string
	if payload.ID != 0 {
		subject = strconv.FormatInt(payload.ID, 10)
	}

	return domain.Identity{
		Provider:  domain.ProviderKakao,
		SubjectID: subject,
		Email:     payload.KakaoAccount.Email,
		Name:      name,
		AvatarURL: avatar,
	}, nil
}
