// Package google runs the Google OAuth2 authorization-code flow and turns the
// result into a verified external profile.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/trainhub/auth-service/internal/core/domain"
	"github.com/trainhub/auth-service/internal/core/ports"
)

const (
	ProviderName = "google"

	defaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	defaultPeopleURL   = "https://people.googleapis.com/v1/people/me?personFields=birthdays,genders"
	requestTimeout     = 10 * time.Second
)

var scopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/user.birthday.read",
	"https://www.googleapis.com/auth/user.gender.read",
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Overrides for tests; zero values use Google's endpoints.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	PeopleURL   string
	HTTPClient  *http.Client
}

type Provider struct {
	oauth       *oauth2.Config
	userInfoURL string
	peopleURL   string
	httpClient  *http.Client
	log         zerolog.Logger
}

var _ ports.IdentityProvider = (*Provider)(nil)

func New(cfg Config, log zerolog.Logger) *Provider {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = endpoints.Google
	}
	p := &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		peopleURL:   cfg.PeopleURL,
		httpClient:  cfg.HTTPClient,
		log:         log,
	}
	if p.userInfoURL == "" {
		p.userInfoURL = defaultUserInfoURL
	}
	if p.peopleURL == "" {
		p.peopleURL = defaultPeopleURL
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: requestTimeout}
	}
	return p
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades code for tokens, then reads the OpenID userinfo and, best
// effort, the People API birthday and gender.
func (p *Provider) Exchange(ctx context.Context, code string) (*domain.ExternalProfile, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", domain.ErrUnauthenticated)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, fmt.Errorf("%w: google rejected the authorization code", domain.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("google token exchange: %w", err)
	}
	client := p.oauth.Client(ctx, tok)

	info, err := p.userInfo(ctx, client)
	if err != nil {
		return nil, err
	}
	if info.Sub == "" || info.Email == "" {
		return nil, domain.ErrMissingIdentity
	}
	if !info.EmailVerified {
		return nil, fmt.Errorf("%w: google email is not verified", domain.ErrUnauthenticated)
	}

	profile := &domain.ExternalProfile{
		Provider:    ProviderName,
		ExternalID:  info.Sub,
		Email:       info.Email,
		DisplayName: info.Name,
	}

	extra, err := p.people(ctx, client)
	if err != nil {
		p.log.Warn().Err(err).Msg("google people lookup failed, continuing without birthday and gender")
		return profile, nil
	}
	profile.Gender = extra.gender()
	profile.DateOfBirth = extra.birthday()
	return profile, nil
}

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (p *Provider) userInfo(ctx context.Context, client *http.Client) (*userInfo, error) {
	var info userInfo
	if err := getJSON(ctx, client, p.userInfoURL, &info); err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	return &info, nil
}

type googleDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type person struct {
	Birthdays []struct {
		Date *googleDate `json:"date"`
	} `json:"birthdays"`
	Genders []struct {
		Value string `json:"value"`
	} `json:"genders"`
}

func (p *Provider) people(ctx context.Context, client *http.Client) (*person, error) {
	var out person
	if err := getJSON(ctx, client, p.peopleURL, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (ps *person) gender() string {
	for _, g := range ps.Genders {
		if v := strings.TrimSpace(g.Value); v != "" {
			return v
		}
	}
	return ""
}

// birthday returns the first complete date. Google hides the year on some
// accounts; a date without one is not a date of birth.
func (ps *person) birthday() *time.Time {
	for _, b := range ps.Birthdays {
		d := b.Date
		if d == nil || d.Year == 0 || d.Month < 1 || d.Month > 12 || d.Day < 1 {
			continue
		}
		t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
		if t.Day() != d.Day {
			continue
		}
		return &t
	}
	return nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
