package userservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sushihentaime/writtenwork/internal/common"
	"golang.org/x/oauth2"
)

const oauthStateTime = 10 * time.Minute

var (
	ErrOAuthDisabled   = errors.New("oauth sign-in is not configured")
	ErrInvalidState    = errors.New("invalid oauth state")
	ErrUnverifiedEmail = errors.New("the provider has not verified this email")
)

// OAuthProvider is a generic authorization-code provider described entirely by configuration.
type OAuthProvider struct {
	Name        string
	config      *oauth2.Config
	userInfoURL string
	secret      []byte
}

type OAuthConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

type stateClaims struct {
	Next  string `json:"next"`
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

type oauthIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
}

func NewOAuthProvider(cfg OAuthConfig, secret []byte) *OAuthProvider {
	return &OAuthProvider{
		Name: cfg.Name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		secret:      secret,
	}
}

// AuthCodeURL signs next and nonce into the state parameter. The nonce must also be
// stored client side so the callback can bind the state to the browser that started it.
func (p *OAuthProvider) AuthCodeURL(next, nonce string) (string, error) {
	claims := stateClaims{
		Next:  next,
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(oauthStateTime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", err
	}

	return p.config.AuthCodeURL(state), nil
}

// ParseState verifies the state and returns the next path it carries.
func (p *OAuthProvider) ParseState(state, nonce string) (string, error) {
	var claims stateClaims

	_, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if nonce == "" || claims.Nonce != nonce {
		return "", ErrInvalidState
	}

	return claims.Next, nil
}

func (p *OAuthProvider) exchange(ctx context.Context, code string) (*oauthIdentity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("could not exchange code: %w", err)
	}

	res, err := p.config.Client(ctx, token).Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("could not fetch user info: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != 200 {
		return nil, fmt.Errorf("user info returned status %d", res.StatusCode)
	}

	var info map[string]any
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("could not decode user info: %w", err)
	}

	return identityFromUserInfo(info)
}

// identityFromUserInfo accepts both OIDC ("sub") and GitHub style ("id") payloads. A payload
// that reports email_verified as false is rejected; one without the field yields an
// unverified identity.
func identityFromUserInfo(info map[string]any) (*oauthIdentity, error) {
	var id oauthIdentity

	for _, key := range []string{"sub", "id"} {
		switch v := info[key].(type) {
		case string:
			id.Subject = v
		case float64:
			id.Subject = strconv.FormatInt(int64(v), 10)
		}
		if id.Subject != "" {
			break
		}
	}

	id.Email, _ = info["email"].(string)

	if id.Subject == "" || id.Email == "" {
		return nil, errors.New("user info is missing subject or email")
	}

	switch v := info["email_verified"].(type) {
	case bool:
		id.EmailVerified = v
	case string:
		id.EmailVerified, _ = strconv.ParseBool(v)
	case nil:
		return &id, nil
	}

	if !id.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	return &id, nil
}

func (m *DBModel) getIdentityUserID(ctx context.Context, q sqlx.QueryerContext, provider, subject string) (uuid.UUID, error) {
	query := `
		SELECT user_id
		FROM oauth_identities
		WHERE provider = $1 AND subject = $2`

	var id uuid.UUID

	err := q.QueryRowxContext(ctx, query, provider, subject).Scan(&id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return uuid.Nil, common.ErrRecordNotFound
		default:
			return uuid.Nil, err
		}
	}

	return id, nil
}

func (m *DBModel) insertIdentity(ctx context.Context, q sqlx.ExecerContext, provider, subject string, userID uuid.UUID) error {
	query := `
		INSERT INTO oauth_identities (provider, subject, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, subject) DO NOTHING`

	_, err := q.ExecContext(ctx, query, provider, subject, userID)
	return err
}
