package auth0

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"stackzero/internal/config"
	"stackzero/internal/identity"
)

// Client drives the OAuth2 Authorization Code flow against an Auth0 tenant:
// it builds the authorize redirect, exchanges the returned code for tokens
// and validates the ID token against the tenant's key set.
type Client struct {
	oauth    *oauth2.Config
	tokenURL string
	issuer   string
	client   *http.Client
	keys     *identity.KeySetCache
}

// NewClient wires a client for the given provider settings. The injected
// http.Client bounds the token exchange; key fetches are bounded by the
// cache's own client.
func NewClient(p config.Provider, httpClient *http.Client, keys *identity.KeySetCache) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  p.CallbackURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://" + p.Domain + "/authorize",
				TokenURL: "https://" + p.Domain + "/oauth/token",
			},
			Scopes: []string{"openid", "profile", "email"},
		},
		tokenURL: "https://" + p.Domain + "/oauth/token",
		issuer:   p.Issuer(),
		client:   httpClient,
		keys:     keys,
	}
}

// AuthCodeURL returns the provider authorize URL the browser is redirected
// to: response_type=code, client_id, redirect_uri, scope=openid profile
// email, plus the anti-CSRF state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange posts the authorization code to the token endpoint. The response
// is one of two disjoint shapes: a token set, or an enumerated provider
// error which is returned as *ProviderError. Unknown error codes are
// preserved verbatim inside the ProviderError.
func (c *Client) Exchange(ctx context.Context, code string) (*Token, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.oauth.RedirectURL},
		"client_id":     {c.oauth.ClientID},
		"client_secret": {c.oauth.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("auth0: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth0: token exchange: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("auth0: read token response: %w", err)
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("auth0: decode token response (status %d): %w", resp.StatusCode, err)
	}

	if payload.Code != "" {
		perr := payload.ProviderError
		return nil, &perr
	}

	if payload.IDToken == "" {
		return nil, fmt.Errorf("auth0: token response carries no id_token (status %d)", resp.StatusCode)
	}

	token := payload.Token
	return &token, nil
}

// Authenticate runs the server side of the flow for a callback code: code
// exchange, then ID token validation with this tenant as issuer and the
// client id as audience. A kid unknown to the cached key set triggers one
// key set refresh and one retry; any other failure propagates unchanged.
func (c *Client) Authenticate(ctx context.Context, code string) (*identity.VerifiedIdentity, error) {
	token, err := c.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	keys := c.keys.Current()
	if keys == nil {
		if keys, err = c.keys.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	verified, err := identity.Validate(c.issuer, c.oauth.ClientID, keys, token.IDToken)
	if errors.Is(err, identity.ErrUnknownSigningKey) {
		fresh, refreshErr := c.keys.Refresh(ctx)
		if refreshErr != nil {
			return nil, refreshErr
		}
		verified, err = identity.Validate(c.issuer, c.oauth.ClientID, fresh, token.IDToken)
	}
	if err != nil {
		return nil, err
	}

	return verified, nil
}
