package ghprofile

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// TokenSet is the result of a token exchange. It is handed to the caller for
// persistence; this package never stores it.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// User is the authenticated GitHub profile, with the best available email
// address filled in from the account's email list.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
	Email     string `json:"email"`
}

type userEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// AuthorizeURL builds the GitHub authorization redirect URL for the given
// handshake state.
func (c *Client) AuthorizeURL(state string) (string, error) {
	if state == "" {
		return "", &ConfigurationError{Msg: "authorize URL requires a state token"}
	}
	return c.oauthConfig().AuthCodeURL(state, oauth2.SetAuthURLParam("allow_signup", "true")), nil
}

// ExchangeCode posts the authorization code to GitHub's token endpoint and
// returns the resulting token set.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	if code == "" {
		return nil, &OAuthError{Status: http.StatusBadRequest, Msg: "missing authorization code"}
	}

	data := url.Values{}
	data.Set("client_id", c.config.ClientID)
	data.Set("client_secret", c.config.ClientSecret)
	data.Set("code", code)
	data.Set("redirect_uri", c.config.RedirectURL)
	return c.postToken(ctx, data)
}

// ExchangeRefreshToken trades a refresh token for a fresh token set. GitHub
// issues refresh tokens only for apps with token expiration enabled.
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if refreshToken == "" {
		return nil, &OAuthError{Status: http.StatusBadRequest, Msg: "missing refresh token"}
	}

	data := url.Values{}
	data.Set("client_id", c.config.ClientID)
	data.Set("client_secret", c.config.ClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	return c.postToken(ctx, data)
}

func (c *Client) postToken(ctx context.Context, data url.Values) (*TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &OAuthError{Status: http.StatusBadGateway, Msg: "building token request: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &OAuthError{Status: http.StatusBadGateway, Msg: "token endpoint unreachable: " + err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &OAuthError{Status: http.StatusBadGateway, Msg: "reading token response: " + err.Error()}
	}

	var payload struct {
		TokenSet
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &OAuthError{Status: http.StatusBadGateway, Msg: "unparseable token response", Body: string(body)}
	}

	// GitHub reports rejections both as error statuses and as 200 responses
	// with an error field.
	if payload.Error != "" || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status := http.StatusUnauthorized
		if resp.StatusCode >= 500 {
			status = resp.StatusCode
		}
		msg := payload.ErrorDescription
		if msg == "" {
			msg = payload.Error
		}
		if msg == "" {
			msg = "github rejected the token request"
		}
		return nil, &OAuthError{Status: status, Msg: msg, Body: string(body)}
	}

	if payload.AccessToken == "" {
		return nil, &OAuthError{Status: http.StatusUnauthorized, Msg: "token response missing access_token", Body: string(body)}
	}
	return &payload.TokenSet, nil
}

// FetchUser fetches the authenticated profile and picks an email address:
// the primary verified one if present, else any verified one, else the first
// listed.
func (c *Client) FetchUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, &OAuthError{Status: http.StatusBadRequest, Msg: "missing access token"}
	}

	var user User
	if err := c.getJSON(ctx, c.apiBase+"/user", accessToken, -1, &user); err != nil {
		return nil, oauthErrorFrom(err, "fetching profile")
	}

	var emails []userEmail
	if err := c.getJSON(ctx, c.apiBase+"/user/emails", accessToken, -1, &emails); err != nil {
		return nil, oauthErrorFrom(err, "fetching emails")
	}

	email := selectEmail(emails)
	if email == "" {
		return nil, &OAuthError{Status: http.StatusInternalServerError, Msg: ErrNoEmail.Error()}
	}
	user.Email = email
	return &user, nil
}

func selectEmail(emails []userEmail) string {
	var verified string
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
		if e.Verified && verified == "" {
			verified = e.Email
		}
	}
	if verified != "" {
		return verified
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}

// oauthErrorFrom rebrands a data-fetch failure that happened inside the
// OAuth flow, keeping the upstream status and payload.
func oauthErrorFrom(err error, msg string) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	status := apiErr.Status
	if status == 0 {
		status = http.StatusBadGateway
	}
	return &OAuthError{Status: status, Msg: msg + ": " + apiErr.Msg, Body: apiErr.Body}
}
