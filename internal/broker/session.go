package broker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const defaultLoginURL = "https://kite.zerodha.com/connect/login"

// Session is the result of exchanging a request token for an access token.
type Session struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name,omitempty"`
	Email       string `json:"email,omitempty"`
	AccessToken string `json:"access_token"`
	PublicToken string `json:"public_token,omitempty"`
	LoginTime   string `json:"login_time,omitempty"`
}

// LoginURL builds the browser URL the user visits to authorize the app. The
// redirect lands with a request_token query parameter to feed GenerateSession.
func (c *Client) LoginURL() string {
	return defaultLoginURL + "?v=" + apiVersion + "&api_key=" + url.QueryEscape(c.APIKey)
}

// GenerateSession exchanges a request token for an access token. The checksum
// is sha256 over api_key + request_token + api_secret, per the API contract.
func (c *Client) GenerateSession(ctx context.Context, requestToken, apiSecret string) (*Session, error) {
	if c == nil || c.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	requestToken = strings.TrimSpace(requestToken)
	apiSecret = strings.TrimSpace(apiSecret)
	if requestToken == "" || apiSecret == "" {
		return nil, fmt.Errorf("request token and api secret are required")
	}

	sum := sha256.Sum256([]byte(c.APIKey + requestToken + apiSecret))
	checksum := hex.EncodeToString(sum[:])

	form := url.Values{}
	form.Set("api_key", c.APIKey)
	form.Set("request_token", requestToken)
	form.Set("checksum", checksum)

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/session/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Kite-Version", apiVersion)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "/session/token", Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "/session/token", Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	if env.Status != "success" || resp.StatusCode >= http.StatusBadRequest {
		if isAuthFailure(resp.StatusCode, env.ErrorType) {
			return nil, &AuthError{Message: env.Message, ErrorType: env.ErrorType}
		}
		return nil, &APIError{Path: "/session/token", StatusCode: resp.StatusCode, ErrorType: env.ErrorType, Message: env.Message}
	}

	var data wireSession
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode session data: %w", err)
	}
	if data.AccessToken == "" {
		return nil, fmt.Errorf("session response missing access token")
	}

	return &Session{
		UserID:      data.UserID,
		UserName:    data.UserName,
		Email:       data.Email,
		AccessToken: data.AccessToken,
		PublicToken: data.PublicToken,
		LoginTime:   data.LoginTime,
	}, nil
}
