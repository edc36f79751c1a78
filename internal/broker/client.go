package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/foliolens/foliolens/internal/core"
	"github.com/foliolens/foliolens/internal/metrics"
)

const (
	defaultBaseURL = "https://api.kite.trade"
	apiVersion     = "3"

	// The brokerage enforces roughly three requests per second per app.
	requestsPerSecond = 3

	snapshotAttempts = 3
	snapshotPause    = time.Second
)

// Client talks to the brokerage REST API. All requests pass through a token
// bucket limiter so bursts stay under the published per-app quota.
type Client struct {
	BaseURL     string
	APIKey      string
	AccessToken string
	HTTPClient  *http.Client
	Limiter     *rate.Limiter
	Logger      *logging.Logger
	Clock       func() time.Time
	Sleep       func(ctx context.Context, d time.Duration) error
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey, accessToken string) *Client {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultBaseURL
	}

	return &Client{
		BaseURL:     u,
		APIKey:      strings.TrimSpace(apiKey),
		AccessToken: strings.TrimSpace(accessToken),
		Limiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// Profile fetches the account owner's identity.
func (c *Client) Profile(ctx context.Context) (*core.InvestorProfile, error) {
	var data wireProfile
	if err := c.get(ctx, "/user/profile", &data); err != nil {
		return nil, err
	}
	return &core.InvestorProfile{
		UserID:   data.UserID,
		UserName: data.UserName,
		Email:    data.Email,
		Broker:   data.Broker,
	}, nil
}

// Holdings fetches long-term holdings.
func (c *Client) Holdings(ctx context.Context) ([]core.Holding, error) {
	var data []wireHolding
	if err := c.get(ctx, "/portfolio/holdings", &data); err != nil {
		return nil, err
	}

	holdings := make([]core.Holding, 0, len(data))
	for _, h := range data {
		holdings = append(holdings, core.Holding{
			Symbol:       h.TradingSymbol,
			Exchange:     h.Exchange,
			ISIN:         h.ISIN,
			Quantity:     h.Quantity,
			AveragePrice: h.AveragePrice,
			LastPrice:    h.LastPrice,
			PnL:          h.PnL,
		})
	}
	return holdings, nil
}

// Positions fetches open net positions. Day positions are not reported since
// the analysis works on carried exposure.
func (c *Client) Positions(ctx context.Context) ([]core.Position, error) {
	var data wirePositions
	if err := c.get(ctx, "/portfolio/positions", &data); err != nil {
		return nil, err
	}

	positions := make([]core.Position, 0, len(data.Net))
	for _, p := range data.Net {
		positions = append(positions, core.Position{
			Symbol:       p.TradingSymbol,
			Product:      p.Product,
			Quantity:     p.Quantity,
			AveragePrice: p.AveragePrice,
			LastPrice:    p.LastPrice,
			PnL:          p.PnL,
		})
	}
	return positions, nil
}

// Margins fetches available equity funds.
func (c *Client) Margins(ctx context.Context) (*core.Margins, error) {
	var data wireMargins
	if err := c.get(ctx, "/user/margins", &data); err != nil {
		return nil, err
	}
	return &core.Margins{
		AvailableCash: data.Equity.Available.Cash,
		UsedMargin:    data.Equity.Utilised.Debits,
		Net:           data.Equity.Net,
	}, nil
}

// Snapshot assembles the full portfolio view in one pass. Each source gets a
// short bounded retry against transient failures. Holdings are mandatory; the
// other sections degrade gracefully and the gap is recorded in DataQuality so
// downstream reporting can flag it.
func (c *Client) Snapshot(ctx context.Context) (*core.PortfolioSnapshot, error) {
	holdings, err := fetchWithRetry(ctx, c, c.Holdings)
	metrics.RecordBrokerFetch("holdings", err == nil)
	if err != nil {
		return nil, fmt.Errorf("fetch holdings: %w", err)
	}

	snapshot := &core.PortfolioSnapshot{
		Holdings:    holdings,
		FetchedAt:   c.now().UTC(),
		DataQuality: map[string]string{},
	}

	profile, err := fetchWithRetry(ctx, c, c.Profile)
	metrics.RecordBrokerFetch("profile", err == nil)
	if err != nil {
		c.warn("Profile fetch failed", err)
		snapshot.DataQuality["profile"] = "unavailable"
	} else {
		snapshot.Profile = profile
	}

	positions, err := fetchWithRetry(ctx, c, c.Positions)
	metrics.RecordBrokerFetch("positions", err == nil)
	if err != nil {
		c.warn("Positions fetch failed", err)
		snapshot.DataQuality["positions"] = "unavailable"
	} else {
		snapshot.NetPositions = positions
	}

	margins, err := fetchWithRetry(ctx, c, c.Margins)
	metrics.RecordBrokerFetch("margins", err == nil)
	if err != nil {
		c.warn("Margins fetch failed", err)
		snapshot.DataQuality["margins"] = "unavailable"
	} else {
		snapshot.Margins = margins
	}

	if len(snapshot.DataQuality) == 0 {
		snapshot.DataQuality = nil
	}
	return snapshot, nil
}

// fetchWithRetry retries transient brokerage failures with a short pause.
// Auth and other client errors return immediately.
func fetchWithRetry[T any](ctx context.Context, c *Client, fn func(context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= snapshotAttempts; attempt++ {
		result, err = fn(ctx)
		if err == nil || !isTransient(err) || attempt == snapshotAttempts {
			return result, err
		}
		if serr := c.sleep(ctx, snapshotPause); serr != nil {
			return result, err
		}
	}
	return result, err
}

func isTransient(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return !errors.Is(netErr.Err, context.Canceled) && !errors.Is(netErr.Err, context.DeadlineExceeded)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type envelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if c == nil {
		return fmt.Errorf("broker client not configured")
	}
	if c.APIKey == "" || c.AccessToken == "" {
		return &AuthError{Message: "api key and access token are required"}
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return &NetworkError{Op: path, Err: err}
		}
	}

	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Kite-Version", apiVersion)
	req.Header.Set("Authorization", "token "+c.APIKey+":"+c.AccessToken)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return &NetworkError{Op: path, Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: path, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}

	if env.Status != "success" || resp.StatusCode >= http.StatusBadRequest {
		if isAuthFailure(resp.StatusCode, env.ErrorType) {
			return &AuthError{Message: env.Message, ErrorType: env.ErrorType}
		}
		return &APIError{Path: path, StatusCode: resp.StatusCode, ErrorType: env.ErrorType, Message: env.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}

func isAuthFailure(status int, errorType string) bool {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return true
	}
	return errorType == "TokenException" || errorType == "PermissionException"
}

func (c *Client) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c *Client) warn(msg string, err error) {
	if c.Logger != nil {
		c.Logger.Warn(msg, zap.Error(err))
	}
}
