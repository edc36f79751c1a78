package broker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	client := NewClient(serverURL, "test-key", "test-token")
	client.Limiter = nil
	client.Sleep = func(context.Context, time.Duration) error { return nil }
	return client
}

func TestHoldingsParsesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/portfolio/holdings", r.URL.Path)
		require.Equal(t, "3", r.Header.Get("X-Kite-Version"))
		require.Equal(t, "token test-key:test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":[
			{"tradingsymbol":"INFY","exchange":"NSE","isin":"INE009A01021","quantity":10,"average_price":1500,"last_price":1550,"pnl":500},
			{"tradingsymbol":"TCS","exchange":"NSE","quantity":5,"average_price":3200,"last_price":3100,"pnl":-500}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	holdings, err := client.Holdings(context.Background())
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	require.Equal(t, "INFY", holdings[0].Symbol)
	require.Equal(t, 10, holdings[0].Quantity)
	require.InDelta(t, 500.0, holdings[0].PnL, 0.001)
	require.Equal(t, "TCS", holdings[1].Symbol)
}

func TestTokenExceptionIsAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"status":"error","message":"Token is invalid or has expired.","error_type":"TokenException"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Holdings(context.Background())
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, "TokenException", authErr.ErrorType)
}

func TestSnapshotDegradesOnPartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/portfolio/holdings":
			_, _ = w.Write([]byte(`{"status":"success","data":[{"tradingsymbol":"INFY","quantity":10,"average_price":1500,"last_price":1550,"pnl":500}]}`))
		case "/user/profile":
			_, _ = w.Write([]byte(`{"status":"success","data":{"user_id":"AB1234","user_name":"Test User","broker":"ZERODHA"}}`))
		case "/user/margins":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"error","message":"backend down","error_type":"GeneralException"}`))
		case "/portfolio/positions":
			_, _ = w.Write([]byte(`{"status":"success","data":{"net":[],"day":[]}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	snapshot, err := client.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot.Holdings, 1)
	require.NotNil(t, snapshot.Profile)
	require.Equal(t, "AB1234", snapshot.Profile.UserID)
	require.Nil(t, snapshot.Margins)
	require.Equal(t, "unavailable", snapshot.DataQuality["margins"])
	require.False(t, snapshot.FetchedAt.IsZero())
}

func TestSnapshotRetriesTransientFailures(t *testing.T) {
	var holdingsCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/portfolio/holdings":
			if holdingsCalls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"error","message":"down","error_type":"GeneralException"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"success","data":[{"tradingsymbol":"INFY","quantity":10,"average_price":1500,"last_price":1550,"pnl":500}]}`))
		case "/user/profile":
			_, _ = w.Write([]byte(`{"status":"success","data":{"user_id":"AB1234","user_name":"Test User","broker":"ZERODHA"}}`))
		case "/portfolio/positions":
			_, _ = w.Write([]byte(`{"status":"success","data":{"net":[],"day":[]}}`))
		case "/user/margins":
			_, _ = w.Write([]byte(`{"status":"success","data":{"equity":{"net":0,"available":{"cash":0},"utilised":{"debits":0}}}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	var pauses []time.Duration
	client := newTestClient(server.URL)
	client.Sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	snapshot, err := client.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot.Holdings, 1)
	require.Equal(t, int64(3), holdingsCalls.Load())
	require.Equal(t, []time.Duration{time.Second, time.Second}, pauses)
}

func TestSnapshotDoesNotRetryAuthFailure(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"status":"error","message":"Token is invalid or has expired.","error_type":"TokenException"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Snapshot(context.Background())
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, int64(1), calls.Load())
}

func TestSnapshotFailsWithoutHoldings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"error","message":"down","error_type":"GeneralException"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Snapshot(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch holdings")
}

func TestGenerateSessionSendsChecksum(t *testing.T) {
	sum := sha256.Sum256([]byte("test-key" + "req-token" + "secret"))
	wantChecksum := hex.EncodeToString(sum[:])

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/session/token", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "test-key", r.PostForm.Get("api_key"))
		require.Equal(t, "req-token", r.PostForm.Get("request_token"))
		require.Equal(t, wantChecksum, r.PostForm.Get("checksum"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"user_id":"AB1234","access_token":"new-token","public_token":"pub"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	session, err := client.GenerateSession(context.Background(), "req-token", "secret")
	require.NoError(t, err)
	require.Equal(t, "new-token", session.AccessToken)
	require.Equal(t, "AB1234", session.UserID)
}

func TestLoginURLIncludesAPIKey(t *testing.T) {
	client := NewClient("", "test-key", "")
	require.Equal(t, "https://kite.zerodha.com/connect/login?v=3&api_key=test-key", client.LoginURL())
}
