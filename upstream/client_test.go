package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatedesk/config"
)

func newTestClient(t *testing.T, token string, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.UpstreamConfig{BaseURL: srv.URL, Token: token}, nil)
}

func TestFetchGuests(t *testing.T) {
	var seen []string
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"guests":[{"U_Code":"C1","U_Name":"Alice","U_arrival_time":930,"U_isArrived":"N"}]}`))
	})
	ctx := context.Background()

	for _, fetch := range []func(context.Context) (any, error){
		func(ctx context.Context) (any, error) { return c.FetchAllGuests(ctx) },
		func(ctx context.Context) (any, error) { return c.FetchPendingGuests(ctx) },
		func(ctx context.Context) (any, error) { return c.FetchArrivedGuests(ctx) },
	} {
		_, err := fetch(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"/api/all-guests", "/api/pending-guests", "/api/arrived-guests"}, seen)

	guests, err := c.FetchAllGuests(ctx)
	require.NoError(t, err)
	require.Len(t, guests, 1)
	assert.Equal(t, "Alice", guests[0].Name)
	assert.Equal(t, "930", guests[0].ArrivalTimeCode.String())
}

func TestFetchGuests_NonArrayPayloadIsEmpty(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"guests":{"unexpected":true}}`))
	})

	guests, err := c.FetchAllGuests(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, guests)
	assert.Empty(t, guests)
}

func TestFetchGuests_NoToken(t *testing.T) {
	called := false
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.FetchPendingGuests(context.Background())

	assert.ErrorIs(t, err, ErrNoToken)
	assert.Equal(t, "No authentication token found", err.Error())
	assert.False(t, called)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusBadGateway, ErrUnavailable},
		{http.StatusNotFound, ErrServer},
	}
	for _, tt := range tests {
		c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		_, err := c.FetchArrivedGuests(context.Background())
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

func TestUnreachableUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(config.UpstreamConfig{BaseURL: url, Token: "tok"}, nil)
	_, err := c.FetchAllGuests(context.Background())

	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestFetchAllGuards(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/all-guards", r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"ok","data":[{"code":"G1","name":"Ade","isActive":true}]}`))
	})

	guards, err := c.FetchAllGuards(context.Background())

	require.NoError(t, err)
	require.Len(t, guards, 1)
	assert.Equal(t, "Ade", guards[0].Name)
	assert.True(t, guards[0].Active())
}

func TestSubmitCheckIn(t *testing.T) {
	c := newTestClient(t, "tok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/arrived", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"code": "C1", "guard": "G7"}, body)

		_, _ = w.Write([]byte(`{"arrivedAt":"10:42:07 AM"}`))
	})

	receipt, err := c.SubmitCheckIn(context.Background(), "C1", "G7")

	require.NoError(t, err)
	assert.Equal(t, "10:42:07 AM", receipt.ArrivedAt)
}

func TestSentinelErrorsReadAsDisplayText(t *testing.T) {
	assert.Equal(t, "No authentication token found", ErrNoToken.Error())
	assert.Equal(t, "Unauthorized", ErrUnauthorized.Error())
	assert.Equal(t, "Upstream unavailable", ErrUnavailable.Error())
	assert.Equal(t, "Server error", ErrServer.Error())
}
