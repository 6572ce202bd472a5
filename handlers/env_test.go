package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gatedesk/auth"
	"gatedesk/config"
	"gatedesk/db"
	"gatedesk/models"
	"gatedesk/notifications"
	"gatedesk/overlay"
	"gatedesk/session"
	"gatedesk/store"
	"gatedesk/upstream"
)

var now = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

const (
	allGuestsJSON = `[
		{"U_Code":"A1","U_Name":"Alice","U_Date":"2026-10-15","U_arrival_time":930,"U_isArrived":"N","U_Host_Name":"Kofi"},
		{"U_Code":"B2","U_Name":"Bob","U_Date":"2026-10-14","U_arrival_time":"1400","U_isArrived":"Y","U_arrivedAt":"14:05","U_receivedBy":"G7","U_Host_Name":"Efua"}
	]`
	arrivedGuestsJSON = `[
		{"U_Code":"B2","U_Name":"Bob","U_Date":"2026-10-14","U_arrival_time":"1400","U_isArrived":"Y","U_arrivedAt":"14:05","U_receivedBy":"G7","U_Host_Name":"Efua"}
	]`
	pendingGuestsJSON = `[
		{"U_Code":"A1","U_Name":"Alice","U_Date":"2026-10-15","U_arrival_time":930,"U_isArrived":"N","U_Host_Name":"Kofi"}
	]`
	guardsJSON = `[
		{"code":"G7","name":"Ama Owusu","isActive":"Y"},
		{"code":"G9","name":"Yaw Boateng","isActive":"N"}
	]`
)

type checkInCall struct {
	Code  string `json:"code"`
	Guard string `json:"guard"`
}

// upstreamStub is a minimal visitor API.
type upstreamStub struct {
	mu            sync.Mutex
	failArrived   int
	checkInStatus int
	arrivedAt     string
	checkIns      []checkInCall
}

func (u *upstreamStub) set(fn func(u *upstreamStub)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fn(u)
}

func (u *upstreamStub) calls() []checkInCall {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]checkInCall(nil), u.checkIns...)
}

func (u *upstreamStub) handler() http.Handler {
	guests := func(body string, fail func() int) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if status := fail(); status != 0 {
				w.WriteHeader(status)
				return
			}
			io.WriteString(w, `{"guests":`+body+`}`)
		}
	}
	none := func() int { return 0 }

	mux := http.NewServeMux()
	mux.HandleFunc("/api/all-guests", guests(allGuestsJSON, none))
	mux.HandleFunc("/api/pending-guests", guests(pendingGuestsJSON, none))
	mux.HandleFunc("/api/arrived-guests", guests(arrivedGuestsJSON, func() int {
		u.mu.Lock()
		defer u.mu.Unlock()
		return u.failArrived
	}))
	mux.HandleFunc("/auth/all-guards", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":"ok","data":`+guardsJSON+`}`)
	})
	mux.HandleFunc("/api/arrived", func(w http.ResponseWriter, r *http.Request) {
		var call checkInCall
		json.NewDecoder(r.Body).Decode(&call)

		u.mu.Lock()
		defer u.mu.Unlock()
		if u.checkInStatus != 0 {
			w.WriteHeader(u.checkInStatus)
			return
		}
		u.checkIns = append(u.checkIns, call)
		json.NewEncoder(w).Encode(map[string]string{"arrivedAt": u.arrivedAt})
	})
	return mux
}

type env struct {
	upstream  *upstreamStub
	store     *store.Store
	log       *notifications.Log
	sessions  *session.Store
	operators *db.Operators
	jwt       *auth.JWTManager
	srv       *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	auth.BcryptCost = bcrypt.MinCost
	ctx := context.Background()
	clock := func() time.Time { return now }

	up := &upstreamStub{arrivedAt: "10:02"}
	upSrv := httptest.NewServer(up.handler())
	t.Cleanup(upSrv.Close)

	kv := db.NewMemory()
	operators := db.NewOperators(kv)
	hash, err := auth.HashPassword("gatepass1")
	require.NoError(t, err)
	require.NoError(t, operators.SaveOperator(ctx, &models.Operator{Code: "G7", Name: "Ama Owusu", PasswordHash: hash}))

	sessions := session.NewStore(kv, nil)
	client := upstream.NewClient(config.UpstreamConfig{BaseURL: upSrv.URL, Token: "upstream-token", Timeout: 5 * time.Second}, nil)
	st := store.New(store.Options{
		Transport: client,
		Session:   sessions,
		Overlay:   overlay.New(kv, nil, clock),
		Now:       clock,
		Location:  time.UTC,
	})
	log := notifications.New(kv, nil, notifications.DefaultCap, clock)
	jwt := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)

	srv := httptest.NewServer(NewRouter(Deps{
		Store:          st,
		Notifications:  log,
		Sessions:       sessions,
		Operators:      operators,
		JWT:            jwt,
		AllowedOrigins: []string{"http://desk.local"},
		StorageBackend: "memory",
		LiveTransport:  "none",
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(st.Close)

	return &env{upstream: up, store: st, log: log, sessions: sessions, operators: operators, jwt: jwt, srv: srv}
}

// call performs a request and returns the status and raw body.
func (e *env) call(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func (e *env) login(t *testing.T) LoginResponse {
	t.Helper()
	status, raw := e.call(t, http.MethodPost, "/api/login", "", LoginRequest{Code: "G7", Password: "gatepass1"})
	require.Equal(t, http.StatusOK, status, string(raw))

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}
