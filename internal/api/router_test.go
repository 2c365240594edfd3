package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/Kringle/internal/db"
	"github.com/soaringjerry/Kringle/internal/services"
)

const testAdminSecret = "letmein"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := db.NewMemoryStore()
	profiles := services.NewProfileService(nil, nil)
	auth := services.NewAdminAuth(testAdminSecret, "", []byte("test-signing-key"))

	router := NewRouter(Deps{
		Missions: services.NewMissionService(store, nil),
		Register: services.NewRegisterService(store, profiles, nil),
		Seeds:    services.NewSeedService(store, nil),
		Matches:  services.NewMatchService(store, nil),
		Events:   services.NewEventService(store),
		Auth:     auth,
		BaseURL:  "http://localhost:8080",
	})
	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// call sends a JSON request and decodes the JSON response body into a map.
func call(t *testing.T, method, url string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func adminHeader() map[string]string {
	return map[string]string{"X-Admin-Secret": testAdminSecret}
}

func TestFullEventFlow(t *testing.T) {
	srv := newTestServer(t)
	answers := map[string]string{"canteen": "Chai", "spot": "Library", "vibe": "Techie"}

	status, body := call(t, http.MethodGet, srv.URL+"/health", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["ok"])

	// Admin surface is closed without a credential.
	status, _ = call(t, http.MethodPost, srv.URL+"/api/admin/seed", []map[string]string{}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	status, _ = call(t, http.MethodPost, srv.URL+"/api/admin/verify", nil,
		map[string]string{"X-Admin-Secret": "wrong"})
	require.Equal(t, http.StatusUnauthorized, status)

	// A verified session works in place of the raw secret.
	status, body = call(t, http.MethodPost, srv.URL+"/api/admin/verify", nil, adminHeader())
	require.Equal(t, http.StatusOK, status)
	session, _ := body["sessionToken"].(string)
	require.NotEmpty(t, session)
	bearer := map[string]string{"Authorization": "Bearer " + session}

	// Seeding rejects anything but an array.
	status, _ = call(t, http.MethodPost, srv.URL+"/api/admin/seed",
		map[string]string{"name": "nope"}, bearer)
	require.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, http.MethodPost, srv.URL+"/api/admin/seed", []map[string]string{
		{"name": "Harsh", "class": "CSE-A"},
		{"name": "Priya", "class": "CSE-B"},
		{"name": "Rahul", "class": "CSE-A"},
	}, bearer)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 3, body["count"])

	printed := body["tokens_to_print"].([]any)
	tokens := make([]string, 0, 3)
	names := map[string]string{}
	for _, item := range printed {
		entry := item.(map[string]any)
		tok := entry["token"].(string)
		tokens = append(tokens, tok)
		names[tok] = entry["name"].(string)
	}
	require.Len(t, tokens, 3)

	// Login routes fresh tokens to the quiz.
	status, _ = call(t, http.MethodPost, srv.URL+"/api/auth/login",
		map[string]string{"token": "NOSUCH"}, nil)
	require.Equal(t, http.StatusNotFound, status)

	status, body = call(t, http.MethodPost, srv.URL+"/api/auth/login",
		map[string]string{"token": tokens[0]}, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, names[tokens[0]], body["name"])
	require.Equal(t, false, body["isRegistered"])

	// Nobody is matched yet.
	status, body = call(t, http.MethodPost, srv.URL+"/api/mission",
		map[string]string{"token": tokens[0]}, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "WAITING_FOR_MATCH", body["status"])

	// Matching needs registered participants.
	status, body = call(t, http.MethodPost, srv.URL+"/api/admin/match", nil, adminHeader())
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "insufficient_participants", body["code"])

	for _, tok := range tokens {
		status, body = call(t, http.MethodPost, srv.URL+"/api/register",
			map[string]any{"token": tok, "answers": answers}, nil)
		require.Equal(t, http.StatusOK, status)
		profile := body["generatedProfile"].(map[string]any)
		require.Len(t, profile["clues"].([]any), 3)
	}

	// Registration is one-shot.
	status, body = call(t, http.MethodPost, srv.URL+"/api/register",
		map[string]any{"token": tokens[0], "answers": answers}, nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "conflict", body["code"])

	// Match with a reveal date far in the future.
	status, body = call(t, http.MethodPost, srv.URL+"/api/admin/match",
		map[string]any{"revealDate": "2099-12-24T09:00:00Z"}, adminHeader())
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 3, body["matched"])

	// Before the reveal the mission shows the profile but not the identity.
	status, body = call(t, http.MethodPost, srv.URL+"/api/mission",
		map[string]string{"token": tokens[0]}, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "CLASSIFIED", body["status"])
	target := body["target"].(map[string]any)
	require.Equal(t, "CLASSIFIED AGENT", target["name"])
	require.Equal(t, "UNKNOWN", target["class"])
	require.Len(t, target["clues"].([]any), 3)
	for _, forbidden := range []string{"email", "token", "targetToken"} {
		_, leaked := target[forbidden]
		require.False(t, leaked, "target view leaks %q", forbidden)
	}

	// Re-running the matcher is destructive and requires confirmation.
	status, body = call(t, http.MethodPost, srv.URL+"/api/admin/match", nil, adminHeader())
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "conflict", body["code"])
	status, _ = call(t, http.MethodPost, srv.URL+"/api/admin/match",
		map[string]any{"confirm": true}, adminHeader())
	require.Equal(t, http.StatusOK, status)

	// Pull the reveal date into the past; the gate opens on the next query.
	status, _ = call(t, http.MethodPost, srv.URL+"/api/admin/reveal",
		map[string]string{"revealDate": "2020-01-01T00:00:00Z"}, adminHeader())
	require.Equal(t, http.StatusOK, status)

	status, body = call(t, http.MethodPost, srv.URL+"/api/mission",
		map[string]string{"token": tokens[0]}, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "REVEALED", body["status"])
	target = body["target"].(map[string]any)
	require.NotEqual(t, "CLASSIFIED AGENT", target["name"])
	require.NotEqual(t, names[tokens[0]], target["name"], "participant assigned to themselves")

	// Mail is not configured on this server.
	status, body = call(t, http.MethodPost, srv.URL+"/api/admin/email", nil, adminHeader())
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid_input", body["code"])

	// Config survey for the admin page.
	status, body = call(t, http.MethodGet, srv.URL+"/api/admin/reveal", nil, adminHeader())
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "MATCHED", body["status"])
	require.EqualValues(t, 3, body["totalParticipants"])
}

func TestMatchRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/admin/match",
		strings.NewReader(`{"revealDate": }`))
	require.NoError(t, err)
	req.Header.Set("X-Admin-Secret", testAdminSecret)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_input", body["code"])
}

func TestTokenQREndpoint(t *testing.T) {
	srv := newTestServer(t)

	status, body := call(t, http.MethodPost, srv.URL+"/api/admin/seed",
		[]map[string]string{{"name": "Harsh"}}, adminHeader())
	require.Equal(t, http.StatusOK, status)
	token := body["tokens_to_print"].([]any)[0].(map[string]any)["token"].(string)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/admin/tokens/"+token+"/qr", nil)
	require.NoError(t, err)
	req.Header.Set("X-Admin-Secret", testAdminSecret)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	status, _ = call(t, http.MethodGet, srv.URL+"/api/admin/tokens/NOSUCH/qr", nil, adminHeader())
	require.Equal(t, http.StatusNotFound, status)
}
