package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"maxidp/internal/config"
	"maxidp/internal/database"
	"maxidp/pkg/cache"
	"maxidp/pkg/metrics"
	"maxidp/pkg/password"
)

var appSeq atomic.Int64

const (
	adminPassword  = "root-passphrase-42"
	memberPassword = "correct-horse-battery"
	callbackURL    = "http://localhost:9000/callback"
)

type testEnv struct {
	t       *testing.T
	app     *App
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Mode = "test"
	cfg.OAuth.SecretBcryptCost = bcrypt.MinCost
	cfg.OAuth.TokenRateBurst = 100
	cfg.Admin.Password = adminPassword
	cfg.Database = config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:routertest%d?mode=memory&cache=shared", appSeq.Add(1)),
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("database.Open() error: %v", err)
	}
	if _, err := database.SeedAdmin(context.Background(), db, cfg.Admin, password.NewHasher(bcrypt.MinCost)); err != nil {
		t.Fatalf("SeedAdmin() error: %v", err)
	}
	mc := cache.NewMemoryCache(time.Minute)
	m := metrics.New(false)

	app := Setup(cfg, db, mc, m)
	t.Cleanup(func() {
		app.Close()
		_ = mc.Close()
		_ = database.Close(db)
	})
	return &testEnv{t: t, app: app, metrics: m}
}

/* do 发送请求；body 为 url.Values 时按表单编码，其余按 JSON */
func (e *testEnv) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case url.Values:
		r = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		r = strings.NewReader(string(raw))
		contentType = "application/json"
	}
	req := httptest.NewRequest(method, path, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.app.Engine.ServeHTTP(w, req)
	return w
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (e *testEnv) login(username, pass string) string {
	e.t.Helper()
	w := e.do("POST", "/api/auth/login", map[string]string{"username": username, "password": pass}, nil)
	if w.Code != http.StatusOK {
		e.t.Fatalf("login %s: %d %s", username, w.Code, w.Body.String())
	}
	var resp envelope[struct {
		SessionToken string `json:"session_token"`
	}]
	decode(e.t, w, &resp)
	return resp.Data.SessionToken
}

func (e *testEnv) createMember(adminSession, username string) string {
	e.t.Helper()
	w := e.do("POST", "/api/admin/members", map[string]any{
		"username": username,
		"email":    username + "@club.example",
		"password": memberPassword,
	}, bearer(adminSession))
	if w.Code != http.StatusCreated {
		e.t.Fatalf("create member: %d %s", w.Code, w.Body.String())
	}
	return e.login(username, memberPassword)
}

type createdClient struct {
	Client struct {
		ID string `json:"id"`
	} `json:"client"`
	Secret struct {
		Secret string `json:"secret"`
	} `json:"secret"`
}

func (e *testEnv) createClient(session string, scopes ...int) createdClient {
	e.t.Helper()
	w := e.do("POST", "/api/clients", map[string]any{
		"name":          "Club Wiki",
		"callback_urls": []string{callbackURL},
		"scope_ids":     scopes,
	}, bearer(session))
	if w.Code != http.StatusCreated {
		e.t.Fatalf("create client: %d %s", w.Code, w.Body.String())
	}
	var resp envelope[createdClient]
	decode(e.t, w, &resp)
	return resp.Data
}

/* authorize 走 GET /oauth/authorize，返回 Location */
func (e *testEnv) authorize(session, clientID, redirectURI, scope, state string) *url.URL {
	e.t.Helper()
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"scope":         {scope},
		"state":         {state},
	}
	w := e.do("GET", "/oauth/authorize?"+q.Encode(), nil, bearer(session))
	if w.Code != http.StatusFound {
		e.t.Fatalf("authorize: %d %s", w.Code, w.Body.String())
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		e.t.Fatalf("parse Location: %v", err)
	}
	return loc
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
}

func (e *testEnv) exchange(code, clientID, secret string) (*httptest.ResponseRecorder, tokenResponse) {
	e.t.Helper()
	w := e.do("POST", "/oauth/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {callbackURL},
		"client_id":     {clientID},
		"client_secret": {secret},
	}, nil)
	var tr tokenResponse
	decode(e.t, w, &tr)
	return w, tr
}

/* ========== 端到端流程 ========== */

func TestAuthorizationCodeFlow(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login("admin", adminPassword)
	alice := env.createMember(admin, "alice")
	client := env.createClient(admin, 1, 2)

	loc := env.authorize(alice, client.Client.ID, callbackURL, "1", "xyz")
	if got := loc.Scheme + "://" + loc.Host + loc.Path; got != callbackURL {
		t.Fatalf("redirect target = %q, want %q", got, callbackURL)
	}
	if loc.Query().Get("state") != "xyz" {
		t.Errorf("state = %q, want xyz", loc.Query().Get("state"))
	}
	code := loc.Query().Get("code")
	if len(code) != 43 {
		t.Fatalf("code length = %d, want 43", len(code))
	}

	w, tr := env.exchange(code, client.Client.ID, client.Secret.Secret)
	if w.Code != http.StatusOK {
		t.Fatalf("token: %d %s", w.Code, w.Body.String())
	}
	if tr.TokenType != "Bearer" || tr.Scope != "1" || len(tr.AccessToken) != 43 {
		t.Errorf("token response = %+v", tr)
	}
	if tr.ExpiresIn <= 0 || tr.ExpiresIn > int64((24*time.Hour).Seconds()) {
		t.Errorf("expires_in = %d", tr.ExpiresIn)
	}
	if w.Header().Get("Cache-Control") != "no-store" || w.Header().Get("Pragma") != "no-cache" {
		t.Error("token response must not be cached")
	}

	w = env.do("GET", "/api/v1/me", nil, bearer(tr.AccessToken))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"username":"alice"`) {
		t.Fatalf("/api/v1/me: %d %s", w.Code, w.Body.String())
	}

	w = env.do("GET", "/api/v1/me/email", nil, bearer(tr.AccessToken))
	if w.Code != http.StatusForbidden {
		t.Errorf("/api/v1/me/email status = %d, want 403", w.Code)
	}
	if !strings.Contains(w.Header().Get("WWW-Authenticate"), `error="insufficient_scope"`) {
		t.Errorf("WWW-Authenticate = %q", w.Header().Get("WWW-Authenticate"))
	}

	w = env.do("GET", "/api/v1/token", nil, bearer(tr.AccessToken))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), client.Client.ID) {
		t.Errorf("/api/v1/token: %d %s", w.Code, w.Body.String())
	}

	/* 重放 */
	w, tr2 := env.exchange(code, client.Client.ID, client.Secret.Secret)
	if w.Code != http.StatusBadRequest || tr2.Error != "invalid_grant" {
		t.Errorf("replay: %d %s", w.Code, w.Body.String())
	}
	w = env.do("GET", "/api/v1/me", nil, bearer(tr.AccessToken))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("token of replayed code status = %d, want 401", w.Code)
	}
	if env.metrics.Registry() == nil {
		t.Fatal("metrics registry missing")
	}

	/* 撤销 */
	loc = env.authorize(alice, client.Client.ID, callbackURL, "1 2", "again")
	w, tr = env.exchange(loc.Query().Get("code"), client.Client.ID, client.Secret.Secret)
	if w.Code != http.StatusOK || tr.Scope != "1 2" {
		t.Fatalf("second token: %d %s", w.Code, w.Body.String())
	}
	w = env.do("GET", "/api/tokens", nil, bearer(alice))
	var list envelope[[]struct {
		TokenID uint64 `json:"token_id"`
	}]
	decode(t, w, &list)
	if len(list.Data) != 1 {
		t.Fatalf("authorizations = %d, want 1", len(list.Data))
	}
	w = env.do("DELETE", fmt.Sprintf("/api/tokens/%d", list.Data[0].TokenID), nil, bearer(alice))
	if w.Code != http.StatusNoContent {
		t.Fatalf("revoke: %d %s", w.Code, w.Body.String())
	}
	w = env.do("GET", "/api/v1/me", nil, bearer(tr.AccessToken))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d, want 401", w.Code)
	}
}

func TestAuthorize_UnregisteredRedirectIsNotFollowed(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login("admin", adminPassword)
	client := env.createClient(admin, 1)

	q := url.Values{
		"response_type": {"code"},
		"client_id":     {client.Client.ID},
		"redirect_uri":  {"https://evil.example/cb"},
	}
	w := env.do("GET", "/oauth/authorize?"+q.Encode(), nil, bearer(admin))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if w.Header().Get("Location") != "" {
		t.Error("must not redirect to an unregistered URI")
	}
	if !strings.Contains(w.Body.String(), `"error":"invalid_request"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAuthorize_ErrorsRedirectWithState(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login("admin", adminPassword)
	client := env.createClient(admin, 1)

	tests := []struct {
		name         string
		responseType string
		scope        string
		want         string
	}{
		{"token response type", "token", "1", "unsupported_response_type"},
		{"scope not permitted", "code", "2", "invalid_scope"},
		{"unknown scope", "code", "99", "invalid_scope"},
		{"non numeric scope", "code", "profile", "invalid_scope"},
	}
	for _, tt := range tests {
		q := url.Values{
			"response_type": {tt.responseType},
			"client_id":     {client.Client.ID},
			"redirect_uri":  {callbackURL},
			"scope":         {tt.scope},
			"state":         {"s1"},
		}
		w := env.do("GET", "/oauth/authorize?"+q.Encode(), nil, bearer(admin))
		if w.Code != http.StatusFound {
			t.Errorf("%s: status = %d, want 302", tt.name, w.Code)
			continue
		}
		loc, _ := url.Parse(w.Header().Get("Location"))
		if loc.Query().Get("error") != tt.want || loc.Query().Get("state") != "s1" {
			t.Errorf("%s: Location = %s", tt.name, loc)
		}
		if loc.Query().Get("code") != "" {
			t.Errorf("%s: no code may be issued", tt.name)
		}
	}
}

func TestAuthorize_RequiresSession(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("GET", "/oauth/authorize?response_type=code&client_id=x&redirect_uri=y", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestToken_WrongSecretKeepsCodeUsable(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login("admin", adminPassword)
	client := env.createClient(admin, 1)
	code := env.authorize(admin, client.Client.ID, callbackURL, "1", "").Query().Get("code")

	req := httptest.NewRequest("POST", "/oauth/token", strings.NewReader(url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {callbackURL},
	}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(client.Client.ID, "wrong")
	w := httptest.NewRecorder()
	env.app.Engine.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("WWW-Authenticate"), "Basic") {
		t.Errorf("WWW-Authenticate = %q", w.Header().Get("WWW-Authenticate"))
	}

	w, tr := env.exchange(code, client.Client.ID, client.Secret.Secret)
	if w.Code != http.StatusOK || tr.AccessToken == "" {
		t.Errorf("exchange after failed client auth: %d %s", w.Code, w.Body.String())
	}
}

func TestToken_GrantTypeAndMissingFields(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/oauth/token", url.Values{"grant_type": {"refresh_token"}}, nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "unsupported_grant_type") {
		t.Errorf("refresh_token grant: %d %s", w.Code, w.Body.String())
	}

	w = env.do("POST", "/oauth/token", url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"abc"},
		"client_secret": {"s"},
	}, nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "invalid_request") {
		t.Errorf("missing code: %d %s", w.Code, w.Body.String())
	}

	w = env.do("POST", "/oauth/token", url.Values{"grant_type": {"authorization_code"}, "code": {"x"}}, nil)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "invalid_client") {
		t.Errorf("no client credentials: %d %s", w.Code, w.Body.String())
	}
}

func TestBearer_MalformedHeader(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("GET", "/api/v1/me", nil, map[string]string{"Authorization": "bearer abc"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("WWW-Authenticate"), `Bearer realm="Maximum IdP"`) {
		t.Errorf("WWW-Authenticate = %q", w.Header().Get("WWW-Authenticate"))
	}
}

/* ========== 会话与客户端管理 ========== */

func TestLogin_SetsCookiesAndLogoutRevokes(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("POST", "/api/auth/login", map[string]string{"username": "admin", "password": adminPassword}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d", w.Code)
	}
	var sessionCookie, csrfCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		switch c.Name {
		case "maxidp_session":
			sessionCookie = c
		case "maxidp_csrf":
			csrfCookie = c
		}
	}
	if sessionCookie == nil || !sessionCookie.HttpOnly {
		t.Fatalf("session cookie = %+v", sessionCookie)
	}
	if csrfCookie == nil || csrfCookie.HttpOnly {
		t.Fatalf("csrf cookie = %+v", csrfCookie)
	}

	/* Cookie 会话的写请求必须带 CSRF 头 */
	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.AddCookie(sessionCookie)
	req.AddCookie(csrfCookie)
	rec := httptest.NewRecorder()
	env.app.Engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("logout without CSRF header = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.AddCookie(sessionCookie)
	req.AddCookie(csrfCookie)
	req.Header.Set("X-CSRF-Token", csrfCookie.Value)
	rec = httptest.NewRecorder()
	env.app.Engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout = %d %s", rec.Code, rec.Body.String())
	}

	w = env.do("GET", "/api/auth/me", nil, bearer(sessionCookie.Value))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("session after logout = %d, want 401", w.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("POST", "/api/auth/login", map[string]string{"username": "admin", "password": "nope-nope-nope"}, nil)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "INVALID_CREDENTIALS") {
		t.Errorf("login: %d %s", w.Code, w.Body.String())
	}
}

func TestClientAdministration_Permissions(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login("admin", adminPassword)
	alice := env.createMember(admin, "alice")
	bob := env.createMember(admin, "bob")
	client := env.createClient(alice, 1)
	path := "/api/clients/" + client.Client.ID

	if w := env.do("GET", path, nil, bearer(bob)); w.Code != http.StatusForbidden {
		t.Errorf("stranger GET = %d, want 403", w.Code)
	}
	if w := env.do("POST", path+"/managers", map[string]string{"username": "bob"}, bearer(alice)); w.Code != http.StatusCreated {
		t.Fatalf("add manager = %d %s", w.Code, w.Body.String())
	}
	if w := env.do("PATCH", path, map[string]string{"name": "Wiki 2"}, bearer(bob)); w.Code != http.StatusOK {
		t.Errorf("manager PATCH = %d %s", w.Code, w.Body.String())
	}
	if w := env.do("DELETE", path, nil, bearer(bob)); w.Code != http.StatusForbidden {
		t.Errorf("manager DELETE = %d, want 403", w.Code)
	}

	w := env.do("GET", "/api/clients", nil, bearer(bob))
	var list envelope[[]struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}]
	decode(t, w, &list)
	if len(list.Data) != 1 || list.Data[0].Name != "Wiki 2" {
		t.Errorf("bob's clients = %+v", list.Data)
	}

	if w := env.do("DELETE", path, nil, bearer(admin)); w.Code != http.StatusNoContent {
		t.Errorf("admin DELETE = %d %s", w.Code, w.Body.String())
	}
	if w := env.do("GET", path, nil, bearer(alice)); w.Code != http.StatusNotFound {
		t.Errorf("GET after delete = %d, want 404", w.Code)
	}
}

func TestClient_SecretRotation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login("admin", adminPassword)
	client := env.createClient(admin, 1)
	path := "/api/clients/" + client.Client.ID + "/secrets"

	w := env.do("POST", path, map[string]string{"description": "rotation"}, bearer(admin))
	if w.Code != http.StatusCreated {
		t.Fatalf("issue secret = %d %s", w.Code, w.Body.String())
	}
	var issued envelope[struct {
		ID     string `json:"id"`
		Secret string `json:"secret"`
	}]
	decode(t, w, &issued)

	/* 新旧密钥同时有效 */
	for _, secret := range []string{client.Secret.Secret, issued.Data.Secret} {
		code := env.authorize(admin, client.Client.ID, callbackURL, "1", "").Query().Get("code")
		if w, _ := env.exchange(code, client.Client.ID, secret); w.Code != http.StatusOK {
			t.Errorf("exchange with secret: %d %s", w.Code, w.Body.String())
		}
	}

	w = env.do("GET", path, nil, bearer(admin))
	if strings.Contains(w.Body.String(), issued.Data.Secret) {
		t.Error("secret listing must not expose plaintext")
	}
}

func TestClient_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login("admin", adminPassword)

	bodies := []map[string]any{
		{"name": "x", "callback_urls": []string{"http://example.com/cb"}},
		{"name": "x", "callback_urls": []string{"https://example.com/cb#frag"}},
		{"name": "x", "callback_urls": []string{"https://example.com/cb"}, "scope_ids": []int{42}},
	}
	for i, b := range bodies {
		w := env.do("POST", "/api/clients", b, bearer(admin))
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %d: status = %d, want 400 (%s)", i, w.Code, w.Body.String())
		}
	}
}

func TestConsentScreen(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login("admin", adminPassword)
	client := env.createClient(admin, 1, 2)

	q := url.Values{"client_id": {client.Client.ID}, "redirect_uri": {callbackURL}, "scope": {"1 2"}}
	w := env.do("GET", "/api/oauth/app-info?"+q.Encode(), nil, bearer(admin))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"email"`) {
		t.Fatalf("app-info: %d %s", w.Code, w.Body.String())
	}

	w = env.do("POST", "/api/oauth/authorize", map[string]any{
		"client_id": client.Client.ID, "redirect_uri": callbackURL, "scope_ids": []int{1}, "state": "st", "consent": "deny",
	}, bearer(admin))
	var denied envelope[struct {
		RedirectURL string `json:"redirect_url"`
		Code        string `json:"code"`
	}]
	decode(t, w, &denied)
	if !strings.Contains(denied.Data.RedirectURL, "error=access_denied") || denied.Data.Code != "" {
		t.Errorf("deny = %+v", denied.Data)
	}

	w = env.do("POST", "/api/oauth/authorize", map[string]any{
		"client_id": client.Client.ID, "redirect_uri": callbackURL, "scope_ids": []int{1, 2}, "state": "st", "consent": "allow",
	}, bearer(admin))
	var allowed envelope[struct {
		RedirectURL string `json:"redirect_url"`
		Code        string `json:"code"`
	}]
	decode(t, w, &allowed)
	if allowed.Data.Code == "" || !strings.Contains(allowed.Data.RedirectURL, "state=st") {
		t.Fatalf("allow = %+v", allowed.Data)
	}
	_, tr := env.exchange(allowed.Data.Code, client.Client.ID, client.Secret.Secret)
	if tr.Scope != "1 2" {
		t.Errorf("scope = %q, want %q", tr.Scope, "1 2")
	}
}

func TestHealthAndScopes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/health", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"database":"up"`) {
		t.Errorf("/health: %d %s", w.Code, w.Body.String())
	}

	w = env.do("GET", "/api/scopes", nil, nil)
	var scopes envelope[[]struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}]
	decode(t, w, &scopes)
	if len(scopes.Data) != 4 || scopes.Data[0].Name != "profile" {
		t.Errorf("scopes = %+v", scopes.Data)
	}

	w = env.do("GET", "/metrics", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "maxidp_") {
		t.Errorf("/metrics: %d", w.Code)
	}
}
