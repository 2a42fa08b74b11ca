package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/content"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/entitlement"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/identity"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/jwtsigner"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/service"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store/storetest"
	transport "github.com/therealvallalhatatlan/vallal-v1-sub001/internal/transport/http"
)

var testNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

var users = map[string]identity.User{
	"reader-token":   {ID: "u-reader", Email: "reader@example.com"},
	"stranger-token": {ID: "u-stranger", Email: "stranger@example.com"},
	"admin-token":    {ID: "u-admin", Email: "Admin@Example.com"},
}

type stubAuth struct{}

func (stubAuth) Authenticate(r *http.Request) (identity.User, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return identity.User{}, identity.ErrMissingToken
	}
	u, ok := users[strings.TrimPrefix(h, "Bearer ")]
	if !ok {
		return identity.User{}, identity.ErrInvalidToken
	}
	return u, nil
}

type captureMailer struct{ link string }

func (m *captureMailer) SendMagicLink(_ context.Context, _, link string) error {
	m.link = link
	return nil
}

type fakeAudio struct{ key string }

func (f *fakeAudio) Serve(w http.ResponseWriter, _ *http.Request, key string) {
	f.key = key
	w.WriteHeader(http.StatusOK)
}

type brokenSystem struct{}

func (brokenSystem) Status(context.Context) (service.SystemStatus, error) {
	return service.SystemStatus{}, errors.New("connection refused")
}

func (brokenSystem) SetMode(context.Context, domain.Mode, string) (service.SystemStatus, error) {
	return service.SystemStatus{}, errors.New("connection refused")
}

type testEnv struct {
	st      *store.Store
	handler http.Handler
	mailer  *captureMailer
	audio   *fakeAudio
	writes  *atomic.Int64
}

func newEnv(t *testing.T, mutate ...func(*transport.Deps)) *testEnv {
	t.Helper()
	st := storetest.New(t)
	var ticks atomic.Int64
	clock := func() time.Time { return testNow.Add(time.Duration(ticks.Add(1)) * time.Second) }

	_, err := st.Readers().Add(context.Background(), "Reader@Example.com")
	require.NoError(t, err)

	secret := []byte(strings.Repeat("x", 32))
	magic, err := jwtsigner.NewFromSecret(secret, "magic-link", "magic-v1", "test")
	require.NoError(t, err)
	session, err := jwtsigner.NewFromSecret(secret, "session", "session-v1", "test")
	require.NoError(t, err)
	mailer := &captureMailer{}
	sessions := identity.NewSessions(magic, session, mailer, identity.SessionConfig{
		BaseURL: "http://site.test", MagicTTL: time.Minute, SessionTTL: time.Hour,
	})

	catalog, err := content.LoadCatalog([]byte(`
stories:
  - {slug: masodik, title: Második, order: 2}
  - {slug: elso, title: Első, order: 1}
playlists:
  - slug: mix
    title: Mix
    tracks:
      - {title: One, file: mix/01.mp3, duration: 65, spectrum: [1, 0.5]}
`))
	require.NoError(t, err)
	texts := content.NewTextStoreFS(fstest.MapFS{"elso.txt": {Data: []byte("Első szöveg")}})

	audio := &fakeAudio{}
	deps := transport.Deps{
		Auth:     stubAuth{},
		Sessions: sessions,
		Access:   entitlement.NewChecker(st.Readers(), false),
		Library:  content.NewLibrary(catalog, texts),
		Inbox:    service.NewInbox(st, clock),
		Presence: service.NewPresence(st, clock),
		System:   service.NewSystem(st, clock),
		Gifts:    service.NewGifts(st, clock),
		Audio:    audio,
		Admins:   []string{"admin@example.com"},
		Options:  transport.Options{RateLimitPerMinute: 1000},
	}
	for _, m := range mutate {
		m(&deps)
	}

	return &testEnv{
		st:      st,
		handler: transport.NewRouter(deps),
		mailer:  mailer,
		audio:   audio,
		writes:  countWrites(t, st.DB),
	}
}

// countWrites counts every insert, update and delete gorm issues.
func countWrites(t *testing.T, db *gorm.DB) *atomic.Int64 {
	t.Helper()
	var n atomic.Int64
	inc := func(*gorm.DB) { n.Add(1) }
	cb := db.Callback()
	require.NoError(t, cb.Create().Before("gorm:create").Register("test:count_create", inc))
	require.NoError(t, cb.Update().Before("gorm:update").Register("test:count_update", inc))
	require.NoError(t, cb.Delete().Before("gorm:delete").Register("test:count_delete", inc))
	return &n
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body: %s", rr.Body.String())
	return out
}

func requireError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rr.Code, "body: %s", rr.Body.String())
	require.Equal(t, code, decode(t, rr)["error"])
}

func TestHealthz(t *testing.T) {
	env := newEnv(t)
	rr := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReaderAccess(t *testing.T) {
	env := newEnv(t)

	requireError(t, env.do(t, http.MethodGet, "/api/reader-access", "", nil), http.StatusUnauthorized, "missing_token")
	requireError(t, env.do(t, http.MethodGet, "/api/reader-access", "forged", nil), http.StatusUnauthorized, "unauthenticated")

	rr := env.do(t, http.MethodGet, "/api/reader-access", "reader-token", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	require.Equal(t, true, body["hasAccess"])
	require.Equal(t, "reader@example.com", body["email"])

	rr = env.do(t, http.MethodGet, "/api/reader-access", "stranger-token", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, false, decode(t, rr)["hasAccess"])
}

func TestReaderStories(t *testing.T) {
	env := newEnv(t)

	requireError(t, env.do(t, http.MethodGet, "/api/reader-stories", "stranger-token", nil), http.StatusForbidden, "no_access")

	rr := env.do(t, http.MethodGet, "/api/reader-stories", "reader-token", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Stories []content.Story `json:"stories"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Stories, 2)
	require.Equal(t, "elso", body.Stories[0].Slug)
	require.Equal(t, "Első szöveg", body.Stories[0].Text)
	require.Equal(t, content.Placeholder, body.Stories[1].Text)
}

func TestPlaylists(t *testing.T) {
	env := newEnv(t)
	rr := env.do(t, http.MethodGet, "/api/playlists", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Playlists []content.PlaylistView `json:"playlists"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Playlists, 1)
	require.Equal(t, "1:05", body.Playlists[0].Tracks[0].DurationLabel)
	require.Equal(t, "/api/audio/mix/01.mp3", body.Playlists[0].Tracks[0].Src)
}

func TestInboxFlow(t *testing.T) {
	env := newEnv(t)

	rr := env.do(t, http.MethodGet, "/api/inbox", "reader-token", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	require.Nil(t, body["conversation"])
	require.Equal(t, false, body["isAdmin"])

	first := decode(t, env.do(t, http.MethodPost, "/api/inbox", "reader-token", nil))["conversationId"]
	second := decode(t, env.do(t, http.MethodPost, "/api/inbox", "reader-token", nil))["conversationId"]
	require.NotEmpty(t, first)
	require.Equal(t, first, second)

	rr = env.do(t, http.MethodPost, "/api/inbox/messages", "reader-token", map[string]string{"body": "Hol a csomag?"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodPost, "/api/admin/inbox/"+first.(string)+"/messages", "admin-token", map[string]string{"body": "Úton van."})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/api/inbox/messages", "reader-token", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	msgs := decode(t, rr)["messages"].([]any)
	require.Len(t, msgs, 2)
	require.Equal(t, true, msgs[1].(map[string]any)["fromAdmin"])

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/inbox/read", "reader-token", nil).Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/inbox/"+first.(string)+"/read", "admin-token", nil).Code)

	rr = env.do(t, http.MethodGet, "/api/inbox", "admin-token", nil)
	require.Equal(t, true, decode(t, rr)["isAdmin"])
}

func TestInboxValidation(t *testing.T) {
	env := newEnv(t)

	requireError(t, env.do(t, http.MethodPost, "/api/inbox/messages", "reader-token", map[string]string{"body": ""}), http.StatusBadRequest, "bad_request")
	requireError(t, env.do(t, http.MethodPost, "/api/inbox/messages", "reader-token", map[string]string{"body": "   "}), http.StatusBadRequest, "bad_request")
	requireError(t, env.do(t, http.MethodPost, "/api/inbox/read", "reader-token", nil), http.StatusNotFound, "not_found")
	requireError(t, env.do(t, http.MethodGet, "/api/admin/inbox/not-a-uuid/messages", "admin-token", nil), http.StatusBadRequest, "bad_request")
}

func TestAdminInbox(t *testing.T) {
	env := newEnv(t)

	for _, tok := range []string{"reader-token", "stranger-token"} {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/inbox", tok, nil).Code)
	}

	requireError(t, env.do(t, http.MethodGet, "/api/admin/inbox", "reader-token", nil), http.StatusForbidden, "forbidden")
	requireError(t, env.do(t, http.MethodGet, "/api/admin/inbox", "", nil), http.StatusUnauthorized, "missing_token")

	cases := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"?limit=0", 1},
		{"?limit=-3", 1},
		{"?limit=1", 1},
		{"?limit=999", 2},
		{"?limit=abc", 2},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/api/admin/inbox"+tc.query, "admin-token", nil)
			require.Equal(t, http.StatusOK, rr.Code)
			require.Len(t, decode(t, rr)["conversations"].([]any), tc.want)
		})
	}
}

func TestReadOnlyRejectsWritesBeforeMutation(t *testing.T) {
	env := newEnv(t)
	require.NoError(t, env.st.System().Set(context.Background(), domain.ModeReadOnly, "ops", testNow))
	_, err := service.NewGifts(env.st, func() time.Time { return testNow }).Create(context.Background(), "drop", time.Hour)
	require.NoError(t, err)
	env.writes.Store(0)

	writes := []struct {
		path  string
		token string
		body  any
	}{
		{"/api/inbox", "reader-token", nil},
		{"/api/inbox/messages", "reader-token", map[string]string{"body": "hello"}},
		{"/api/inbox/read", "reader-token", nil},
		{"/api/presence", "reader-token", nil},
		{"/api/gift/drop", "", nil},
		{"/api/admin/inbox/00000000-0000-0000-0000-000000000001/messages", "admin-token", map[string]string{"body": "hi"}},
		{"/api/admin/inbox/00000000-0000-0000-0000-000000000001/read", "admin-token", nil},
	}
	for _, w := range writes {
		t.Run(w.path, func(t *testing.T) {
			requireError(t, env.do(t, http.MethodPost, w.path, w.token, w.body), http.StatusServiceUnavailable, "read_only")
		})
	}
	require.Zero(t, env.writes.Load(), "no write may reach the database in READ_ONLY")

	gift, err := env.st.Gifts().Get(context.Background(), "drop")
	require.NoError(t, err)
	require.False(t, gift.Revealed)

	// Reads keep working.
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/inbox", "reader-token", nil).Code)

	// The admin switch is not guarded and re-enables writes.
	rr := env.do(t, http.MethodPut, "/api/admin/system", "admin-token", map[string]string{"mode": "SAFE"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "SAFE", decode(t, rr)["mode"])
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/inbox", "reader-token", nil).Code)
}

func TestWriteGuardFailsClosed(t *testing.T) {
	env := newEnv(t, func(d *transport.Deps) { d.System = brokenSystem{} })
	env.writes.Store(0)

	requireError(t, env.do(t, http.MethodPost, "/api/inbox", "reader-token", nil), http.StatusInternalServerError, "server_error")
	requireError(t, env.do(t, http.MethodPost, "/api/gift/anything", "", nil), http.StatusInternalServerError, "server_error")
	require.Zero(t, env.writes.Load())
}

func TestSystemStatus(t *testing.T) {
	env := newEnv(t)

	rr := env.do(t, http.MethodGet, "/api/system/status", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "public, max-age=30", rr.Header().Get("Cache-Control"))
	body := decode(t, rr)
	require.Equal(t, "SAFE", body["mode"])
	require.Contains(t, body, "updatedAt")
	require.Contains(t, body, "updatedBy")

	requireError(t, env.do(t, http.MethodPut, "/api/admin/system", "reader-token", map[string]string{"mode": "READ_ONLY"}), http.StatusForbidden, "forbidden")
	requireError(t, env.do(t, http.MethodPut, "/api/admin/system", "admin-token", map[string]string{"mode": "OFF"}), http.StatusBadRequest, "bad_request")

	rr = env.do(t, http.MethodPut, "/api/admin/system", "admin-token", map[string]string{"mode": "READ_ONLY"})
	require.Equal(t, http.StatusOK, rr.Code)
	body = decode(t, env.do(t, http.MethodGet, "/api/system/status", "", nil))
	require.Equal(t, "READ_ONLY", body["mode"])
	require.Equal(t, "Admin@Example.com", body["updatedBy"])
}

func TestGiftReveal(t *testing.T) {
	env := newEnv(t)
	gift, err := service.NewGifts(env.st, func() time.Time { return testNow }).Create(context.Background(), "drop-7", time.Hour)
	require.NoError(t, err)

	rr := env.do(t, http.MethodPost, "/api/gift/drop-7", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	require.Equal(t, true, body["ok"])
	require.Equal(t, gift.SecretToken, body["token"])

	requireError(t, env.do(t, http.MethodPost, "/api/gift/drop-7", "", nil), http.StatusConflict, "already_revealed")
	requireError(t, env.do(t, http.MethodPost, "/api/gift/nope", "", nil), http.StatusNotFound, "gift_not_found")
}

func TestPresenceEndpoints(t *testing.T) {
	env := newEnv(t)

	requireError(t, env.do(t, http.MethodPost, "/api/presence", "", nil), http.StatusUnauthorized, "missing_token")

	rr := env.do(t, http.MethodPost, "/api/presence", "reader-token", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, true, decode(t, rr)["success"])
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/presence", "reader-token", nil).Code)

	rr = env.do(t, http.MethodGet, "/api/presence", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualValues(t, 1, decode(t, rr)["count"])
}

func TestMagicLinkSession(t *testing.T) {
	env := newEnv(t, func(d *transport.Deps) {
		d.Options.SecureCookies = true
		d.Auth = identity.NewAuthenticator(nil, d.Sessions.(*identity.Sessions))
	})

	requireError(t, env.do(t, http.MethodPost, "/api/auth/magic-link", "", map[string]string{"email": "not-an-email"}), http.StatusBadRequest, "bad_request")

	rr := env.do(t, http.MethodPost, "/api/auth/magic-link", "", map[string]string{"email": "Reader@Example.com"})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	require.NotEmpty(t, env.mailer.link)

	link, err := url.Parse(env.mailer.link)
	require.NoError(t, err)
	rr = env.do(t, http.MethodGet, link.RequestURI(), "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var session *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == identity.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	require.True(t, session.HttpOnly)
	require.True(t, session.Secure)
	require.Equal(t, http.SameSiteLaxMode, session.SameSite)
	require.Equal(t, "reader@example.com", decode(t, rr)["user"].(map[string]any)["email"])

	me := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	me.AddCookie(session)
	meRR := httptest.NewRecorder()
	env.handler.ServeHTTP(meRR, me)
	require.Equal(t, http.StatusOK, meRR.Code, meRR.Body.String())
	require.Equal(t, identity.UserIDForEmail("reader@example.com"), decode(t, meRR)["user"].(map[string]any)["id"])
	requireError(t, env.do(t, http.MethodGet, "/api/auth/me", "", nil), http.StatusUnauthorized, "missing_token")

	requireError(t, env.do(t, http.MethodGet, "/api/auth/verify?token=garbage", "", nil), http.StatusUnauthorized, "unauthenticated")
	requireError(t, env.do(t, http.MethodGet, "/api/auth/verify", "", nil), http.StatusUnauthorized, "missing_token")

	rr = env.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cleared := rr.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Equal(t, identity.SessionCookie, cleared[0].Name)
	require.Empty(t, cleared[0].Value)
	require.Less(t, cleared[0].MaxAge, 0)
}

func TestAudioRoute(t *testing.T) {
	env := newEnv(t)
	rr := env.do(t, http.MethodGet, "/api/audio/mix/01.mp3", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "mix/01.mp3", env.audio.key)

	noAudio := newEnv(t, func(d *transport.Deps) { d.Audio = nil })
	requireError(t, noAudio.do(t, http.MethodGet, "/api/audio/a.mp3", "", nil), http.StatusInternalServerError, "server_misconfigured")
}
