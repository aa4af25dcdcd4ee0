package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SkillsGen/trainers/handlers"
	mw "github.com/SkillsGen/trainers/middleware"
	"github.com/SkillsGen/trainers/query"
	"github.com/SkillsGen/trainers/testutil"
)

var jwtKey = []byte("test-signing-key")

// countingRunner counts every statement that reaches the store.
type countingRunner struct {
	query.Runner
	calls int
}

func (r *countingRunner) Execute(ctx context.Context, statement string, params query.Params) (query.Result, error) {
	r.calls++
	return r.Runner.Execute(ctx, statement, params)
}

func (r *countingRunner) Select(ctx context.Context, dst any, statement string, params query.Params) error {
	r.calls++
	return r.Runner.Select(ctx, dst, statement, params)
}

type app struct {
	e       *echo.Echo
	runner  *countingRunner
	fx      *testutil.Fixtures
	trainer int64
	booking int64
}

func newApp(t *testing.T) *app {
	t.Helper()
	bdb := testutil.OpenDB(t)
	runner := &countingRunner{Runner: query.New(bdb)}
	fx := testutil.NewFixtures(t, runner)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	trainer := fx.Trainer("alice", string(hash))
	course := fx.Course("Excel Advanced")
	booking := fx.Booking(trainer, course, time.Now().AddDate(0, 0, 3), "Leeds")
	fx.Delegates(booking, 2)
	fx.PCQ(booking, "Dee Legate", 5)

	sessions := mw.NewFilesystemSessions(t.TempDir(), 3600, false, nil, securecookie.GenerateRandomKey(32))
	h := handlers.New(handlers.Deps{
		Runner:   runner,
		Store:    bdb,
		Sessions: sessions,
		JWTKey:   jwtKey,
	})

	e := echo.New()
	e.Use(sessions.Load())
	h.Register(e)

	return &app{e: e, runner: runner, fx: fx, trainer: trainer, booking: booking}
}

func (a *app) do(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) get(target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, target, nil), cookies)
}

func (a *app) postLogin(username, password, next string) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {password}, "next": {next}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return a.do(req, nil)
}

func (a *app) login(t *testing.T) []*http.Cookie {
	t.Helper()
	rec := a.postLogin("alice", "s3cret", "")
	require.Equal(t, http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func TestGuardedPagesRedirectAnonymous(t *testing.T) {
	a := newApp(t)

	rec := a.get("/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = a.get("/pcq?key=5", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?next=%2Fpcq%3Fkey%3D5", rec.Header().Get(echo.HeaderLocation))
}

func TestLoginForm(t *testing.T) {
	a := newApp(t)

	rec := a.get("/login?next=%2Fpcq%3Fkey%3D5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="username"`)
	assert.Contains(t, rec.Body.String(), `value="/pcq?key=5"`)
}

func TestLoginFailureMessages(t *testing.T) {
	a := newApp(t)

	tests := []struct {
		username, password, message string
	}{
		{"", "s3cret", "Username required."},
		{"alice", "", "Password required."},
		{"alice", "wrong", "Incorrect password or nonexistent username."},
		{"nobody", "s3cret", "Incorrect password or nonexistent username."},
	}
	for _, tt := range tests {
		rec := a.postLogin(tt.username, tt.password, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), tt.message)
		assert.Empty(t, rec.Result().Cookies())
	}
}

func TestLoginThenSchedule(t *testing.T) {
	a := newApp(t)
	cookies := a.login(t)

	rec := a.get("/", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Excel Advanced")
	assert.Contains(t, body, "Leeds")
	assert.Contains(t, body, "<strong>laptops</strong>")
	assert.Contains(t, body, "/pcq?key="+strconv.FormatInt(a.booking, 10))

	post := a.do(httptest.NewRequest(http.MethodPost, "/", nil), cookies)
	assert.Equal(t, http.StatusOK, post.Code)
}

func TestLoginFollowsLocalNext(t *testing.T) {
	a := newApp(t)

	rec := a.postLogin("alice", "s3cret", "/pcq?key=7")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/pcq?key=7", rec.Header().Get(echo.HeaderLocation))

	rec = a.postLogin("alice", "s3cret", "https://evil.example/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestPCQWithoutKeyTouchesNothing(t *testing.T) {
	a := newApp(t)
	cookies := a.login(t)

	before := a.runner.calls
	rec := a.get("/pcq", cookies)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Fail", rec.Body.String())
	assert.Equal(t, before, a.runner.calls)
}

func TestPCQ(t *testing.T) {
	a := newApp(t)
	cookies := a.login(t)

	rec := a.get("/pcq?key="+strconv.FormatInt(a.booking, 10), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Excel Advanced")
	assert.Contains(t, rec.Body.String(), "Dee Legate")

	assert.Equal(t, http.StatusBadRequest, a.get("/pcq?key=abc", cookies).Code)
	assert.Equal(t, http.StatusNotFound, a.get("/pcq?key=9999", cookies).Code)
}

func TestLogout(t *testing.T) {
	a := newApp(t)
	cookies := a.login(t)

	rec := a.get("/logout", cookies)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	after := a.get("/", cookies)
	assert.Equal(t, http.StatusFound, after.Code)
	assert.Equal(t, "/login", after.Header().Get(echo.HeaderLocation))

	// Logging out twice, or without ever logging in, is harmless.
	assert.Equal(t, http.StatusFound, a.get("/logout", cookies).Code)
	assert.Equal(t, http.StatusFound, a.get("/logout", nil).Code)
}

func signin(t *testing.T, a *app, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/signin", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return a.do(req, nil)
}

func TestAPISigninAndSchedule(t *testing.T) {
	a := newApp(t)

	rec := signin(t, a, "alice", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out["token"])

	req := httptest.NewRequest(http.MethodGet, "/api/schedule", nil)
	req.Header.Set("Authorization", "Bearer "+out["token"])
	rec = a.do(req, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var bookings []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bookings))
	require.Len(t, bookings, 1)
	assert.Equal(t, "Excel Advanced", bookings[0]["courseName"])
	assert.EqualValues(t, 2, bookings[0]["delegateCount"])
	assert.Equal(t, true, bookings[0]["hasQuestionnaires"])

	req = httptest.NewRequest(http.MethodGet, "/api/pcq?key="+strconv.FormatInt(a.booking, 10), nil)
	req.Header.Set("Authorization", "Bearer "+out["token"])
	rec = a.do(req, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"delegate":"Dee Legate"`)
}

func TestAPISigninRejectsBadCredentials(t *testing.T) {
	a := newApp(t)

	assert.Equal(t, http.StatusUnauthorized, signin(t, a, "alice", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, signin(t, a, "", "s3cret").Code)
	assert.Equal(t, http.StatusUnauthorized, a.get("/api/schedule", nil).Code)
}

func TestStoreFailureIsInternalError(t *testing.T) {
	sessions := mw.NewFilesystemSessions(t.TempDir(), 3600, false, nil, securecookie.GenerateRandomKey(32))
	boom := &query.ExecError{Query: "SELECT 1", Err: errors.New("connection refused")}
	h := handlers.New(handlers.Deps{Runner: failingRunner{err: boom}, Sessions: sessions, JWTKey: jwtKey})

	e := echo.New()
	h.Register(e)

	form := url.Values{"username": {"alice"}, "password": {"s3cret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestHealth(t *testing.T) {
	a := newApp(t)

	rec := a.get("/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type failingRunner struct {
	err error
}

func (f failingRunner) Execute(context.Context, string, query.Params) (query.Result, error) {
	return query.Result{}, f.err
}

func (f failingRunner) Select(context.Context, any, string, query.Params) error {
	return f.err
}
