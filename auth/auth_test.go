package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SkillsGen/trainers/auth"
	"github.com/SkillsGen/trainers/query"
	"github.com/SkillsGen/trainers/testutil"
)

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestLoginSuccess(t *testing.T) {
	ex := query.New(testutil.OpenDB(t))
	fx := testutil.NewFixtures(t, ex)
	fx.Trainer("bob", hash(t, "other"))
	aliceID := fx.Trainer("alice", hash(t, "s3cret"))

	id, err := auth.New(ex, nil, nil).Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, aliceID, id)
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	ex := query.New(testutil.OpenDB(t))
	testutil.NewFixtures(t, ex).Trainer("alice", hash(t, "s3cret"))
	a := auth.New(ex, nil, nil)

	_, unknown := a.Login(context.Background(), "nobody", "s3cret")
	_, wrong := a.Login(context.Background(), "alice", "guess")

	assert.ErrorIs(t, unknown, auth.ErrInvalidCredentials)
	assert.ErrorIs(t, wrong, auth.ErrInvalidCredentials)
	assert.Equal(t, auth.Message(wrong), auth.Message(unknown))
	assert.Equal(t, "Incorrect password or nonexistent username.", auth.Message(wrong))
}

func TestLoginAmbiguousUsername(t *testing.T) {
	// No unique constraint here, so the anomaly can exist.
	ex := query.New(testutil.OpenEmptyDB(t))
	testutil.Exec(t, ex, "CREATE TABLE trainers (id INTEGER PRIMARY KEY, username TEXT, hash TEXT)", nil)
	h := hash(t, "s3cret")
	testutil.Exec(t, ex, "INSERT INTO trainers (username, hash) VALUES (:u, :h)", query.Params{"u": "alice", "h": h})
	testutil.Exec(t, ex, "INSERT INTO trainers (username, hash) VALUES (:u, :h)", query.Params{"u": "alice", "h": h})

	_, err := auth.New(ex, nil, nil).Login(context.Background(), "alice", "s3cret")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginValidation(t *testing.T) {
	calls := 0
	runner := stubRunner{selectFn: func() error { calls++; return nil }}
	a := auth.New(runner, nil, nil)

	_, err := a.Login(context.Background(), "  ", "pw")
	assert.ErrorIs(t, err, auth.ErrUsernameRequired)
	assert.Equal(t, "Username required.", auth.Message(err))

	_, err = a.Login(context.Background(), "alice", "")
	assert.ErrorIs(t, err, auth.ErrPasswordRequired)
	assert.Equal(t, "Password required.", auth.Message(err))

	assert.Zero(t, calls)
}

func TestLoginStoreErrorPropagates(t *testing.T) {
	boom := &query.ExecError{Query: "SELECT 1", Err: errors.New("connection reset")}
	a := auth.New(stubRunner{selectFn: func() error { return boom }}, nil, nil)

	_, err := a.Login(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, query.ErrExecution)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Empty(t, auth.Message(err))
}

func TestLoginUsesVerifier(t *testing.T) {
	ex := query.New(testutil.OpenDB(t))
	id := testutil.NewFixtures(t, ex).Trainer("alice", "plain:pw")

	verifier := auth.VerifierFunc(func(plaintext, hash string) bool { return hash == "plain:"+plaintext })
	got, err := auth.New(ex, verifier, nil).Login(context.Background(), " alice ", "pw")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestHashPassword(t *testing.T) {
	h, err := auth.HashPassword("alice", "s3cret")
	require.NoError(t, err)
	assert.True(t, auth.Bcrypt.Verify("s3cret", h))
	assert.False(t, auth.Bcrypt.Verify("nope", h))

	_, err = auth.HashPassword("", "x")
	assert.ErrorIs(t, err, auth.ErrUsernameRequired)
	_, err = auth.HashPassword("alice", " ")
	assert.ErrorIs(t, err, auth.ErrPasswordRequired)
}

type stubRunner struct {
	selectFn func() error
}

func (s stubRunner) Execute(context.Context, string, query.Params) (query.Result, error) {
	return query.Result{}, errors.New("not used")
}

func (s stubRunner) Select(context.Context, any, string, query.Params) error {
	return s.selectFn()
}
