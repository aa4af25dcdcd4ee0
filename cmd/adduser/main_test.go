package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkillsGen/trainers/auth"
	"github.com/SkillsGen/trainers/query"
	"github.com/SkillsGen/trainers/testutil"
)

func TestUpsertTrainer(t *testing.T) {
	ex := query.New(testutil.OpenDB(t))
	ctx := context.Background()

	first, err := auth.HashPassword("alice", "one")
	require.NoError(t, err)
	created, err := upsertTrainer(ctx, ex, "alice", first)
	require.NoError(t, err)
	assert.True(t, created)

	second, err := auth.HashPassword("alice", "two")
	require.NoError(t, err)
	created, err = upsertTrainer(ctx, ex, "alice", second)
	require.NoError(t, err)
	assert.False(t, created)

	a := auth.New(ex, nil, nil)
	_, err = a.Login(ctx, "alice", "one")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = a.Login(ctx, "alice", "two")
	assert.NoError(t, err)

	res := testutil.Exec(t, ex, "SELECT COUNT(*) AS n FROM trainers", nil)
	n, _ := res.Rows[0].Int64("n")
	assert.Equal(t, int64(1), n)
}

func TestUpsertTrainerTrimsUsername(t *testing.T) {
	ex := query.New(testutil.OpenDB(t))
	ctx := context.Background()

	hash, err := auth.HashPassword(" alice ", "pw")
	require.NoError(t, err)
	created, err := upsertTrainer(ctx, ex, " alice ", hash)
	require.NoError(t, err)
	assert.True(t, created)

	_, err = auth.New(ex, nil, nil).Login(ctx, "alice", "pw")
	assert.NoError(t, err)
}
