package main

import (
	"context"
	"testing"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/gateway/local"
	"github.com/VULUxOMID/GoldGames/internal/gateway/supabase"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/stretchr/testify/require"
)

func TestOpenGateway(t *testing.T) {
	ctx := context.Background()

	gw, closeFn, err := openGateway(ctx, models.BackendConfig{URL: "https://abc.supabase.co", AnonKey: "anon", Timeout: time.Second})
	require.NoError(t, err)
	require.IsType(t, &supabase.Client{}, gw)
	closeFn()

	_, _, err = openGateway(ctx, models.BackendConfig{URL: "sqlite3://:memory:", AnonKey: "anon"})
	require.ErrorIs(t, err, ErrMissingJWTSecret)

	gw, closeFn, err = openGateway(ctx, models.BackendConfig{URL: "sqlite3://:memory:", AnonKey: "anon", JWTSecret: "jwt"})
	require.NoError(t, err)
	require.IsType(t, &local.Gateway{}, gw)
	closeFn()

	_, _, err = openGateway(ctx, models.BackendConfig{URL: "ftp://example.com", AnonKey: "anon"})
	require.Error(t, err)
}

func TestRedact(t *testing.T) {
	require.Equal(t, "postgres://app@db:5432/gold", redact("postgres://app:hunter2@db:5432/gold"))
	require.Equal(t, "https://abc.supabase.co", redact("https://abc.supabase.co"))
}
