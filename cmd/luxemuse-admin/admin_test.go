package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/bootstrap"
	"github.com/luxemuse/luxe-muse-backend/internal/config"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
)

func memoryEnv(t *testing.T, ownerUID string) (*adminEnv, envOpener) {
	t.Helper()
	cfg := &config.Config{
		Port:                 "8080",
		Backend:              config.BackendMemory,
		OwnerUID:             ownerUID,
		DefaultUserCredits:   models.DefaultUserCredits,
		CreditsPerGeneration: models.CreditsPerGeneration,
		GenerationLockTTL:    time.Minute,
	}
	backends, err := bootstrap.Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(backends.Close)
	env := &adminEnv{
		cfg:      cfg,
		services: bootstrap.NewServices(cfg, backends, nil, zap.NewNop()),
		close:    func() {},
	}
	return env, func(context.Context, bool) (*adminEnv, error) { return env, nil }
}

func run(t *testing.T, open envOpener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(open)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestProfileGet(t *testing.T) {
	env, open := memoryEnv(t, "boss")
	_, err := env.services.Profiles.ResolveProfile(context.Background(), models.Principal{UID: "u1", Email: "ada@example.com"}, "")
	require.NoError(t, err)

	out, err := run(t, open, "profile", "get", "u1")
	require.NoError(t, err)
	var profile models.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &profile))
	assert.Equal(t, "u1", profile.UID)
	assert.Equal(t, models.DefaultUserCredits, profile.Credits)

	_, err = run(t, open, "profile", "get", "missing")
	assert.Error(t, err)

	_, err = run(t, open, "profile", "get")
	assert.Error(t, err)
}

func TestProfileResolveOwner(t *testing.T) {
	_, open := memoryEnv(t, "boss")
	out, err := run(t, open, "profile", "resolve-owner")
	require.NoError(t, err)
	var profile models.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &profile))
	assert.Equal(t, models.RoleOwner, profile.Role)
	assert.Equal(t, models.OwnerCredits, profile.Credits)

	_, open = memoryEnv(t, "")
	_, err = run(t, open, "profile", "resolve-owner")
	assert.ErrorContains(t, err, "OWNER_UID")
}

func TestCreditsGrant(t *testing.T) {
	env, open := memoryEnv(t, "boss")
	_, err := env.services.Profiles.ResolveProfile(context.Background(), models.Principal{UID: "u1"}, "")
	require.NoError(t, err)

	out, err := run(t, open, "credits", "grant", "u1", "15")
	require.NoError(t, err)
	assert.JSONEq(t, `{"uid":"u1","credits":115}`, out)

	_, err = run(t, open, "credits", "grant", "u1", "lots")
	assert.Error(t, err)
	_, err = run(t, open, "credits", "grant", "u1", "0")
	assert.Error(t, err)
	_, err = run(t, open, "credits", "grant", "nobody", "5")
	assert.Error(t, err)
}
