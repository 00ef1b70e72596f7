package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/sailor/internal/clock"
	"github.com/cory-johannsen/sailor/internal/config"
	"github.com/cory-johannsen/sailor/internal/game/gameerr"
	"github.com/cory-johannsen/sailor/internal/gameserver"
	"github.com/cory-johannsen/sailor/internal/testutil"
)

var now = time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC)

func loadConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func buildService(t *testing.T, cfg config.Config) *gameserver.Service {
	t.Helper()
	a := &app{logger: zap.NewNop()}
	svc, err := a.build(context.Background(), cfg, clock.NewFixed(now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return svc
}

func TestBuild_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	svc := buildService(t, loadConfig(t, map[string]string{"SAILOR_STORAGE_BACKEND": "memory"}))

	_, err := svc.Register(ctx, gameserver.RegisterRequest{UserID: 1, Archetype: "water"})
	require.NoError(t, err)
	prof, err := svc.Profile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Sailor Mercury", prof.Archetype.Name)
}

func TestBuild_RedisHoldsInvitations(t *testing.T) {
	ctx := context.Background()
	mr, _ := testutil.NewMiniRedis(t)
	svc := buildService(t, loadConfig(t, map[string]string{
		"SAILOR_STORAGE_BACKEND": "memory",
		"SAILOR_REDIS_ENABLED":   "true",
		"SAILOR_REDIS_ADDR":      mr.Addr(),
	}))

	_, err := svc.Register(ctx, gameserver.RegisterRequest{UserID: 1, Handle: "usagi", Archetype: "luna"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, gameserver.RegisterRequest{UserID: 2, Handle: "rei", Archetype: "fire"})
	require.NoError(t, err)
	res, err := svc.Invite(ctx, 1, "rei")
	require.NoError(t, err)

	assert.True(t, mr.Exists("sailor:invitation:"+res.Invitation.ID.String()))
	members, err := mr.ZMembers("sailor:leaderboard")
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestBuild_BadCatalogPath(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"SAILOR_STORAGE_BACKEND":   "memory",
		"SAILOR_GAME_CATALOG_PATH": filepath.Join(t.TempDir(), "missing.yaml"),
	})
	a := &app{logger: zap.NewNop()}
	_, err := a.build(context.Background(), cfg, clock.NewFixed(now))
	assert.Error(t, err)
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), "sailor %s", strings.Join(args, " "))
	return out.String()
}

func TestCLI_SQLiteSession(t *testing.T) {
	t.Setenv("SAILOR_STORAGE_BACKEND", "sqlite")
	t.Setenv("SAILOR_SQLITE_PATH", filepath.Join(t.TempDir(), "sailor.db"))
	t.Setenv("SAILOR_LOGGING_LEVEL", "error")

	assert.Contains(t, run(t, "archetypes"), "Sailor Jupiter")
	assert.Contains(t, run(t, "--user", "1", "register", "--archetype", "luna", "--handle", "usagi", "--name", "Usagi"), "Sailor Moon")
	run(t, "--user", "2", "register", "--archetype", "fire", "--handle", "rei", "--name", "Rei")

	assert.Contains(t, run(t, "--user", "1", "profile"), "Gold: 50 gold")
	assert.Contains(t, run(t, "--user", "1", "buy", "healing_herb"), "Remaining: 20 gold")
	assert.Contains(t, run(t, "--user", "1", "inventory"), "healing_herb")
	assert.Contains(t, run(t, "--user", "1", "invite", "@rei"), "sent to Rei")

	listing := run(t, "--user", "2", "invitations")
	invID := strings.Fields(listing)[0]
	assert.Contains(t, run(t, "--user", "2", "respond", invID, "accept"), "Team 1 is formed")
	assert.Contains(t, run(t, "--user", "1", "team"), "members: Usagi, Rei")
	assert.Contains(t, run(t, "--user", "1", "energy"), "Energy: 5/5")
	assert.Contains(t, run(t, "leaderboard"), "Usagi")
	assert.Contains(t, run(t, "admin", "deactivate-team", "1"), "Team 1 deactivated")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(gameerr.New(gameerr.CodeAlreadyClaimed, "already claimed today")))
	assert.Equal(t, 1, exitCode(gameerr.New(gameerr.CodeNotInTeam, "no team")))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}
