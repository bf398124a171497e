package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bingwamta/databot/core/buildinfo"
	"github.com/bingwamta/databot/internal/directory"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedUsers(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_data.json")
	store, err := directory.OpenFile(path)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = store.Upsert(ctx, directory.Identity{ID: 7, FirstName: "Amina", LastName: "Otieno"})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, directory.Identity{ID: 8, Username: "kip"})
	require.NoError(t, err)
	require.NoError(t, store.Close())
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "databot "+buildinfo.String()+"\n", out)
}

func TestUsersCommandLists(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORAGE_DRIVER", "file")
	t.Setenv("USERS_FILE", seedUsers(t))

	out, err := execute(t, "users")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Amina Otieno")
	assert.Contains(t, out, "@kip")
}

func TestUsersCommandCount(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORAGE_DRIVER", "file")
	t.Setenv("USERS_FILE", seedUsers(t))

	out, err := execute(t, "users", "--count")
	require.NoError(t, err)
	assert.Contains(t, out, "total: 2\n")
	assert.Contains(t, out, "active_24h: 2\n")
}

func TestUsersCommandBadDriver(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORAGE_DRIVER", "mongo")

	_, err := execute(t, "users")
	assert.ErrorContains(t, err, "storage.driver")
}

func TestServeOptionsCarryConfigPath(t *testing.T) {
	opts := serveOptions(&RootOptions{ConfigPath: "bot.yaml"})
	assert.Equal(t, "bot.yaml", opts.ConfigPath)
	assert.NotNil(t, opts.LoadConfig)
	assert.NotNil(t, opts.Bootstrap)
}
