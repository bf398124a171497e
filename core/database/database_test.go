package database

import (
	"net/url"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNormalize(t *testing.T) {
	cfg := Config{Host: "db", Name: "bot"}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 5, cfg.MaxConnections)

	assert.Error(t, (&Config{Name: "bot"}).Normalize())
	assert.Error(t, (&Config{Host: "db"}).Normalize())
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "p w'd", Name: "deals", SSLMode: "disable"}
	assert.Equal(t, `user=bot password='p w\'d' host=db port=5432 dbname=deals sslmode=disable`, cfg.DSN())

	u, err := url.Parse(cfg.URL())
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/deals", u.Path)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "bot", u.User.Username())
	pw, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p w'd", pw)
}

func TestMigrationFileSelection(t *testing.T) {
	src := fstest.MapFS{"README": {}}
	for _, name := range []string{"0002_add_index.up.sql", "0001_create_users.up.sql", "0001_create_users.down.sql"} {
		src[name] = &fstest.MapFile{Data: []byte("--")}
	}
	files := listMigrationFiles(src)
	assert.Equal(t, []string{"0001_create_users.up.sql", "0002_add_index.up.sql"}, files)

	assert.Equal(t, []string{"0002_add_index.up.sql"}, selectApplied(files, 1, 2))
	assert.Nil(t, selectApplied(files, 2, 2))
	assert.Equal(t, uint64(2), parseVersion("0002_add_index.up.sql"))
	assert.Equal(t, uint64(0), parseVersion("junk"))
}
