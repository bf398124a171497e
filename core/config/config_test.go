package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func TestLoadFromYAML(t *testing.T) {
	path := writeFile(t, `
telegram:
  token: "123:abc"
  admin_ids: [11, 22]
logging:
  level: debug
rate_limit:
  interval_ms: 300
  exclude_updates: [" Callback "]
`)
	cfg, err := load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, IDList{11, 22}, cfg.Telegram.AdminIDs)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "telegram:\n  token: from-file\n")
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("ADMIN_USER_IDS", " 5, 6 ,,")

	cfg, err := load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, IDList{5, 6}, cfg.Telegram.AdminIDs)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")

	cfg, err := load("")
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.Token)
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "missing token", cfg: Config{}, want: "BOT_TOKEN"},
		{name: "bad run mode", cfg: Config{Telegram: TelegramConfig{Token: "t", RunMode: "carrier-pigeon"}}, want: "run_mode"},
		{name: "webhook without url", cfg: Config{Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}}, want: "webhook.url"},
		{name: "negative admin id", cfg: Config{Telegram: TelegramConfig{Token: "t", AdminIDs: IDList{-1}}}, want: "admin_ids"},
		{name: "bad exclusion", cfg: Config{Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline"}}}, want: "exclude_updates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Normalize(&tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Error(t, Normalize(nil))
}

func TestNormalizeWebhook(t *testing.T) {
	cfg := Config{
		Telegram: TelegramConfig{Token: "t", RunMode: " WEBHOOK "},
		Webhook:  WebhookConfig{URL: "https://example.com/hook", Listen: "0.0.0.0", Port: 8443},
	}
	require.NoError(t, Normalize(&cfg))
	assert.Equal(t, RunModeWebhook, cfg.Telegram.RunMode)
}

func TestIDListDecode(t *testing.T) {
	var l IDList
	require.NoError(t, l.Decode("1,2, 3"))
	assert.Equal(t, IDList{1, 2, 3}, l)

	require.NoError(t, l.Decode(""))
	assert.Empty(t, l)

	assert.Error(t, l.Decode("1,abc"))
}

func TestDecodeMissingFile(t *testing.T) {
	var cfg Config
	err := Decode(filepath.Join(t.TempDir(), "nope.yaml"), &cfg)
	assert.ErrorContains(t, err, "read config file")
}
