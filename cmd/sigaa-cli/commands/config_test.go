package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"SIGAA_URL", "SIGAA_USER", "SIGAA_PASS"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	err := os.WriteFile(path, []byte(`{
		// comments are fine
		username: '2023100001',
		password: 'from-file',
		cookies: { JSESSIONID: 'B3F1C2D4E5' },
		rate_limit: 1.5,
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{ password: 'from-local' }`), 0600)
	require.NoError(t, err)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	expect := Config{
		BaseUrl:   defaultBaseUrl,
		Username:  "2023100001",
		Password:  "from-local",
		Cookies:   map[string]string{"JSESSIONID": "B3F1C2D4E5"},
		RateLimit: 1.5,
	}
	if diff := cmp.Diff(expect, cfg); diff != "" {
		t.Fatal("unexpected config (-want +got)\n", diff)
	}
	require.True(t, cfg.hasCredentials())
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIGAA_URL", "https://sigaa.example.edu.br")
	t.Setenv("SIGAA_USER", "2023100002")
	t.Setenv("SIGAA_PASS", "hunter2")

	// the file is optional when the environment has everything.
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://sigaa.example.edu.br", cfg.BaseUrl)
	require.Equal(t, "2023100002", cfg.Username)
	require.Equal(t, "hunter2", cfg.Password)
}

func TestLoadConfigInvalid(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{ username: `), 0600))

	_, err := loadConfig(path)
	require.Error(t, err)
}

func TestOpenAccountWithoutCredentials(t *testing.T) {
	client, account, err := openAccount(context.Background(), Config{BaseUrl: defaultBaseUrl})
	require.ErrorIs(t, err, errMissingCredentials)
	require.Nil(t, client)
	require.Nil(t, account)
}
