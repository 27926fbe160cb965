package commands

import (
	"errors"
	"os"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/components/configutil"
)

const defaultBaseUrl = "https://sigaa.ifal.edu.br"

type Config struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	// Cookies restores a session printed by the cookies command, login only happens
	// when it has expired.
	Cookies          map[string]string `json:"cookies"`
	RateLimit        float64           `json:"rate_limit"`
	BypassCloudflare bool              `json:"bypass_cloudflare"`
}

var errMissingCredentials = errors.New("no credentials: set username/password in the config or SIGAA_USER/SIGAA_PASS")

// loadConfig reads the config file, which may be missing, and applies the SIGAA_URL,
// SIGAA_USER and SIGAA_PASS environment variables over it.
func loadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	if value, ok := os.LookupEnv("SIGAA_URL"); ok && value != "" {
		cfg.BaseUrl = value
	}
	if value, ok := os.LookupEnv("SIGAA_USER"); ok && value != "" {
		cfg.Username = value
	}
	if value, ok := os.LookupEnv("SIGAA_PASS"); ok && value != "" {
		cfg.Password = value
	}
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = defaultBaseUrl
	}
	return cfg, nil
}

func (c Config) hasCredentials() bool {
	return c.Username != "" && c.Password != ""
}
