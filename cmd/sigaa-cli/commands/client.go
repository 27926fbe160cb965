package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/components/telemetry"
	"github.com/alc0hen/espelho-ifal-sigaa/internal/scrapers/sigaa"
)

func newTelemetryAPI() telemetry.API {
	var api telemetry.API = telemetry.SlogAPI{}
	metered, err := telemetry.NewMeteredAPI(api, otel.Meter("sigaa-cli"))
	if err != nil {
		slog.Warn("report metrics disabled", "err", err)
		return api
	}
	return metered
}

func clientOptions(cfg Config) (sigaa.Options, error) {
	opts := sigaa.Options{
		BaseUrl:          cfg.BaseUrl,
		Cookies:          cfg.Cookies,
		RateLimit:        rate.Limit(cfg.RateLimit),
		BypassCloudflare: cfg.BypassCloudflare,
		Telemetry:        newTelemetryAPI(),
	}
	if *dumpDir != "" {
		out, err := telemetry.NewFilesystemOutput(*dumpDir)
		if err != nil {
			return sigaa.Options{}, fmt.Errorf("prepare dump directory: %w", err)
		}
		opts.MessageOutput = out
	}
	return opts, nil
}

// openAccount resumes the session saved in the config, falling back to a fresh login
// when there is none or it has expired. The caller closes the returned client.
func openAccount(ctx context.Context, cfg Config) (*sigaa.Client, *sigaa.Account, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, nil, err
	}
	client, err := sigaa.Connect(opts)
	if err != nil {
		return nil, nil, err
	}

	if len(cfg.Cookies) > 0 {
		account, err := client.Resume(ctx)
		if err == nil {
			return client, account, nil
		}
		if !errors.Is(err, sigaa.ErrSessionExpired) || !cfg.hasCredentials() {
			client.Close()
			return nil, nil, err
		}
		slog.Info("saved session expired, logging in again")
	}

	if !cfg.hasCredentials() {
		client.Close()
		return nil, nil, errMissingCredentials
	}
	account, err := client.Login(ctx, cfg.Username, cfg.Password)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("login (%s): %w", client.LoginState(), err)
	}
	return client, account, nil
}

// activeCourses lists the courses of every active student bond, in portal order.
func activeCourses(ctx context.Context, account *sigaa.Account) ([]*sigaa.Course, error) {
	var out []*sigaa.Course
	for _, bond := range account.ActiveBonds {
		if _, ok := bond.(*sigaa.StudentBond); !ok {
			continue
		}
		courses, err := bond.Courses(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, courses...)
	}
	return out, nil
}
