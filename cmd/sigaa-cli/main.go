package main

import (
	"context"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/alc0hen/espelho-ifal-sigaa/cmd/sigaa-cli/commands"
)

func main() {
	// credentials usually live in a .env next to the config, it is optional.
	err := godotenv.Load()
	if err != nil {
		slog.Debug("no .env loaded", "err", err)
	}
	commands.ExecuteContext(context.Background())
}
