package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Logs in and prints the session cookies as a config snippet, so later commands can skip login.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		// always start from a fresh login.
		cfg.Cookies = nil

		client, _, err := openAccount(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Cookies map[string]string `json:"cookies"`
		}{Cookies: client.Cookies()})
	},
}

func init() {
	rootCmd.AddCommand(cookiesCmd)
}
