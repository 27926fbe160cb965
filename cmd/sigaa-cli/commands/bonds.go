package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/scrapers/sigaa"
)

var bondsCmd = &cobra.Command{
	Use:   "bonds",
	Short: "Lists the enrollments of the account.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		client, account, err := openAccount(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		name, err := account.Name(ctx)
		if err != nil {
			return err
		}
		fmt.Println(name)

		t := newTable()
		t.AppendHeader(table.Row{"Tipo", "Matrícula", "Curso", "Ativo"})
		for _, bond := range account.ActiveBonds {
			t.AppendRow(bondRow(bond, true))
		}
		for _, bond := range account.InactiveBonds {
			t.AppendRow(bondRow(bond, false))
		}
		t.Render()
		return nil
	},
}

func bondRow(bond sigaa.Bond, active bool) table.Row {
	status := "não"
	if active {
		status = "sim"
	}
	switch b := bond.(type) {
	case *sigaa.StudentBond:
		return table.Row{"Discente", b.Registration, b.Program, status}
	default:
		return table.Row{"Docente", "-", "-", status}
	}
}

func init() {
	rootCmd.AddCommand(bondsCmd)
}
