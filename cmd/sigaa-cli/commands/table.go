package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/scrapers/sigaa"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *score)
}

func formatAttendance(record *sigaa.AttendanceRecord) string {
	if record == nil {
		return "-"
	}
	if record.MaxAbsences == 0 {
		return fmt.Sprint(record.Absences)
	}
	return fmt.Sprintf("%d/%d (%.1f%%)", record.Absences, record.MaxAbsences, record.Percent)
}
