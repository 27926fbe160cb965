package commands

import (
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/scrapers/sigaa"
	"github.com/alc0hen/espelho-ifal-sigaa/internal/summary"
)

var (
	gradesCourse     *string
	gradesAttendance *bool
)

var gradesCmd = &cobra.Command{
	Use:   "grades",
	Short: "Prints the unit scores of the courses in every active enrollment.",
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

		courses, err := activeCourses(ctx, account)
		if err != nil {
			return err
		}
		courses, err = filterCourses(courses, *gradesCourse)
		if err != nil {
			return err
		}

		t := newTable()
		header := table.Row{"#", "Disciplina", "1", "2", "3", "4", "Rep. 1", "Rep. 2", "Média"}
		if *gradesAttendance {
			header = append(header, "Faltas")
		}
		t.AppendHeader(header)

		for _, course := range courses {
			row, err := gradeRow(cmd, course)
			if err != nil {
				return err
			}
			t.AppendRow(row)
		}
		t.Render()
		return nil
	},
}

func gradeRow(cmd *cobra.Command, course *sigaa.Course) (table.Row, error) {
	ctx := cmd.Context()
	entries, err := course.Grades(ctx)
	if err != nil {
		return nil, fmt.Errorf("grades of %s: %w", course.Title, err)
	}
	s := summary.Summarize(entries)

	average := "-"
	if avg, ok := s.Average(); ok {
		average = formatScore(&avg)
	}
	row := table.Row{
		course.Position,
		course.Title,
		formatScore(s.Units[0]),
		formatScore(s.Units[1]),
		formatScore(s.Units[2]),
		formatScore(s.Units[3]),
		formatScore(s.MakeUps[0]),
		formatScore(s.MakeUps[1]),
		average,
	}

	if *gradesAttendance {
		record, err := course.Frequency(ctx)
		if err != nil {
			slog.Warn("attendance unavailable", "course", course.Title, "err", err)
		}
		row = append(row, formatAttendance(record))
	}
	return row, nil
}

// filterCourses keeps the course `query` refers to, all of them when it is empty.
func filterCourses(courses []*sigaa.Course, query string) ([]*sigaa.Course, error) {
	if query == "" {
		return courses, nil
	}
	titles := make([]string, len(courses))
	for i, course := range courses {
		titles[i] = course.Title
	}
	idx := summary.MatchCourse(titles, query)
	if idx < 0 {
		return nil, fmt.Errorf("no course matches %q", query)
	}
	return []*sigaa.Course{courses[idx]}, nil
}

func init() {
	gradesCourse = gradesCmd.Flags().StringP("course", "c", "", "Only show the course whose title best matches this.")
	gradesAttendance = gradesCmd.Flags().BoolP("attendance", "a", false, "Also fetch the absences of each course.")
	rootCmd.AddCommand(gradesCmd)
}
