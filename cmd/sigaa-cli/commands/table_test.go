package commands

import (
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/require"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/scrapers/sigaa"
)

func TestFormatScore(t *testing.T) {
	score := 7.0
	require.Equal(t, "-", formatScore(nil))
	require.Equal(t, "7.0", formatScore(&score))
}

func TestFormatAttendance(t *testing.T) {
	require.Equal(t, "-", formatAttendance(nil))
	require.Equal(t, "4", formatAttendance(&sigaa.AttendanceRecord{Absences: 4}))
	require.Equal(t, "3/20 (3.8%)", formatAttendance(&sigaa.AttendanceRecord{
		Absences:    3,
		MaxAbsences: 20,
		Percent:     3.75,
	}))
}

func TestFilterCourses(t *testing.T) {
	courses := []*sigaa.Course{
		{Title: "MATEMÁTICA I", Position: 1},
		{Title: "PORTUGUÊS I", Position: 2},
	}

	all, err := filterCourses(courses, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	picked, err := filterCourses(courses, "portugues")
	require.NoError(t, err)
	require.Len(t, picked, 1)
	require.Equal(t, 2, picked[0].Position)

	_, err = filterCourses(courses, "biologia")
	require.Error(t, err)
}

func TestBondRow(t *testing.T) {
	student := &sigaa.StudentBond{Registration: "2023100001", Program: "TÉCNICO EM INFORMÁTICA - M"}
	require.Equal(t, table.Row{"Discente", "2023100001", "TÉCNICO EM INFORMÁTICA - M", "sim"}, bondRow(student, true))
	require.Equal(t, table.Row{"Docente", "-", "-", "não"}, bondRow(sigaa.TeacherBond{}, false))
}
