package sigaa

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alc0hen/espelho-ifal-sigaa/pkg/htmlutil"
)

// AttendanceRecord summarizes a student's absences in a course.
type AttendanceRecord struct {
	Absences    int
	MaxAbsences int
	// Percent is the share of the course workload missed, 0-100.
	Percent float64
}

const attendanceNotPublishedMarker = "A frequência ainda não foi lançada"

var (
	totalAbsencesRegex  = regexp.MustCompile(`Total de Faltas:?\s*(\d+)`)
	absenceRowRegex     = regexp.MustCompile(`(\d+)\s+Falta\(s\)`)
	maxAbsencesRegex    = regexp.MustCompile(`Máximo de Faltas Permitido:?\s*(\d+)`)
	absencePercentRegex = regexp.MustCompile(`Porcentagem de Faltas:?\s*(\d+(?:[.,]\d+)?)\s*%`)
)

// the maximum number of absences is a quarter of the course workload.
const maxAbsenceShare = 25.0

// ParseAttendance reads a course's attendance page. It returns nil when the
// attendance hasn't been published or the page carries no absence figure.
func ParseAttendance(page *Page) *AttendanceRecord {
	text := htmlutil.JoinedText(page.Document().Find("body"), "\n")
	if strings.Contains(text, attendanceNotPublishedMarker) {
		return nil
	}

	record := &AttendanceRecord{}
	if match := totalAbsencesRegex.FindStringSubmatch(text); match != nil {
		record.Absences, _ = strconv.Atoi(match[1])
	} else {
		rows := absenceRowRegex.FindAllStringSubmatch(text, -1)
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			n, _ := strconv.Atoi(row[1])
			record.Absences += n
		}
	}

	if match := maxAbsencesRegex.FindStringSubmatch(text); match != nil {
		record.MaxAbsences, _ = strconv.Atoi(match[1])
	}

	if match := absencePercentRegex.FindStringSubmatch(text); match != nil {
		percent := ParseGradeValue(match[1])
		if percent != nil {
			record.Percent = *percent
			return record
		}
	}
	if record.MaxAbsences > 0 {
		record.Percent = float64(record.Absences) * maxAbsenceShare / float64(record.MaxAbsences)
	}
	return record
}
