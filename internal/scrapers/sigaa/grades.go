package sigaa

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/alc0hen/espelho-ifal-sigaa/pkg/htmlutil"
)

// GradeKind tells a GradeEntry with a single value from one grouping several
// assessments.
type GradeKind int

const (
	GradeSingle GradeKind = iota
	GradeGroup
)

func (k GradeKind) String() string {
	if k == GradeGroup {
		return "group"
	}
	return "single"
}

// Grade is one assessment score, Value is nil when the portal shows no number.
type Grade struct {
	Name  string
	Value *float64
}

// GradeEntry is one grading column of the report: a single value (Kind == GradeSingle,
// Value set) or a unit made of several assessments (Kind == GradeGroup, Subgrades set).
type GradeEntry struct {
	Kind      GradeKind
	Name      string
	Value     *float64
	Subgrades []Grade
}

const (
	defaultSubgradeName = "Nota"
	// sub header ids of this form point to a hidden input holding the assessment's
	// full description.
	assessmentIdPrefix   = "aval_"
	assessmentNamePrefix = "denAval_"
	// the student's row is told apart from code/number rows by the length of its name cell.
	minStudentNameLength = 10
)

// unit header texts that aren't grades, their columns are skipped.
var ignoredGradeHeaders = map[string]bool{
	"":          true,
	"Matrícula": true,
	"Nome":      true,
	"Sit.":      true,
	"Faltas":    true,
	"Resultado": true,
	"Situação":  true,
}

var emptyGradeTexts = map[string]bool{
	"":    true,
	"-":   true,
	"--":  true,
	"S/N": true,
}

// ParseGradeValue reads a comma-decimal score, dashes and other non numbers are nil.
func ParseGradeValue(text string) *float64 {
	text = strings.TrimSpace(text)
	if emptyGradeTexts[text] {
		return nil
	}
	value, err := strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64)
	if err != nil {
		return nil
	}
	return &value
}

type subHeader struct {
	text string
	id   string
}

// ParseGrades reads the grade report table (table.tabelaRelatorio) of a course.
//
// The first header row holds one cell per unit spanning as many columns as the unit
// has assessments, the optional second row names each assessment. Values come from
// the student's own row of the body. Missing table sections or a missing student
// row mean there are no grades yet and produce an empty result.
func ParseGrades(page *Page) []GradeEntry {
	doc := page.Document()
	table := doc.Find("table.tabelaRelatorio").First()
	thead := table.ChildrenFiltered("thead").First()
	tbody := table.ChildrenFiltered("tbody").First()
	if table.Length() == 0 || thead.Length() == 0 || tbody.Length() == 0 {
		return nil
	}

	headerRows := thead.ChildrenFiltered("tr")
	if headerRows.Length() == 0 {
		return nil
	}
	unitHeaders := headerRows.Eq(0).ChildrenFiltered("th")

	// keyed by the literal position of the cell in the second header row.
	subHeaders := map[int]subHeader{}
	if headerRows.Length() > 1 {
		headerRows.Eq(1).ChildrenFiltered("th").Each(func(i int, th *goquery.Selection) {
			text := htmlutil.Text(th)
			if text == "" {
				return
			}
			subHeaders[i] = subHeader{text: text, id: th.AttrOr("id", "")}
		})
	}

	studentRow := findStudentRow(tbody)
	if studentRow == nil {
		return nil
	}
	cells := studentRow.ChildrenFiltered("td")
	cellText := func(i int) (string, bool) {
		if i >= cells.Length() {
			return "", false
		}
		return htmlutil.Text(cells.Eq(i)), true
	}

	var grades []GradeEntry
	cursor := 0
	unitHeaders.Each(func(_ int, th *goquery.Selection) {
		name := htmlutil.Text(th)
		span := colspan(th)
		defer func() { cursor += span }()

		if ignoredGradeHeaders[name] {
			return
		}

		if span == 1 {
			text, ok := cellText(cursor)
			if !ok || emptyGradeTexts[text] {
				return
			}
			grades = append(grades, GradeEntry{
				Kind:  GradeSingle,
				Name:  name,
				Value: ParseGradeValue(text),
			})
			return
		}

		var subgrades []Grade
		for col := cursor; col < cursor+span; col++ {
			text, ok := cellText(col)
			if !ok {
				break
			}
			// dashes are kept so that assessments stay aligned with their headers.
			if text == "" {
				continue
			}
			subgrades = append(subgrades, Grade{
				Name:  subgradeName(doc, subHeaders, col),
				Value: ParseGradeValue(text),
			})
		}
		if len(subgrades) > 0 {
			grades = append(grades, GradeEntry{
				Kind:      GradeGroup,
				Name:      name,
				Subgrades: subgrades,
			})
		}
	})

	return grades
}

func colspan(th *goquery.Selection) int {
	span, err := strconv.Atoi(strings.TrimSpace(th.AttrOr("colspan", "1")))
	if err != nil || span < 1 {
		return 1
	}
	return span
}

// findStudentRow is the first body row whose second cell looks like a person's name
// (long enough and with at least one letter), as opposed to a code or a number.
func findStudentRow(tbody *goquery.Selection) *goquery.Selection {
	var found *goquery.Selection
	tbody.ChildrenFiltered("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 2 {
			return true
		}
		if looksLikeName(htmlutil.Text(cells.Eq(1))) {
			found = row
			return false
		}
		return true
	})
	return found
}

func looksLikeName(text string) bool {
	if utf8.RuneCountInString(text) <= minStudentNameLength {
		return false
	}
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func subgradeName(doc *goquery.Document, subHeaders map[int]subHeader, col int) string {
	header, ok := subHeaders[col]
	if !ok {
		return defaultSubgradeName
	}
	if !strings.HasPrefix(header.id, assessmentIdPrefix) {
		return header.text
	}
	gradeId := strings.TrimPrefix(header.id, assessmentIdPrefix)
	description := htmlutil.FindByID(doc, assessmentNamePrefix+gradeId).AttrOr("value", "")
	if description == "" {
		return header.text
	}
	return description
}
