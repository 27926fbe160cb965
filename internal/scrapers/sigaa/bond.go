package sigaa

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/components/telemetry"
	"github.com/alc0hen/espelho-ifal-sigaa/pkg/htmlutil"
)

const (
	report_student_bond_courses = "student_bond.courses"
)

// Bond is an enrollment of the account holder. It is either a *StudentBond or a
// TeacherBond.
type Bond interface {
	// Courses lists the courses of the bond, bonds that can't have courses return an
	// empty list.
	Courses(ctx context.Context) ([]*Course, error)

	isBond()
}

// TeacherBond is a teaching enrollment, course listing is not supported for it.
type TeacherBond struct{}

func (TeacherBond) Courses(context.Context) ([]*Course, error) {
	return nil, nil
}

func (TeacherBond) isBond() {}

// StudentBond is a student's enrollment in a program.
type StudentBond struct {
	Registration string
	Program      string
	// SwitchUrl selects this bond on the portal when the account has several of them,
	// it is empty for an account with a single bond.
	SwitchUrl string

	session *Session
	tel     telemetry.API
	courses []*Course
}

func (*StudentBond) isBond() {}

// Courses fetches the bond's course list on the first call and returns the same list
// afterwards. Rows of the list that can't be read are skipped so an empty result is
// valid.
func (b *StudentBond) Courses(ctx context.Context) ([]*Course, error) {
	if b.courses != nil {
		return b.courses, nil
	}

	target := pathStudentHome
	if b.SwitchUrl != "" {
		target = b.SwitchUrl
	}

	page, err := b.session.Get(ctx, target)
	if err != nil {
		b.tel.ReportBroken(report_student_bond_courses, fmt.Errorf("fetch: %w", err), target)
		return nil, err
	}

	courses := parseCourses(page, b.session, b.tel)
	b.tel.ReportCount(report_student_bond_courses, int64(len(courses)))
	if courses == nil {
		courses = []*Course{}
	}
	b.courses = courses
	return courses, nil
}

var courseTitleMarkers = []string{"Componente", "Disciplina"}

func hasCourseTitleMarker(text string) bool {
	return containsAny(text, courseTitleMarkers)
}

// courseTable is a table recognized as a course list, titleIndex is -1 when the title
// column couldn't be told from header cells.
type courseTable struct {
	table      *goquery.Selection
	titleIndex int
}

// findCourseTables picks every table whose header cells name the course column. Some
// tables carry their headers as a plain first row, those are recognized by that row's
// text instead.
func findCourseTables(doc *goquery.Document) []courseTable {
	var out []courseTable
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		titleIndex := -1
		table.Find("th").EachWithBreak(func(i int, th *goquery.Selection) bool {
			if hasCourseTitleMarker(htmlutil.Text(th)) {
				titleIndex = i
				return false
			}
			return true
		})
		if titleIndex >= 0 {
			out = append(out, courseTable{table: table, titleIndex: titleIndex})
			return
		}

		if hasCourseTitleMarker(htmlutil.Text(table.Find("tr").First())) {
			out = append(out, courseTable{table: table, titleIndex: -1})
		}
	})
	return out
}

func parseCourses(page *Page, session *Session, tel telemetry.API) []*Course {
	var courses []*Course
	for _, ct := range findCourseTables(page.Document()) {
		rows := ct.table.Find("tbody tr")
		if rows.Length() == 0 {
			rows = ct.table.Find("tr")
		}

		rows.Each(func(_ int, row *goquery.Selection) {
			if row.HasClass("periodo") {
				return
			}
			rowText := htmlutil.Text(row)
			if strings.Contains(rowText, "Componente Curricular") || strings.Contains(rowText, "Disciplina") {
				return
			}
			cells := row.ChildrenFiltered("td")
			if cells.Length() == 0 {
				return
			}

			title := courseTitle(cells, ct.titleIndex)
			if title == "" {
				tel.ReportWarning(report_student_bond_courses, "row without title", rowText)
				return
			}

			control := accessControl(row, cells)
			if control == nil {
				tel.ReportWarning(report_student_bond_courses, "row without access control", title)
				return
			}
			script, _ := htmlutil.Attr(control, "onclick")
			form, err := ExtractForm(page, script)
			if err != nil {
				tel.ReportWarning(report_student_bond_courses, err, title)
				return
			}

			courses = append(courses, &Course{
				Title:    title,
				ID:       form.Fields["idTurma"],
				Position: len(courses) + 1,
				form:     form,
				session:  session,
				tel:      tel,
			})
		})
	}
	return courses
}

// titleCellStrategy picks the cell holding the course title out of a row, returning
// nil when it doesn't apply.
type titleCellStrategy func(cells *goquery.Selection, titleIndex int) *goquery.Selection

// titleCellStrategies are tried in order until one picks a cell.
var titleCellStrategies = []titleCellStrategy{
	// the header row told which column is the title.
	func(cells *goquery.Selection, titleIndex int) *goquery.Selection {
		if titleIndex < 0 || titleIndex >= cells.Length() {
			return nil
		}
		return cells.Eq(titleIndex)
	},
	// some portals wrap the title in a dedicated span.
	func(cells *goquery.Selection, _ int) *goquery.Selection {
		for i := 0; i < cells.Length(); i++ {
			cell := cells.Eq(i)
			if cell.Find("span.tituloDisciplina").Length() > 0 {
				return cell
			}
		}
		return nil
	},
	// without headers the title is usually the second cell, unless that one is the
	// room/campus column in which case the title comes first.
	func(cells *goquery.Selection, titleIndex int) *goquery.Selection {
		if titleIndex >= 0 || cells.Length() < 2 {
			return nil
		}
		second := htmlutil.Text(cells.Eq(1))
		if strings.Contains(second, "Campus") || strings.Contains(second, "Sala") {
			return cells.Eq(0)
		}
		return cells.Eq(1)
	},
}

func courseTitle(cells *goquery.Selection, titleIndex int) string {
	for _, strategy := range titleCellStrategies {
		cell := strategy(cells, titleIndex)
		if cell == nil {
			continue
		}
		if span := cell.Find("span.tituloDisciplina").First(); span.Length() > 0 {
			return htmlutil.Text(span)
		}
		return htmlutil.Text(cell)
	}
	return ""
}

// accessControl finds the element whose onclick enters the course: the first anchor
// with an onclick or, failing that, any onclick element hinting at the student view.
func accessControl(row, cells *goquery.Selection) *html.Node {
	if anchor := row.Find("a[onclick]").First(); anchor.Length() > 0 {
		return anchor.Get(0)
	}

	var found *html.Node
	cells.Find("[onclick]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		hint := strings.ToLower(el.AttrOr("title", "") + " " + htmlutil.Text(el))
		if strings.Contains(hint, "discente") || strings.Contains(hint, "acessar") {
			found = el.Get(0)
			return false
		}
		return true
	})
	return found
}
