package sigaa

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/components/telemetry"
	"github.com/alc0hen/espelho-ifal-sigaa/pkg/htmlutil"
)

const (
	report_course_enter     = "course.enter"
	report_course_navigate  = "course.navigate"
	report_course_grades    = "course.grades"
	report_course_frequency = "course.frequency"
)

const (
	menuGrades     = "Ver Notas"
	menuAttendance = "Frequência"
)

// Course is a class the student is enrolled in. It keeps the form that enters the
// course on the portal: Frequency enters it on every call, Grades only until the
// report has been read once.
type Course struct {
	Title string
	// ID is the portal's class id when the access form carries one.
	ID string
	// Position is the 1-based position of the course in its bond's course list.
	Position int

	form    FormDescriptor
	session *Session
	tel     telemetry.API
	grades  []GradeEntry
}

func (c *Course) String() string {
	return fmt.Sprintf("Course{%d %q}", c.Position, c.Title)
}

func (c *Course) enter(ctx context.Context) (*Page, error) {
	page, err := c.session.Post(ctx, c.form.Action.String(), c.form.Fields)
	if err != nil {
		c.tel.ReportBroken(report_course_enter, err, c.Title)
		return nil, err
	}
	return page, nil
}

// navigate follows the course menu entry labeled `label`. Menu entries are plain text
// inside a container whose onclick posts the menu form.
func (c *Course) navigate(ctx context.Context, page *Page, label string) (*Page, error) {
	script := findMenuScript(page, label)
	if script == "" {
		return nil, fmt.Errorf("%w: menu entry %q", ErrNavigationNotFound, label)
	}

	form, err := ExtractForm(page, script)
	if err != nil {
		c.tel.ReportBroken(report_course_navigate, err, label)
		return nil, err
	}
	next, err := c.session.Post(ctx, form.Action.String(), form.Fields)
	if err != nil {
		c.tel.ReportBroken(report_course_navigate, err, label)
		return nil, err
	}
	return next, nil
}

// findMenuScript returns the onclick of the nearest td/div/a ancestor of a text node
// reading exactly `label`, or "" when there is none.
func findMenuScript(page *Page, label string) string {
	var script string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.TextNode && htmlutil.CleanText(n.Data) == label {
			script = actionableAncestor(n)
			if script != "" {
				return true
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if walk(child) {
				return true
			}
		}
		return false
	}
	for _, root := range page.Document().Nodes {
		if walk(root) {
			break
		}
	}
	return script
}

func actionableAncestor(n *html.Node) string {
	for parent := n.Parent; parent != nil; parent = parent.Parent {
		if parent.Type != html.ElementNode || parent.Data == "body" {
			break
		}
		switch parent.Data {
		case "td", "div", "a":
			if onclick, ok := htmlutil.Attr(parent, "onclick"); ok && onclick != "" {
				return onclick
			}
		}
	}
	return ""
}

// Grades enters the course, opens its grade report and parses it. The report is
// kept, later calls return it without going back to the portal. A course without
// grades yet yields an empty list.
func (c *Course) Grades(ctx context.Context) ([]GradeEntry, error) {
	if c.grades != nil {
		return c.grades, nil
	}

	coursePage, err := c.enter(ctx)
	if err != nil {
		return nil, err
	}
	gradesPage, err := c.navigate(ctx, coursePage, menuGrades)
	if err != nil {
		c.tel.ReportWarning(report_course_grades, err, c.Title)
		return nil, err
	}

	grades := ParseGrades(gradesPage)
	c.tel.ReportDebug(report_course_grades, c.Title, len(grades))
	if grades == nil {
		grades = []GradeEntry{}
	}
	c.grades = grades
	return grades, nil
}

// Frequency enters the course and reads its attendance summary, nil means the
// attendance hasn't been published.
func (c *Course) Frequency(ctx context.Context) (*AttendanceRecord, error) {
	coursePage, err := c.enter(ctx)
	if err != nil {
		return nil, err
	}
	attendancePage, err := c.navigate(ctx, coursePage, menuAttendance)
	if err != nil {
		c.tel.ReportWarning(report_course_frequency, err, c.Title)
		return nil, err
	}

	record := ParseAttendance(attendancePage)
	c.tel.ReportDebug(report_course_frequency, c.Title, record)
	return record, nil
}
