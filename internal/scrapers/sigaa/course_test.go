package sigaa

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func testCourses(t *testing.T) (*fakePortal, []*Course) {
	portal := newFakePortal(t)
	session := newTestSession(t, portal.URL(), map[string]string{"JSESSIONID": testSessionId})
	bond := &StudentBond{session: session, tel: session.tel}

	courses, err := bond.Courses(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, courses)
	return portal, courses
}

func TestCourseGrades(t *testing.T) {
	portal, courses := testCourses(t)

	grades, err := courses[0].Grades(context.Background())
	require.NoError(t, err)
	require.Len(t, grades, 4)
	require.Equal(t, "1", grades[0].Name)
	require.Equal(t, GradeGroup, grades[0].Kind)

	var menuPost recordedRequest
	for _, req := range portal.history() {
		if req.path == "/sigaa/ava/index.jsf" {
			menuPost = req
		}
	}
	require.Equal(t, http.MethodPost, menuPost.method)
	require.Equal(t, "formMenu", menuPost.form.Get("formMenu"))
	require.Equal(t, "j_id2", menuPost.form.Get(viewStateField))
	require.True(t, menuPost.form.Has(menuGradesKey))
	require.False(t, menuPost.form.Has(menuAttendanceKey))

	// the report is read once per course.
	again, err := courses[0].Grades(context.Background())
	require.NoError(t, err)
	require.Equal(t, grades, again)
	require.Equal(t, 1, portal.count(http.MethodPost, pathStudentHome))

	// attendance enters the course every time.
	_, err = courses[0].Frequency(context.Background())
	require.NoError(t, err)
	_, err = courses[0].Frequency(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, portal.count(http.MethodPost, pathStudentHome))
}

func TestCourseFrequency(t *testing.T) {
	_, courses := testCourses(t)

	record, err := courses[1].Frequency(context.Background())
	require.NoError(t, err)
	require.Equal(t, &AttendanceRecord{Absences: 3, MaxAbsences: 20, Percent: 3.75}, record)
}

func TestFindMenuScript(t *testing.T) {
	page := newTestPage(t, testBaseUrl+"/sigaa/ava/index.jsf", courseHtml)

	script := findMenuScript(page, menuGrades)
	require.Contains(t, script, menuGradesKey)

	script = findMenuScript(page, menuAttendance)
	require.Contains(t, script, menuAttendanceKey)

	require.Equal(t, "", findMenuScript(page, "Participantes"))
	// the label has to match the whole text node.
	require.Equal(t, "", findMenuScript(page, "Ver"))
}

func TestFindMenuScriptStopsAtBody(t *testing.T) {
	page := newTestPage(t, testBaseUrl+"/sigaa/ava/index.jsf", `<html><body onclick="track()"><span>Ver Notas</span></body></html>`)
	require.Equal(t, "", findMenuScript(page, menuGrades))
}

func TestCourseNavigationNotFound(t *testing.T) {
	session := newTestSession(t, testBaseUrl, nil)
	course := &Course{Title: "MATEMÁTICA I", session: session, tel: session.tel}
	page := newTestPage(t, testBaseUrl+"/sigaa/ava/index.jsf", `<html><body><p>Sem menu</p></body></html>`)

	_, err := course.navigate(context.Background(), page, menuGrades)
	require.True(t, errors.Is(err, ErrNavigationNotFound), "expected ErrNavigationNotFound, got %v", err)
}
