package sigaa

import (
	_ "embed"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"
)

var (
	//go:embed testdata/login.html
	loginHtml string
	//go:embed testdata/student_home.html
	studentHomeHtml string
	//go:embed testdata/bond_list.html
	bondListHtml string
	//go:embed testdata/course.html
	courseHtml string
	//go:embed testdata/grades.html
	gradesHtml string
	//go:embed testdata/attendance.html
	attendanceHtml string
	//go:embed testdata/questionnaire.html
	questionnaireHtml string
)

const (
	testUsername  = "2023100001"
	testPassword  = "hunter2"
	testSessionId = "B3F1C2D4E5"

	invalidCredentialsHtml = `<html><body><p class="erro">Usuário e/ou senha inválidos</p><h3>Entrar no Sistema</h3></body></html>`

	menuGradesKey     = "formMenu:j_id_jsp_311393315_58"
	menuAttendanceKey = "formMenu:j_id_jsp_311393315_61"
)

func newTestSession(t testing.TB, baseUrl string, cookies map[string]string) *Session {
	session, err := NewSession(Options{
		BaseUrl:   baseUrl,
		Cookies:   cookies,
		RateLimit: rate.Inf,
	})
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func newTestPage(t testing.TB, rawUrl, body string) *Page {
	pageUrl, err := url.Parse(rawUrl)
	require.NoError(t, err)
	page, err := NewPage(pageUrl, body, nil, http.StatusOK)
	require.NoError(t, err)
	return page
}

func writeHtml(w http.ResponseWriter, body string) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	fmt.Fprint(w, body)
}

type recordedRequest struct {
	method string
	path   string
	form   url.Values
}

// fakePortal serves the fixtures the way the portal links them together: login,
// student homepage, course entry and the course menu.
type fakePortal struct {
	server *httptest.Server

	lock     sync.Mutex
	requests []recordedRequest
	// questionnaires is the number of times the questionnaire is served in place of
	// the student homepage.
	questionnaires int
	// latin1 serves every page encoded as ISO-8859-1, like older deployments do.
	latin1 bool
}

func newFakePortal(t testing.TB) *fakePortal {
	portal := &fakePortal{}
	portal.server = httptest.NewServer(portal)
	t.Cleanup(portal.server.Close)
	return portal
}

func (p *fakePortal) URL() string {
	return p.server.URL
}

func (p *fakePortal) record(r *http.Request) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.requests = append(p.requests, recordedRequest{
		method: r.Method,
		path:   r.URL.Path,
		form:   r.PostForm,
	})
}

func (p *fakePortal) history() []recordedRequest {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]recordedRequest(nil), p.requests...)
}

func (p *fakePortal) count(method, path string) int {
	n := 0
	for _, req := range p.history() {
		if req.method == method && req.path == path {
			n++
		}
	}
	return n
}

func (p *fakePortal) takeQuestionnaire() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.questionnaires <= 0 {
		return false
	}
	p.questionnaires--
	return true
}

func (p *fakePortal) writeHtml(w http.ResponseWriter, body string) {
	if !p.latin1 {
		writeHtml(w, body)
		return
	}
	encoded, err := charmap.ISO8859_1.NewEncoder().String(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "text/html;charset=ISO-8859-1")
	fmt.Fprint(w, encoded)
}

func authenticated(r *http.Request) bool {
	cookie, err := r.Cookie("JSESSIONID")
	return err == nil && cookie.Value == testSessionId
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	p.record(r)

	path := r.URL.Path
	switch {
	case path == pathLogin:
		p.writeHtml(w, loginHtml)
	case strings.HasPrefix(path, "/sigaa/logon.do"):
		if r.PostForm.Get(loginUsernameField) != testUsername || r.PostForm.Get(loginPasswordField) != testPassword {
			p.writeHtml(w, invalidCredentialsHtml)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: testSessionId, Path: "/sigaa"})
		http.Redirect(w, r, pathStudentHome, http.StatusFound)
	case !authenticated(r):
		http.Redirect(w, r, pathLogin, http.StatusFound)
	case path == "/sigaa/questionarios.jsf":
		http.Redirect(w, r, pathStudentHome, http.StatusFound)
	case path == pathStudentHome && r.Method == http.MethodPost:
		if r.PostForm.Get("idTurma") == "" {
			http.Error(w, "missing idTurma", http.StatusBadRequest)
			return
		}
		p.writeHtml(w, courseHtml)
	case path == pathStudentHome:
		if p.takeQuestionnaire() {
			p.writeHtml(w, questionnaireHtml)
			return
		}
		p.writeHtml(w, studentHomeHtml)
	case path == "/sigaa/ava/index.jsf" && r.PostForm.Has(menuGradesKey):
		p.writeHtml(w, gradesHtml)
	case path == "/sigaa/ava/index.jsf" && r.PostForm.Has(menuAttendanceKey):
		p.writeHtml(w, attendanceHtml)
	default:
		http.NotFound(w, r)
	}
}
