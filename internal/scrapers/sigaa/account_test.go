package sigaa

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

const testBaseUrl = "https://sigaa.ifal.edu.br"

func diffBonds(t *testing.T, expected, got []Bond) {
	t.Helper()
	if diff := cmp.Diff(expected, got, cmpopts.IgnoreUnexported(StudentBond{})); diff != "" {
		t.Fatal("unexpected bonds (-want +got)\n", diff)
	}
}

func TestAccountStudentHomepage(t *testing.T) {
	session := newTestSession(t, testBaseUrl, nil)
	page := newTestPage(t, testBaseUrl+pathStudentHome, studentHomeHtml)

	account, err := NewAccount(session, page)
	require.NoError(t, err)

	diffBonds(t, []Bond{
		&StudentBond{Registration: "2023100001", Program: "TÉCNICO EM INFORMÁTICA"},
	}, account.ActiveBonds)
	require.Empty(t, account.InactiveBonds)

	name, err := account.Name(context.Background())
	require.NoError(t, err)
	require.Equal(t, "FULANO DE TAL DA SILVA", name)
}

func TestAccountStudentStatus(t *testing.T) {
	testCases := []struct {
		status string
		active bool
	}{
		{status: "CURSANDO", active: true},
		{status: "CONCLUINTE", active: true},
		{status: "ATIVO", active: true},
		{status: "TRANCADO", active: false},
		{status: "CANCELADO", active: false},
	}

	session := newTestSession(t, testBaseUrl, nil)
	for _, test := range testCases {
		t.Run(test.status, func(t *testing.T) {
			body := strings.Replace(studentHomeHtml, "<td>CURSANDO</td>", "<td>"+test.status+"</td>", 1)
			account, err := NewAccount(session, newTestPage(t, testBaseUrl+pathStudentHome, body))
			require.NoError(t, err)

			if test.active {
				require.Len(t, account.ActiveBonds, 1)
				require.Empty(t, account.InactiveBonds)
				return
			}
			require.Empty(t, account.ActiveBonds)
			require.Len(t, account.InactiveBonds, 1)
		})
	}
}

func TestAccountIncompleteProfile(t *testing.T) {
	session := newTestSession(t, testBaseUrl, nil)
	body := strings.Replace(studentHomeHtml, "<td>Matrícula:</td>", "<td>Código:</td>", 1)

	account, err := NewAccount(session, newTestPage(t, testBaseUrl+pathStudentHome, body))
	require.NoError(t, err)
	require.Empty(t, account.ActiveBonds)
	require.Empty(t, account.InactiveBonds)
}

func TestAccountBondList(t *testing.T) {
	for _, path := range bondListPaths {
		t.Run(path, func(t *testing.T) {
			session := newTestSession(t, testBaseUrl, nil)
			account, err := NewAccount(session, newTestPage(t, testBaseUrl+path, bondListHtml))
			require.NoError(t, err)

			diffBonds(t, []Bond{
				&StudentBond{
					Registration: "2023100001",
					Program:      "TÉCNICO EM INFORMÁTICA",
					SwitchUrl:    testBaseUrl + "/sigaa/escolhaVinculo.do?dispatch=escolher&vinculo=1",
				},
				TeacherBond{},
			}, account.ActiveBonds)
			diffBonds(t, []Bond{
				&StudentBond{
					Registration: "2019100042",
					Program:      "TÉCNICO EM EDIFICAÇÕES",
					SwitchUrl:    testBaseUrl + "/sigaa/escolhaVinculo.do?dispatch=escolher&vinculo=2",
				},
			}, account.InactiveBonds)
		})
	}
}

func TestAccountUnknownLanding(t *testing.T) {
	session := newTestSession(t, testBaseUrl, nil)
	account, err := NewAccount(session, newTestPage(t, testBaseUrl+"/sigaa/portais/docente/docente.jsf", studentHomeHtml))
	require.NoError(t, err)
	require.Empty(t, account.ActiveBonds)
	require.Empty(t, account.InactiveBonds)
}

func TestAccountSystemError(t *testing.T) {
	session := newTestSession(t, testBaseUrl, nil)
	body := `<html><body><h2>O sistema comportou-se de forma inesperada e não foi possível concluir a operação.</h2></body></html>`

	_, err := NewAccount(session, newTestPage(t, testBaseUrl+pathStudentHome, body))
	require.True(t, errors.Is(err, ErrUnexpectedPage), "expected ErrUnexpectedPage, got %v", err)
}

func TestAccountNameFallback(t *testing.T) {
	portal := newFakePortal(t)
	session := newTestSession(t, portal.URL(), map[string]string{"JSESSIONID": testSessionId})

	account, err := NewAccount(session, newTestPage(t, portal.URL()+"/sigaa/vinculos.jsf", bondListHtml))
	require.NoError(t, err)

	name, err := account.Name(context.Background())
	require.NoError(t, err)
	require.Equal(t, "FULANO DE TAL DA SILVA", name)

	// cached after the first lookup.
	_, err = account.Name(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, portal.count(http.MethodGet, pathStudentHome))
}

func TestAccountNameMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeHtml(w, "<html><body><p>sem nome</p></body></html>")
	}))
	defer server.Close()

	session := newTestSession(t, server.URL, nil)
	account, err := NewAccount(session, newTestPage(t, server.URL+"/sigaa/vinculos.jsf", bondListHtml))
	require.NoError(t, err)

	name, err := account.Name(context.Background())
	require.NoError(t, err)
	require.Equal(t, "", name)
}
