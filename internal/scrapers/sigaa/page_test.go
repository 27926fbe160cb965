package sigaa

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPageExpired(t *testing.T) {
	testCases := []struct {
		name    string
		url     string
		status  int
		header  http.Header
		expired bool
	}{
		{
			name:   "regular page",
			url:    "https://sigaa.ifal.edu.br/sigaa/portais/discente/discente.jsf",
			status: http.StatusOK,
		},
		{
			name:    "landed on the expiration page",
			url:     "https://sigaa.ifal.edu.br/sigaa/expirada.jsp",
			status:  http.StatusOK,
			expired: true,
		},
		{
			name:    "redirect to the expiration page",
			url:     "https://sigaa.ifal.edu.br/sigaa/portais/discente/discente.jsf",
			status:  http.StatusFound,
			header:  http.Header{"Location": {"/sigaa/expirada.jsp"}},
			expired: true,
		},
		{
			name:   "redirect elsewhere",
			url:    "https://sigaa.ifal.edu.br/sigaa/logon.do",
			status: http.StatusFound,
			header: http.Header{"Location": {"/sigaa/portais/discente/discente.jsf"}},
		},
		{
			name:   "marker in a non redirect header",
			url:    "https://sigaa.ifal.edu.br/sigaa/logon.do",
			status: http.StatusOK,
			header: http.Header{"Location": {"/sigaa/expirada.jsp"}},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			pageUrl, err := url.Parse(test.url)
			require.NoError(t, err)

			page, err := NewPage(pageUrl, "<html></html>", test.header, test.status)
			if test.expired {
				require.True(t, errors.Is(err, ErrSessionExpired), "expected ErrSessionExpired, got %v", err)
				require.Nil(t, page)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, page.Header)
		})
	}
}

func TestPageViewState(t *testing.T) {
	page := newTestPage(t, "https://sigaa.ifal.edu.br/sigaa/ava/index.jsf", courseHtml)
	require.Equal(t, "j_id2", page.ViewState())

	empty := newTestPage(t, "https://sigaa.ifal.edu.br/sigaa/verTelaLogin.do", loginHtml)
	require.Equal(t, "", empty.ViewState())
}

func TestPageDocumentIsCached(t *testing.T) {
	page := newTestPage(t, "https://sigaa.ifal.edu.br/sigaa/verTelaLogin.do", loginHtml)
	first := page.Document()
	require.Same(t, first, page.Document())
	require.Equal(t, page.URL, first.Url)
}

func TestPageResolve(t *testing.T) {
	page := newTestPage(t, "https://sigaa.ifal.edu.br/sigaa/vinculos.jsf", "")

	resolved, err := page.Resolve("escolhaVinculo.do?vinculo=2")
	require.NoError(t, err)
	require.Equal(t, "https://sigaa.ifal.edu.br/sigaa/escolhaVinculo.do?vinculo=2", resolved.String())

	resolved, err = page.Resolve(" /sigaa/ava/index.jsf ")
	require.NoError(t, err)
	require.Equal(t, "https://sigaa.ifal.edu.br/sigaa/ava/index.jsf", resolved.String())
}
