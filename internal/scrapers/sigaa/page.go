package sigaa

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	expiredMarker  = "/sigaa/expirada.jsp"
	viewStateField = "javax.faces.ViewState"
)

// Page is a single response from the portal. It is never mutated after construction,
// the document and view state are derived on first use and cached.
type Page struct {
	URL    *url.URL
	Body   string
	Header http.Header
	Status int

	docOnce sync.Once
	doc     *goquery.Document

	viewStateOnce sync.Once
	viewState     string
}

// NewPage wraps a response, it fails with ErrSessionExpired if the response is (or
// redirects to) the portal's expiration page.
func NewPage(pageUrl *url.URL, body string, header http.Header, status int) (*Page, error) {
	if header == nil {
		header = http.Header{}
	}
	page := &Page{
		URL:    pageUrl,
		Body:   body,
		Header: header,
		Status: status,
	}
	err := page.checkExpired()
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (p *Page) checkExpired() error {
	if p.Status >= 300 && p.Status < 400 {
		location := p.Header.Get("Location")
		if strings.Contains(location, expiredMarker) {
			return fmt.Errorf("%w: redirected to %s", ErrSessionExpired, location)
		}
	}
	if p.URL != nil && strings.Contains(p.URL.String(), expiredMarker) {
		return fmt.Errorf("%w: landed on %s", ErrSessionExpired, p.URL.String())
	}
	return nil
}

// Document is the parsed body.
func (p *Page) Document() *goquery.Document {
	p.docOnce.Do(func() {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Body))
		if err != nil {
			// the html5 parser only fails on reader errors, which a string reader
			// never produces.
			doc = goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
		}
		doc.Url = p.URL
		p.doc = doc
	})
	return p.doc
}

// ViewState is the JSF view state token of the page, empty on pages without one.
func (p *Page) ViewState() string {
	p.viewStateOnce.Do(func() {
		p.viewState = p.Document().
			Find(fmt.Sprintf("input[name='%s']", viewStateField)).
			First().
			AttrOr("value", "")
	})
	return p.viewState
}

// Resolve resolves a reference found in the page against the page's own url.
func (p *Page) Resolve(ref string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, err
	}
	if p.URL == nil {
		return parsed, nil
	}
	return p.URL.ResolveReference(parsed), nil
}
