package sigaa

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/components/assert"
	"github.com/alc0hen/espelho-ifal-sigaa/internal/components/telemetry"
	"github.com/alc0hen/espelho-ifal-sigaa/pkg/htmlutil"
)

var tracer = otel.Tracer("espelho-ifal-sigaa/internal/scrapers/sigaa")

const (
	report_session_request            = "session.request"
	report_session_skip_questionnaire = "session.skip-questionnaire"
)

const (
	DefaultUserAgent = "SIGAA-Api/1.0 (https://github.com/GeovaneSchmitz/sigaa-api)"

	questionnaireSkipID = "btnNaoResponderContinuarSigaa"
	// the request is retried at most this many times after skipping the
	// questionnaire, the next occurrence is handed back to the caller as is.
	maxQuestionnaireRetries = 3
)

// Options configures a Session.
type Options struct {
	// BaseUrl is the portal origin, ex. https://sigaa.ifal.edu.br
	BaseUrl string
	// Cookies seeds the jar with a previously captured session, skipping login.
	Cookies map[string]string

	UserAgent string
	// Timeout applies to each individual request, defaults to 30 seconds.
	Timeout time.Duration
	// RateLimit is the number of requests per second, defaults to 2.
	RateLimit        rate.Limit
	BypassCloudflare bool

	// Telemetry defaults to telemetry.SlogAPI.
	Telemetry telemetry.API
	// MessageOutput receives a dump of every http exchange when set.
	MessageOutput telemetry.MessageOutput
}

// Session keeps the cookie jar (and with it the server side state) of one logical
// connection to the portal. It must not be shared by concurrent logins.
type Session struct {
	baseUrl *url.URL
	http    *resty.Client
	jar     *cookiejar.Jar
	tel     telemetry.API

	lock   sync.Mutex
	closed bool
}

func NewSession(opts Options) (*Session, error) {
	assert.NotEmptyStr(opts.BaseUrl)

	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	tel = telemetry.NewScopedAPI("sigaa_scraper", tel)

	baseUrl, err := url.Parse(strings.TrimSuffix(opts.BaseUrl, "/"))
	if err != nil {
		return nil, err
	}
	if !baseUrl.IsAbs() {
		return nil, fmt.Errorf("base url must be absolute: %s", opts.BaseUrl)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	limit := opts.RateLimit
	if limit == 0 {
		limit = 2
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl.String())
	httpClient.SetCookieJar(jar)
	if opts.BypassCloudflare {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeaders(map[string]string{
		"user-agent":    userAgent,
		"accept":        "*/*",
		"cache-control": "max-age=0",
		"dnt":           "1",
	})
	httpClient.SetRedirectPolicy(
		resty.FlexibleRedirectPolicy(10),
		resty.DomainCheckRedirectPolicy(baseUrl.Hostname()),
	)
	httpClient.SetTimeout(timeout)

	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(limit, 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel, opts.MessageOutput)

	s := &Session{
		baseUrl: baseUrl,
		http:    httpClient,
		jar:     jar,
		tel:     tel,
	}
	s.seedCookies(opts.Cookies)
	return s, nil
}

// cookieScope is the url cookies are read from, the portal scopes its session cookie
// to the /sigaa path.
func (s *Session) cookieScope() *url.URL {
	return s.baseUrl.ResolveReference(&url.URL{Path: "/sigaa/"})
}

func (s *Session) seedCookies(cookies map[string]string) {
	if len(cookies) == 0 {
		return
	}
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		list = append(list, &http.Cookie{
			Name:  name,
			Value: cookies[name],
			Path:  "/",
		})
	}
	s.jar.SetCookies(s.baseUrl, list)
}

// Cookies exports the current jar so it can be restored later through Options.Cookies.
func (s *Session) Cookies() map[string]string {
	out := map[string]string{}
	// the jar lists the most specific path first, that is the value the portal sees.
	for _, c := range s.jar.Cookies(s.cookieScope()) {
		if _, ok := out[c.Name]; ok {
			continue
		}
		out[c.Name] = c.Value
	}
	return out
}

// Get fetches `target`, a path relative to the base url or an absolute url.
func (s *Session) Get(ctx context.Context, target string) (*Page, error) {
	return s.do(ctx, request{method: http.MethodGet, target: target})
}

// Post submits `form` url encoded to `target`.
func (s *Session) Post(ctx context.Context, target string, form map[string]string) (*Page, error) {
	if form == nil {
		form = map[string]string{}
	}
	return s.do(ctx, request{method: http.MethodPost, target: target, form: form})
}

// Close releases the underlying connections, every later request fails with
// ErrSessionClosed.
func (s *Session) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.http.GetClient().CloseIdleConnections()
	return nil
}

func (s *Session) isClosed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}

type request struct {
	method string
	target string
	form   map[string]string
}

func (s *Session) resolve(target string) (string, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if parsed.IsAbs() {
		return parsed.String(), nil
	}
	return s.baseUrl.ResolveReference(parsed).String(), nil
}

func (s *Session) do(ctx context.Context, req request) (*Page, error) {
	ctx, span := tracer.Start(ctx, "session:"+req.method)
	defer span.End()
	span.SetAttributes(attribute.String("target", req.target))

	for attempt := 0; ; attempt++ {
		page, err := s.roundTrip(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "request failed")
			return nil, err
		}
		if !hasQuestionnaire(page) {
			return page, nil
		}
		if attempt >= maxQuestionnaireRetries {
			s.tel.ReportWarning(
				report_session_skip_questionnaire,
				fmt.Errorf("questionnaire still present after %d retries", attempt),
				req.target,
			)
			return page, nil
		}

		skipped, err := s.skipQuestionnaire(ctx, page)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to skip questionnaire")
			return nil, err
		}
		if !skipped {
			return page, nil
		}
		span.AddEvent("questionnaire skipped")
	}
}

func (s *Session) roundTrip(ctx context.Context, req request) (*Page, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}

	endpoint, err := s.resolve(req.target)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid target %q: %w", ErrConnection, req.target, err)
	}
	s.tel.ReportDebug(report_session_request, req.method, endpoint)

	r := s.http.R().SetContext(ctx)
	if req.form != nil {
		r.SetFormData(req.form)
	}
	res, err := r.Execute(req.method, endpoint)
	if err != nil {
		if ctx.Err() != nil {
			// whatever was in flight may or may not have reached the portal, the
			// server side state is unknown from here on.
			s.lock.Lock()
			s.closed = true
			s.lock.Unlock()
		}
		s.tel.ReportBroken(report_session_request, err, req.method, endpoint)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrConnection, req.method, endpoint, err)
	}

	finalUrl, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL
	}
	body, err := decodeBody(res.Body(), res.Header().Get("Content-Type"))
	if err != nil {
		s.tel.ReportBroken(report_session_request, err, req.method, endpoint)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnexpectedPage, req.method, endpoint, err)
	}
	return NewPage(finalUrl, body, res.Header(), res.StatusCode())
}

// decodeBody converts a response body to UTF-8. A BOM or the charset declared in the
// Content-Type wins. Otherwise a body that is valid UTF-8 is kept as is and anything
// else is decoded by its <meta> charset, windows-1252 when it has none.
func decodeBody(body []byte, contentType string) (string, error) {
	e, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || (!certain && utf8.Valid(body)) {
		return string(body), nil
	}
	decoded, err := e.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("decode %s body: %w", name, err)
	}
	return string(decoded), nil
}

func hasQuestionnaire(page *Page) bool {
	return htmlutil.FindByID(page.Document(), questionnaireSkipID).Length() > 0
}

// skipQuestionnaire submits the "don't answer, continue" button of the questionnaire
// the portal sometimes inserts before the requested page. It reports false when the
// button's form can't be submitted.
func (s *Session) skipQuestionnaire(ctx context.Context, page *Page) (bool, error) {
	button := htmlutil.FindByID(page.Document(), questionnaireSkipID)
	form := button.Closest("form")
	action := form.AttrOr("action", "")
	formId := form.AttrOr("id", "")
	if action == "" || formId == "" {
		s.tel.ReportWarning(
			report_session_skip_questionnaire,
			fmt.Errorf("questionnaire form without action or id"),
			page.URL.String(),
		)
		return false, nil
	}

	actionUrl, err := page.Resolve(action)
	if err != nil {
		s.tel.ReportBroken(
			report_session_skip_questionnaire,
			fmt.Errorf("resolve action: %w", err),
			action,
		)
		return false, nil
	}

	name := button.AttrOr("name", questionnaireSkipID)
	value := button.AttrOr("value", name)
	values := map[string]string{
		formId: formId,
		name:   value,
	}
	if viewState := page.ViewState(); viewState != "" {
		values[viewStateField] = viewState
	}

	s.tel.ReportDebug(report_session_skip_questionnaire, actionUrl.String())
	_, err = s.roundTrip(ctx, request{
		method: http.MethodPost,
		target: actionUrl.String(),
		form:   values,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
