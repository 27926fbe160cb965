package sigaa

import (
	"context"
	"fmt"
	"strings"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/components/telemetry"
)

const (
	report_login_fetch_form = "login.fetch-form"
	report_login_submit     = "login.submit"
)

const (
	pathLogin = "/sigaa/verTelaLogin.do"

	loginUsernameField = "user.login"
	loginPasswordField = "user.senha"

	invalidCredentialsMarker = "Usuário e/ou senha inválidos"
	loginPromptMarker        = "Entrar no Sistema"
)

// LoginState is where the login flow currently is.
type LoginState int

const (
	LoginUnauthenticated LoginState = iota
	LoginFormFetched
	LoginSubmitted
	LoginAuthenticated
	LoginInvalidCredentials
	LoginUnknownFailure
)

func (s LoginState) String() string {
	switch s {
	case LoginUnauthenticated:
		return "unauthenticated"
	case LoginFormFetched:
		return "form-fetched"
	case LoginSubmitted:
		return "submitted"
	case LoginAuthenticated:
		return "authenticated"
	case LoginInvalidCredentials:
		return "invalid-credentials"
	case LoginUnknownFailure:
		return "unknown-failure"
	}
	return fmt.Sprintf("LoginState(%d)", int(s))
}

type loginForm struct {
	action string
	fields map[string]string
}

// loginController drives the username/password login form. Calling Login again
// always reruns the whole flow, even when already authenticated.
type loginController struct {
	session *Session
	tel     telemetry.API
	state   LoginState
}

func newLoginController(session *Session, tel telemetry.API) *loginController {
	return &loginController{
		session: session,
		tel:     tel,
		state:   LoginUnauthenticated,
	}
}

func (l *loginController) State() LoginState {
	return l.state
}

// Login authenticates and returns the page the portal landed on.
func (l *loginController) Login(ctx context.Context, username, password string) (*Page, error) {
	l.state = LoginUnauthenticated

	form, err := l.fetchForm(ctx)
	if err != nil {
		return nil, err
	}
	l.state = LoginFormFetched

	form.fields[loginUsernameField] = username
	form.fields[loginPasswordField] = password

	// a failed submission leaves the state at submitted, the outcome is unknown.
	l.state = LoginSubmitted
	page, err := l.session.Post(ctx, form.action, form.fields)
	if err != nil {
		l.tel.ReportBroken(report_login_submit, err)
		return nil, err
	}

	l.state = classifyLogin(page)
	switch l.state {
	case LoginInvalidCredentials:
		return nil, ErrInvalidCredentials
	case LoginUnknownFailure:
		l.tel.ReportWarning(report_login_submit, "bounced back to the login page", page.URL.String())
		return nil, fmt.Errorf("%w: portal returned the login page again", ErrLoginFailed)
	}
	return page, nil
}

func (l *loginController) fetchForm(ctx context.Context) (loginForm, error) {
	page, err := l.session.Get(ctx, pathLogin)
	if err != nil {
		l.tel.ReportBroken(report_login_fetch_form, err)
		return loginForm{}, err
	}
	form, err := parseLoginForm(page)
	if err != nil {
		l.tel.ReportBroken(report_login_fetch_form, err, page.URL.String())
		return loginForm{}, err
	}
	return form, nil
}

func parseLoginForm(page *Page) (loginForm, error) {
	form := page.Document().Find("form[name='loginForm']").First()
	if form.Length() == 0 {
		return loginForm{}, fmt.Errorf("%w: no login form", ErrMalformedForm)
	}
	action := strings.TrimSpace(form.AttrOr("action", ""))
	if action == "" {
		return loginForm{}, fmt.Errorf("%w: login form has no action", ErrMalformedForm)
	}
	actionUrl, err := page.Resolve(action)
	if err != nil {
		return loginForm{}, fmt.Errorf("%w: login form action %q: %w", ErrMalformedForm, action, err)
	}

	return loginForm{
		action: actionUrl.String(),
		fields: formInputs(form, false),
	}, nil
}

func classifyLogin(page *Page) LoginState {
	switch {
	case strings.Contains(page.Body, invalidCredentialsMarker):
		return LoginInvalidCredentials
	case strings.Contains(page.Body, loginPromptMarker):
		return LoginUnknownFailure
	}
	return LoginAuthenticated
}
