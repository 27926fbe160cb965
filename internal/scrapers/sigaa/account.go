package sigaa

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/components/telemetry"
	"github.com/alc0hen/espelho-ifal-sigaa/pkg/htmlutil"
)

const (
	report_account_parse    = "account.parse"
	report_account_get_name = "account.get-name"
)

const (
	pathStudentHome = "/sigaa/portais/discente/discente.jsf"

	systemErrorMarker = "O sistema comportou-se de forma inesperada"
	nameSelector      = "p.usuario > span"
)

var (
	bondListPaths = []string{"/sigaa/vinculos.jsf", "/sigaa/escolhaVinculo.do"}
	// statuses of a student homepage that mean the enrollment is ongoing.
	activeStudentStatuses = []string{"CURSANDO", "CONCLUINTE", "ATIVO"}
	// the program name carries the shift (manhã, tarde, noite) as a suffix.
	shiftSuffixRegex = regexp.MustCompile(` - [MTN]$`)
)

// Account is the authenticated user and their enrollments.
type Account struct {
	ActiveBonds   []Bond
	InactiveBonds []Bond

	session  *Session
	tel      telemetry.API
	homepage *Page
	name     string
}

// NewAccount reads the bonds off the page the portal landed on after login. Landing
// pages it doesn't recognize produce an account without bonds.
func NewAccount(session *Session, homepage *Page) (*Account, error) {
	tel := session.tel
	if strings.Contains(homepage.Body, systemErrorMarker) {
		tel.ReportBroken(report_account_parse, "system error page", homepage.URL.String())
		return nil, fmt.Errorf("%w: portal reported an unexpected system error", ErrUnexpectedPage)
	}

	a := &Account{
		session:  session,
		tel:      tel,
		homepage: homepage,
	}

	path := homepage.URL.Path
	switch {
	case strings.Contains(path, pathStudentHome):
		a.parseStudentHomepage(homepage)
	case containsAny(path, bondListPaths):
		a.parseBondList(homepage)
	default:
		tel.ReportDebug(report_account_parse, "landing page without bonds", homepage.URL.String())
	}

	return a, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func (a *Account) addBond(bond Bond, active bool) {
	if active {
		a.ActiveBonds = append(a.ActiveBonds, bond)
		return
	}
	a.InactiveBonds = append(a.InactiveBonds, bond)
}

// parseStudentHomepage reads the key/value table inside the profile block of the
// student portal, a homepage always carries exactly one bond.
func (a *Account) parseStudentHomepage(page *Page) {
	table := page.Document().Find("#perfil-docente table").First()
	if table.Length() == 0 {
		a.tel.ReportWarning(report_account_parse, "student homepage without profile table", page.URL.String())
		return
	}

	var registration, program, status string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() != 2 {
			return
		}
		key := htmlutil.Text(cells.Eq(0))
		value := htmlutil.Text(cells.Eq(1))
		switch {
		case strings.Contains(key, "Matrícula:"):
			registration = value
		case strings.Contains(key, "Curso:"):
			program = shiftSuffixRegex.ReplaceAllString(value, "")
		case strings.Contains(key, "Status:"):
			status = value
		}
	})
	if registration == "" || program == "" {
		a.tel.ReportWarning(report_account_parse, "incomplete profile table", registration, program)
		return
	}

	bond := &StudentBond{
		Registration: registration,
		Program:      program,
		session:      a.session,
		tel:          a.tel,
	}
	active := false
	for _, s := range activeStudentStatuses {
		if status == s {
			active = true
			break
		}
	}
	a.addBond(bond, active)
}

// parseBondList reads the bond selection table shown to users with more than one
// bond. Rows whose activity column is neither "Sim" nor "Não" are dropped.
func (a *Account) parseBondList(page *Page) {
	page.Document().Find("table.subFormulario tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 4 {
			return
		}

		bondType := htmlutil.Text(row.Find("#tdTipo").First())
		status := htmlutil.Text(cells.Eq(3))

		var bond Bond
		switch {
		case strings.Contains(bondType, "Discente"):
			student := &StudentBond{
				Registration: htmlutil.Text(cells.Eq(2)),
				Program:      strings.TrimPrefix(htmlutil.Text(cells.Eq(4)), "Curso: "),
				session:      a.session,
				tel:          a.tel,
			}
			if href, ok := row.Find("a[href]").First().Attr("href"); ok {
				switchUrl, err := page.Resolve(href)
				if err != nil {
					a.tel.ReportWarning(report_account_parse, fmt.Errorf("bond switch url: %w", err), href)
				} else {
					student.SwitchUrl = switchUrl.String()
				}
			}
			bond = student
		case strings.Contains(bondType, "Docente"):
			bond = TeacherBond{}
		default:
			return
		}

		switch status {
		case "Sim":
			a.addBond(bond, true)
		case "Não":
			a.addBond(bond, false)
		}
	})
}

// Name is the account holder's name. It is read from the landing page when present,
// otherwise from one extra fetch of the student homepage. An empty result is not an
// error, some pages simply don't show it.
func (a *Account) Name(ctx context.Context) (string, error) {
	if a.name != "" {
		return a.name, nil
	}

	name := htmlutil.Text(a.homepage.Document().Find(nameSelector).First())
	if name != "" {
		a.name = name
		return name, nil
	}

	page, err := a.session.Get(ctx, pathStudentHome)
	if err != nil {
		a.tel.ReportBroken(report_account_get_name, err)
		return "", err
	}
	a.name = htmlutil.Text(page.Document().Find(nameSelector).First())
	if a.name == "" {
		a.tel.ReportWarning(report_account_get_name, "name not found", page.URL.String())
	}
	return a.name, nil
}
