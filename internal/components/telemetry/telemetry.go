package telemetry

import (
	"fmt"
)

// API is where scrapers send what they observe, so tests can assert on it and the CLI
// can route it to slog and OTel metrics.
type API interface {
	// ReportBroken reports breakage that needs a code fix: a transport error, a form the
	// portal no longer renders the way the scraper expects.
	//
	// `id` names the component and method that broke, `<component>.<method>` (ex.
	// `session.request`, `student_bond.courses`), and comes from the `report_...`
	// constants of each package. The namespace (ex. `sigaa_scraper`) is added by
	// ScopedAPI. Details go in params or a wrapped error, not in the id.
	//
	// Ids are lowercase, use underscores inside a component name and dashes inside a
	// method name (ex. `session.skip-questionnaire`).
	ReportBroken(id string, params ...any)

	// ReportWarning reports something tolerated that may still be worth a look, ex. a
	// course row skipped for lacking an access form. Ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug traces normal operation, ex. every request the Session issues.
	ReportDebug(msg string, params ...any)

	// ReportCount records the size of something at this moment, ex. the number of
	// courses a bond lists. Readings are samples, not increments.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with `<namespace>: ` before handing it to inner.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
