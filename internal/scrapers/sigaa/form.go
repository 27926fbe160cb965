package sigaa

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"

	"github.com/alc0hen/espelho-ifal-sigaa/pkg/htmlutil"
)

// FormDescriptor is a form submission lifted out of an inline script: where to POST
// and what to send. It is used for a single navigation.
type FormDescriptor struct {
	Action *url.URL
	Fields map[string]string
}

var (
	// JSF ids contain colons, so everything up to the closing quote is taken.
	formIdRegex = regexp.MustCompile(`getElementById\(\s*['"]([^'"]+)['"]\s*\)`)
	// the object literal passed as the extra parameters of jsfcljs(form, {...}, target).
	extraParamsRegex = regexp.MustCompile(`(?s),\s*(\{.*?\})\s*,`)
)

// ExtractForm reads what a JSF postback handler (`onclick` of menu rows and links)
// would have submitted, without running the script:
//
//	if(typeof jsfcljs == 'function'){jsfcljs(document.getElementById('form'),{'id':'1'},'');}return false
//
// The referenced form must exist on `page` and have an action. Its non-submit inputs
// form the base field set and the object literal, when present, is merged over it.
func ExtractForm(page *Page, script string) (FormDescriptor, error) {
	match := formIdRegex.FindStringSubmatch(script)
	if len(match) < 2 {
		return FormDescriptor{}, fmt.Errorf("%w: no form id in script %q", ErrMalformedForm, script)
	}
	formId := match[1]

	form := htmlutil.FindByID(page.Document(), formId)
	if form.Length() == 0 {
		return FormDescriptor{}, fmt.Errorf("%w: form %q not found", ErrMalformedForm, formId)
	}
	if goquery.NodeName(form) != "form" {
		return FormDescriptor{}, fmt.Errorf("%w: element %q is a <%s>", ErrMalformedForm, formId, goquery.NodeName(form))
	}
	action := strings.TrimSpace(form.AttrOr("action", ""))
	if action == "" {
		return FormDescriptor{}, fmt.Errorf("%w: form %q has no action", ErrMalformedForm, formId)
	}
	actionUrl, err := page.Resolve(action)
	if err != nil {
		return FormDescriptor{}, fmt.Errorf("%w: form %q action %q: %w", ErrMalformedForm, formId, action, err)
	}

	fields := formInputs(form, true)
	for k, v := range parseExtraParams(script) {
		fields[k] = v
	}

	return FormDescriptor{
		Action: actionUrl,
		Fields: fields,
	}, nil
}

// formInputs collects name -> value of every named input inside `form`, a missing
// value becomes the empty string.
func formInputs(form *goquery.Selection, skipSubmit bool) map[string]string {
	fields := map[string]string{}
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		if skipSubmit && strings.EqualFold(input.AttrOr("type", ""), "submit") {
			return
		}
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		fields[name] = input.AttrOr("value", "")
	})
	return fields
}

// parseExtraParams reads the `,{...},` object literal of a jsfcljs call as json5, which
// accepts the single quoted strings and bare literals the portal emits. Anything that
// doesn't parse is treated as no extra parameters.
func parseExtraParams(script string) map[string]string {
	match := extraParamsRegex.FindStringSubmatch(script)
	if len(match) < 2 {
		return nil
	}

	var literal map[string]any
	err := json5.Unmarshal([]byte(match[1]), &literal)
	if err != nil {
		return nil
	}

	out := make(map[string]string, len(literal))
	for k, v := range literal {
		out[k] = literalString(v)
	}
	return out
}

func literalString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
