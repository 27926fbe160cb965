// Package summary condenses a course's grade report into the four unit scores and the
// make-up scores the student dashboard shows.
package summary

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/scrapers/sigaa"
)

const (
	unitCount   = 4
	makeUpCount = 2
)

var makeUpMarkers = []string{"Reposição", "Recuperação"}

// Course is the condensed grade report of one course, nil scores haven't been
// published.
type Course struct {
	Units   [unitCount]*float64
	MakeUps [makeUpCount]*float64
}

// entryValue is the value of a single entry or the last present value of a group.
func entryValue(entry sigaa.GradeEntry) *float64 {
	if entry.Kind == sigaa.GradeSingle {
		return entry.Value
	}
	var last *float64
	for _, sub := range entry.Subgrades {
		if sub.Value != nil {
			last = sub.Value
		}
	}
	return last
}

// Summarize maps the entries named "1" to "4" onto the units and the first two
// make-up entries onto the make-up slots. Entries without a value are skipped.
func Summarize(entries []sigaa.GradeEntry) Course {
	var out Course
	makeUps := 0
	for _, entry := range entries {
		value := entryValue(entry)
		if value == nil {
			continue
		}

		name := strings.TrimSpace(entry.Name)
		switch name {
		case "1", "2", "3", "4":
			out.Units[name[0]-'1'] = value
			continue
		}
		if isMakeUp(name) && makeUps < makeUpCount {
			out.MakeUps[makeUps] = value
			makeUps++
		}
	}
	return out
}

func isMakeUp(name string) bool {
	for _, marker := range makeUpMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// Average is the mean of the published units, false when none is.
func (c Course) Average() (float64, bool) {
	var sum float64
	n := 0
	for _, unit := range c.Units {
		if unit == nil {
			continue
		}
		sum += *unit
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// titles below this similarity to the query are never picked.
const minCourseSimilarity = 0.85

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// MatchCourse picks the title `query` refers to, ignoring case and accents. A title
// containing the query wins outright, otherwise the most similar title is picked.
// It returns -1 when no title is close enough.
func MatchCourse(titles []string, query string) int {
	query = fold(query)
	if query == "" {
		return -1
	}

	folded := make([]string, len(titles))
	for i, title := range titles {
		folded[i] = fold(title)
		if strings.Contains(folded[i], query) {
			return i
		}
	}

	best := -1
	var bestSimilarity float64
	for i, title := range folded {
		similarity := matchr.JaroWinkler(title, query, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = i
		}
	}
	if bestSimilarity < minCourseSimilarity {
		return -1
	}
	return best
}
