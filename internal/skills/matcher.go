package skills

import "strings"

// Result splits a role's skills into those present in and absent from the résumé.
// Both slices keep the profile order.
type Result struct {
	Found    []string `json:"found"`
	NotFound []string `json:"not_found"`
}

// Matcher decides which of a role's skills a résumé mentions.
type Matcher interface {
	Match(resumeText, role string) Result
}

// SubstringMatcher reports a skill as found when its normalized form occurs anywhere
// in the normalized résumé. There are no word boundaries, so "java" matches "javascript".
type SubstringMatcher struct {
	catalog *Catalog
}

func NewSubstringMatcher(catalog *Catalog) *SubstringMatcher {
	if catalog == nil {
		catalog = MustDefault()
	}
	return &SubstringMatcher{catalog: catalog}
}

// Match never fails. An unknown role yields empty Found and NotFound.
func (m *SubstringMatcher) Match(resumeText, role string) Result {
	result := Result{Found: []string{}, NotFound: []string{}}

	profile, ok := m.catalog.lookup(role)
	if !ok {
		return result
	}

	resume := Normalize(resumeText)
	for _, skill := range profile.Skills {
		if strings.Contains(resume, Normalize(skill)) {
			result.Found = append(result.Found, skill)
		} else {
			result.NotFound = append(result.NotFound, skill)
		}
	}

	return result
}

var punctuation = strings.NewReplacer(".", "", "-", "")

// Normalize lower-cases s and removes '.' and '-'.
func Normalize(s string) string {
	return strings.ToLower(punctuation.Replace(s))
}
