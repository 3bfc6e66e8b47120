// Package skills matches résumé text against per-role skill keyword lists.
package skills

import (
	"fmt"
	"sort"
	"strings"
)

// Profile is a named role and its ordered skill keywords.
type Profile struct {
	Role   string
	Skills []string
}

// DefaultProfiles is the built-in role table used when configuration does not provide one.
var DefaultProfiles = map[string][]string{
	"Machine Learning": {
		"python", "tensorflow", "pytorch", "scikit-learn",
		"pandas", "sql", "deep learning", "nlp",
		"computer vision", "aws sagemaker",
	},
	"Full Stack": {
		"javascript", "typescript", "react", "Node",
		"express", "mongodb", "postgresql",
		"html", "css", "docker", "aws",
	},
	"Cloud/DevOps": {
		"aws", "linux", "bash", "docker", "kubernetes",
		"terraform", "jenkins", "ci/cd",
		"ansible", "prometheus",
	},
	"Cybersecurity": {
		"network security", "linux", "wireshark",
		"penetration testing", "cryptography",
		"firewalls", "owasp", "python",
		"incident response", "ceh",
	},
}

// Catalog is an immutable role -> profile table. It is safe for concurrent use.
type Catalog struct {
	profiles map[string]Profile
	folded   map[string]string
	roles    []string
}

// NewCatalog copies the provided table. Blank roles and blank keywords are rejected.
func NewCatalog(table map[string][]string) (*Catalog, error) {
	c := &Catalog{
		profiles: make(map[string]Profile, len(table)),
		folded:   make(map[string]string, len(table)),
	}

	for role, keywords := range table {
		role = strings.TrimSpace(role)
		if role == "" {
			return nil, fmt.Errorf("role name must not be empty")
		}

		list := make([]string, 0, len(keywords))
		for _, keyword := range keywords {
			keyword = strings.TrimSpace(keyword)
			if keyword == "" {
				return nil, fmt.Errorf("role %q: skill keyword must not be empty", role)
			}
			list = append(list, keyword)
		}

		folded := strings.ToLower(role)
		if other, ok := c.folded[folded]; ok {
			return nil, fmt.Errorf("roles %q and %q differ only in case", other, role)
		}

		c.profiles[role] = Profile{Role: role, Skills: list}
		c.folded[folded] = role
		c.roles = append(c.roles, role)
	}

	sort.Strings(c.roles)
	return c, nil
}

// MustDefault returns a catalog over DefaultProfiles.
func MustDefault() *Catalog {
	c, err := NewCatalog(DefaultProfiles)
	if err != nil {
		panic(err)
	}
	return c
}

// Roles returns the configured role names in sorted order.
func (c *Catalog) Roles() []string {
	out := make([]string, len(c.roles))
	copy(out, c.roles)
	return out
}

// Profile returns the profile for role, matched exactly or else case-insensitively.
// The returned skills slice is a copy.
func (c *Catalog) Profile(role string) (Profile, bool) {
	p, ok := c.lookup(role)
	if !ok {
		return Profile{Role: role}, false
	}
	skills := make([]string, len(p.Skills))
	copy(skills, p.Skills)
	return Profile{Role: p.Role, Skills: skills}, true
}

// Has reports whether role is configured.
func (c *Catalog) Has(role string) bool {
	_, ok := c.lookup(role)
	return ok
}

func (c *Catalog) lookup(role string) (Profile, bool) {
	if p, ok := c.profiles[role]; ok {
		return p, true
	}
	if name, ok := c.folded[strings.ToLower(role)]; ok {
		return c.profiles[name], true
	}
	return Profile{}, false
}
