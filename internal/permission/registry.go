package permission

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// identifierPattern enforces <area>.<action>.<resource>.
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9]*\.[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

// Declaration is one permission as written in a catalog.
type Declaration struct {
	Identifier  string
	Description string
}

// Area groups the permissions of one feature area of the admin app.
type Area struct {
	Name         string
	Declarations []Declaration
}

// Entry is a registered permission.
type Entry struct {
	Identifier  string `json:"identifier"`
	Description string `json:"description"`
	Area        string `json:"area"`
}

// Registry is the authoritative, immutable catalog of permission identifiers.
// Build it once at process start and pass it to whatever needs it.
type Registry struct {
	entries map[string]Entry
	byArea  map[string][]string
	areas   []string
}

// NewRegistry validates the declarations and builds a registry. Duplicate or
// malformed identifiers are reported as errors so callers can fail at startup.
func NewRegistry(areas ...Area) (*Registry, error) {
	r := &Registry{
		entries: make(map[string]Entry),
		byArea:  make(map[string][]string),
	}

	var problems []string
	for _, area := range areas {
		if area.Name == "" {
			problems = append(problems, "area with empty name")
			continue
		}
		if _, seen := r.byArea[area.Name]; seen {
			problems = append(problems, fmt.Sprintf("area %q declared twice", area.Name))
			continue
		}
		r.byArea[area.Name] = make([]string, 0, len(area.Declarations))
		r.areas = append(r.areas, area.Name)

		for _, d := range area.Declarations {
			if err := ValidateIdentifier(d.Identifier); err != nil {
				problems = append(problems, err.Error())
				continue
			}
			if !strings.HasPrefix(d.Identifier, area.Name+".") {
				problems = append(problems, fmt.Sprintf("permission %q declared outside its area %q", d.Identifier, area.Name))
				continue
			}
			if existing, dup := r.entries[d.Identifier]; dup {
				problems = append(problems, fmt.Sprintf("permission %q declared twice (areas %q and %q)", d.Identifier, existing.Area, area.Name))
				continue
			}
			r.entries[d.Identifier] = Entry{Identifier: d.Identifier, Description: d.Description, Area: area.Name}
			r.byArea[area.Name] = append(r.byArea[area.Name], d.Identifier)
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid permission catalog: %s", strings.Join(problems, "; "))
	}

	sort.Strings(r.areas)
	for name := range r.byArea {
		sort.Strings(r.byArea[name])
	}
	return r, nil
}

// MustNewRegistry is NewRegistry for program initialization.
func MustNewRegistry(areas ...Area) *Registry {
	r, err := NewRegistry(areas...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the registry of every built-in feature area.
func Default() (*Registry, error) {
	return NewRegistry(IAMArea(), MenuArea(), OrderArea(), BranchArea(), SettingsArea())
}

// ValidateIdentifier checks the namespacing convention of a permission name.
func ValidateIdentifier(identifier string) error {
	if !identifierPattern.MatchString(identifier) {
		return fmt.Errorf("permission %q does not match <area>.<action>.<resource>", identifier)
	}
	return nil
}

// All lists every permission ordered by identifier.
func (r *Registry) All() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// ForArea lists the identifiers declared by one area; unknown areas yield nil.
func (r *Registry) ForArea(area string) []string {
	ids, ok := r.byArea[area]
	if !ok {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func (r *Registry) Identifiers() []string {
	out := make([]string, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Has(identifier string) bool {
	_, ok := r.entries[identifier]
	return ok
}

func (r *Registry) Lookup(identifier string) (Entry, bool) {
	e, ok := r.entries[identifier]
	return e, ok
}

func (r *Registry) Areas() []string {
	out := make([]string, len(r.areas))
	copy(out, r.areas)
	return out
}

func (r *Registry) Len() int {
	return len(r.entries)
}
