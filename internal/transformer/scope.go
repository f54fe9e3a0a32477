package transformer

import "strings"

// MaxIncludeDepth bounds how deep includes are followed, so that default
// includes pointing at each other cannot recurse forever.
const MaxIncludeDepth = 10

// Scope holds the includes and excludes requested for one document.
// Paths are dotted: "user.memos" includes "user" and, below it, "memos".
type Scope struct {
	includes map[string]bool
	excludes map[string]bool
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{includes: map[string]bool{}, excludes: map[string]bool{}}
}

// ParseList splits a comma separated list, trimming blanks and dropping
// empty entries and any ":modifier" suffix.
func ParseList(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if i := strings.IndexByte(part, ':'); i >= 0 {
			part = part[:i]
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseIncludes adds the includes in csv. Every prefix of a dotted path is
// requested too.
func (s *Scope) ParseIncludes(csv string) {
	for _, path := range ParseList(csv) {
		segments := strings.Split(path, ".")
		for i := range segments {
			if len(segments[:i+1]) > MaxIncludeDepth {
				break
			}
			s.includes[strings.Join(segments[:i+1], ".")] = true
		}
	}
}

// ParseExcludes adds the excludes in csv.
func (s *Scope) ParseExcludes(csv string) {
	for _, path := range ParseList(csv) {
		s.excludes[path] = true
	}
}

// Requested reports whether the include at path was asked for.
func (s *Scope) Requested(path string) bool {
	return s.includes[path]
}

// Excluded reports whether the include at path was excluded.
func (s *Scope) Excluded(path string) bool {
	return s.excludes[path]
}

// includesFor returns the include names to resolve for a resource at
// parent, in declaration order: defaults first, then requested ones.
// Names the transformer does not declare are ignored.
func (s *Scope) includesFor(parent string, t Transformer) []string {
	seen := map[string]bool{}
	var out []string

	add := func(name string, requested bool) {
		path := join(parent, name)
		if seen[name] || s.Excluded(path) {
			return
		}
		if requested && !s.Requested(path) {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	for _, name := range t.DefaultIncludes() {
		add(name, false)
	}
	for _, name := range t.AvailableIncludes() {
		add(name, true)
	}
	return out
}

func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
