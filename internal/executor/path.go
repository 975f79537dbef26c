package executor

import (
	"strconv"
	"strings"
)

// Path locates a value in the response: field names and list indexes.
type Path []PathElement

// PathElement is a response name (string) or a list index (int).
type PathElement any

// With returns a copy of p extended by elem.
func (p Path) With(elem PathElement) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, elem)
}

// String renders p as in "posts[0].author".
func (p Path) String() string {
	var b strings.Builder
	for _, elem := range p {
		switch e := elem.(type) {
		case int:
			b.WriteString("[" + strconv.Itoa(e) + "]")
		case string:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(e)
		}
	}
	return b.String()
}

// root returns the path of the root field p starts with.
func (p Path) root() Path {
	for _, elem := range p {
		if name, ok := elem.(string); ok {
			return Path{name}
		}
	}
	return Path{}
}

func (s *executionState) markNulled(p Path) {
	if len(p) > 0 {
		s.nulled[p.String()] = struct{}{}
	}
}

// isNulled reports whether p or one of its ancestors was nulled.
func (s *executionState) isNulled(p Path) bool {
	if len(s.nulled) == 0 {
		return false
	}
	for i := 1; i <= len(p); i++ {
		if _, ok := s.nulled[p[:i].String()]; ok {
			return true
		}
	}
	return false
}

// setAt writes value at path inside data. Objects missing on the way are
// created; a write below null or past the end of a list is dropped.
func setAt(data map[string]any, path Path, value any) {
	var cur any = data
	for i, elem := range path {
		last := i == len(path)-1
		switch e := elem.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return
			}
			if last {
				m[e] = value
				return
			}
			next, exists := m[e]
			if !exists {
				next = map[string]any{}
				m[e] = next
			}
			cur = next
		case int:
			list, ok := cur.([]any)
			if !ok || e >= len(list) {
				return
			}
			if last {
				list[e] = value
				return
			}
			cur = list[e]
		}
	}
}
