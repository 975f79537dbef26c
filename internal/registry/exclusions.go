package registry

// Exclusions decides which parts of the content model stay out of the schema.
type Exclusions interface {
	IsTypeExcluded(name string) bool
	IsConnectionExcluded(name string) bool
	IsMutationExcluded(name string) bool
}

// ExclusionList is a static, case-insensitive Exclusions.
type ExclusionList struct {
	types       map[string]struct{}
	connections map[string]struct{}
	mutations   map[string]struct{}
}

// NewExclusionList builds an ExclusionList from name lists.
func NewExclusionList(types, connections, mutations []string) *ExclusionList {
	return &ExclusionList{
		types:       keySet(types),
		connections: keySet(connections),
		mutations:   keySet(mutations),
	}
}

func keySet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[Key(n)] = struct{}{}
	}
	return set
}

func (l *ExclusionList) IsTypeExcluded(name string) bool {
	if l == nil {
		return false
	}
	_, ok := l.types[Key(name)]
	return ok
}

func (l *ExclusionList) IsConnectionExcluded(name string) bool {
	if l == nil {
		return false
	}
	_, ok := l.connections[Key(name)]
	return ok
}

func (l *ExclusionList) IsMutationExcluded(name string) bool {
	if l == nil {
		return false
	}
	_, ok := l.mutations[Key(name)]
	return ok
}
