package executor

import (
	language "github.com/hanpama/contentgraph/internal/language"
	schema "github.com/hanpama/contentgraph/internal/schema"
)

// fieldGroup holds the field nodes merged under one response name.
type fieldGroup struct {
	name   string
	fields []*language.Field
}

// collectFields flattens set for objectType into groups keyed by response
// name, in document order. Fragments whose type condition does not match
// and selections excluded by @skip or @include are left out.
func (s *executionState) collectFields(objectType *schema.Type, set language.SelectionSet) []fieldGroup {
	var groups []fieldGroup
	index := map[string]int{}
	visited := map[string]bool{}

	var walk func(language.SelectionSet)
	walk = func(set language.SelectionSet) {
		for _, sel := range set {
			switch sel := sel.(type) {
			case *language.Field:
				if !s.included(sel.Directives) {
					continue
				}
				name := sel.Alias
				if name == "" {
					name = sel.Name
				}
				if i, ok := index[name]; ok {
					groups[i].fields = append(groups[i].fields, sel)
					continue
				}
				index[name] = len(groups)
				groups = append(groups, fieldGroup{name: name, fields: []*language.Field{sel}})
			case *language.InlineFragment:
				if s.included(sel.Directives) && fragmentApplies(s.schema, objectType, sel.TypeCondition) {
					walk(sel.SelectionSet)
				}
			case *language.FragmentSpread:
				if visited[sel.Name] || !s.included(sel.Directives) {
					continue
				}
				visited[sel.Name] = true
				def := s.document.Fragments.ForName(sel.Name)
				if def != nil && s.included(def.Directives) && fragmentApplies(s.schema, objectType, def.TypeCondition) {
					walk(def.SelectionSet)
				}
			}
		}
	}
	walk(set)
	return groups
}

// fragmentApplies reports whether a fragment on typeCondition selects fields
// of objectType. Interface conditions match their implementations and union
// conditions match their members.
func fragmentApplies(sch *schema.Schema, objectType *schema.Type, typeCondition string) bool {
	if typeCondition == "" || typeCondition == objectType.Name {
		return true
	}
	cond := sch.Types[typeCondition]
	if cond == nil {
		return false
	}
	switch cond.Kind {
	case schema.TypeKindInterface:
		for _, name := range objectType.Interfaces {
			if name == typeCondition {
				return true
			}
		}
		fallthrough
	case schema.TypeKindUnion:
		for _, name := range cond.PossibleTypes {
			if name == objectType.Name {
				return true
			}
		}
	}
	return false
}

// included evaluates @skip and @include.
func (s *executionState) included(dirs language.DirectiveList) bool {
	if skip, ok := s.directiveIf(dirs.ForName("skip")); ok && skip {
		return false
	}
	if include, ok := s.directiveIf(dirs.ForName("include")); ok && !include {
		return false
	}
	return true
}

func (s *executionState) directiveIf(d *language.Directive) (value, ok bool) {
	if d == nil {
		return false, false
	}
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false, false
	}
	value, ok = valueFromAST(arg.Value, s.variables).(bool)
	return value, ok
}
