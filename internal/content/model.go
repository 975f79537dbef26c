package content

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/hanpama/contentgraph/internal/registry"
)

// DataField exposes a stored data value as a field.
type DataField struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// PostType is a kind of content, such as posts or pages.
type PostType struct {
	Name              string      `yaml:"name"`
	GraphQLSingleName string      `yaml:"graphql_single_name"`
	GraphQLPluralName string      `yaml:"graphql_plural_name"`
	Description       string      `yaml:"description"`
	ShowInGraphQL     *bool       `yaml:"show_in_graphql"`
	Hierarchical      bool        `yaml:"hierarchical"`
	Taxonomies        []string    `yaml:"taxonomies"`
	Fields            []DataField `yaml:"fields"`
}

// Taxonomy groups content into terms, such as categories or tags.
type Taxonomy struct {
	Name              string      `yaml:"name"`
	GraphQLSingleName string      `yaml:"graphql_single_name"`
	GraphQLPluralName string      `yaml:"graphql_plural_name"`
	Description       string      `yaml:"description"`
	ShowInGraphQL     *bool       `yaml:"show_in_graphql"`
	Hierarchical      bool        `yaml:"hierarchical"`
	Fields            []DataField `yaml:"fields"`
}

// Model is the host content model.
type Model struct {
	PostTypes  []PostType `yaml:"post_types"`
	Taxonomies []Taxonomy `yaml:"taxonomies"`
}

// DefaultModel has posts with categories and tags, and pages.
func DefaultModel() Model {
	return Model{
		PostTypes: []PostType{
			{Name: "post", GraphQLSingleName: "post", GraphQLPluralName: "posts", Taxonomies: []string{"category", "post_tag"}},
			{Name: "page", GraphQLSingleName: "page", GraphQLPluralName: "pages", Hierarchical: true},
		},
		Taxonomies: []Taxonomy{
			{Name: "category", GraphQLSingleName: "category", GraphQLPluralName: "categories", Hierarchical: true},
			{Name: "post_tag", GraphQLSingleName: "tag", GraphQLPluralName: "tags"},
		},
	}
}

func (p PostType) single() string { return orDefault(p.GraphQLSingleName, camel(p.Name)) }
func (p PostType) plural() string { return orDefault(p.GraphQLPluralName, p.single()+"s") }

// TypeName is the post type's object type.
func (p PostType) TypeName() string { return registry.UcFirst(p.single()) }

func (t Taxonomy) single() string { return orDefault(t.GraphQLSingleName, camel(t.Name)) }
func (t Taxonomy) plural() string { return orDefault(t.GraphQLPluralName, t.single()+"s") }

// TypeName is the taxonomy's object type.
func (t Taxonomy) TypeName() string { return registry.UcFirst(t.single()) }

// Validate reports missing names and clashing GraphQL names.
func (m Model) Validate() error {
	var errs []error
	seen := map[string]string{}
	claim := func(owner, name string) {
		k := registry.Key(name)
		if prev, ok := seen[k]; ok {
			errs = append(errs, fmt.Errorf("%s: GraphQL name %q is already used by %s", owner, name, prev))
			return
		}
		seen[k] = owner
	}
	for _, reserved := range []string{"mediaItem", "mediaItems", "user", "users", "node", "contentNode", "contentNodes", "terms"} {
		seen[registry.Key(reserved)] = "the built-in schema"
	}
	taxonomies := map[string]bool{}
	for i, t := range m.Taxonomies {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("taxonomies[%d]: name is required", i))
			continue
		}
		taxonomies[t.Name] = true
		owner := "taxonomy " + t.Name
		claim(owner, t.single())
		claim(owner, t.plural())
	}
	for i, p := range m.PostTypes {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("post_types[%d]: name is required", i))
			continue
		}
		owner := "post type " + p.Name
		claim(owner, p.single())
		claim(owner, p.plural())
		for _, tax := range p.Taxonomies {
			if !taxonomies[tax] {
				errs = append(errs, fmt.Errorf("%s: unknown taxonomy %q", owner, tax))
			}
		}
	}
	return errors.Join(errs...)
}

func (m Model) taxonomy(name string) (Taxonomy, bool) {
	for _, t := range m.Taxonomies {
		if t.Name == name {
			return t, true
		}
	}
	return Taxonomy{}, false
}

func shown(flag *bool) bool { return flag == nil || *flag }

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

// camel turns "post_tag" into "postTag".
func camel(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	for i := range parts {
		if i == 0 {
			parts[i] = registry.LcFirst(parts[i])
		} else {
			parts[i] = registry.UcFirst(parts[i])
		}
	}
	return strings.Join(parts, "")
}

// enumName turns "post_tag" into "POST_TAG".
func enumName(s string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, s))
}
