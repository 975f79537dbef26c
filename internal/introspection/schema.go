package introspection

import (
	"strings"
	"sync"

	schema "github.com/hanpama/contentgraph/internal/schema"
)

// metaSDL declares the introspection types. Query only carries the root
// meta fields that Wrap copies onto the real query root.
const metaSDL = `
type Query {
  "Access the current type schema of this server."
  __schema: __Schema!
  "Request the type information of a single type."
  __type(name: String!): __Type
}

"A GraphQL Schema defines the capabilities of a GraphQL server."
type __Schema {
  description: String
  "A list of all types supported by this server."
  types: [__Type!]!
  "The type that query operations will be rooted at."
  queryType: __Type!
  "If this server supports mutation, the type that mutation operations will be rooted at."
  mutationType: __Type
  "If this server supports subscription, the type that subscription operations will be rooted at."
  subscriptionType: __Type
  "A list of all directives supported by this server."
  directives: [__Directive!]!
}

"The fundamental unit of any GraphQL Schema is the type."
type __Type {
  kind: __TypeKind!
  name: String
  description: String
  specifiedByURL: String
  fields(includeDeprecated: Boolean = false): [__Field!]
  interfaces: [__Type!]
  possibleTypes: [__Type!]
  enumValues(includeDeprecated: Boolean = false): [__EnumValue!]
  inputFields(includeDeprecated: Boolean = false): [__InputValue!]
  ofType: __Type
  isOneOf: Boolean
}

type __Field {
  name: String!
  description: String
  args(includeDeprecated: Boolean = false): [__InputValue!]!
  type: __Type!
  isDeprecated: Boolean!
  deprecationReason: String
}

type __InputValue {
  name: String!
  description: String
  type: __Type!
  "A GraphQL-formatted string representing the default value for this input value."
  defaultValue: String
  isDeprecated: Boolean!
  deprecationReason: String
}

type __EnumValue {
  name: String!
  description: String
  isDeprecated: Boolean!
  deprecationReason: String
}

type __Directive {
  name: String!
  description: String
  isRepeatable: Boolean!
  locations: [__DirectiveLocation!]!
  args(includeDeprecated: Boolean = false): [__InputValue!]!
}

enum __TypeKind { SCALAR OBJECT INTERFACE UNION ENUM INPUT_OBJECT LIST NON_NULL }

enum __DirectiveLocation {
  QUERY MUTATION SUBSCRIPTION FIELD FRAGMENT_DEFINITION FRAGMENT_SPREAD
  INLINE_FRAGMENT VARIABLE_DEFINITION SCHEMA SCALAR OBJECT FIELD_DEFINITION
  ARGUMENT_DEFINITION INTERFACE UNION ENUM ENUM_VALUE INPUT_OBJECT
  INPUT_FIELD_DEFINITION
}
`

var metaSchema = sync.OnceValue(func() *schema.Schema {
	s, err := schema.BuildFromSDL(metaSDL)
	if err != nil {
		panic("introspection: " + err.Error())
	}
	return s
})

// extend returns a copy of original with the meta types added and the meta
// fields appended to a copy of its query root. original is not modified.
func extend(original *schema.Schema) *schema.Schema {
	meta := metaSchema()
	out := *original
	out.Types = make(map[string]*schema.Type, len(original.Types)+len(meta.Types))
	for name, t := range original.Types {
		out.Types[name] = t
	}
	for name, t := range meta.Types {
		if strings.HasPrefix(name, "__") {
			out.Types[name] = t
		}
	}
	if root := original.GetQueryType(); root != nil {
		copied := *root
		copied.Fields = append(append([]*schema.Field(nil), root.Fields...), meta.GetQueryType().Fields...)
		out.Types[root.Name] = &copied
	}
	return &out
}
