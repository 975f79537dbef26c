// Package language wraps the gqlparser AST and parser so the rest of the
// module imports one package for documents and their errors.
package language

import (
	"errors"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseQuery parses an executable document. Syntax errors are *Error values
// carrying their source locations.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseSchema parses an SDL document; name labels it in error messages.
func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// AsError returns err as a located GraphQL error, keeping the locations of
// parser errors.
func AsError(err error) *Error {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr
	}
	return &Error{Message: err.Error()}
}
