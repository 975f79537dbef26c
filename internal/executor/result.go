package executor

import "errors"

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExtendedError is an error carrying GraphQL error extensions. Resolver
// errors wrapping one report its extensions in the response.
type ExtendedError interface {
	error
	Extensions() map[string]any
}

// fieldError converts a resolver error into a located GraphQL error.
func fieldError(err error, path Path) GraphQLError {
	ge := GraphQLError{Message: err.Error(), Path: path}
	var ext ExtendedError
	if errors.As(err, &ext) {
		ge.Extensions = ext.Extensions()
	}
	return ge
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}
