package server

import (
	"net/http"

	executor "github.com/hanpama/contentgraph/internal/executor"
	language "github.com/hanpama/contentgraph/internal/language"
)

type location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type responseError struct {
	Message    string         `json:"message"`
	Locations  []location     `json:"locations,omitempty"`
	Path       executor.Path  `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type response struct {
	Data   any             `json:"data,omitempty"`
	Errors []responseError `json:"errors,omitempty"`
}

// errorResponse reports a request that did not execute.
func errorResponse(err *language.Error) response {
	re := responseError{Message: err.Message, Extensions: err.Extensions}
	for _, loc := range err.Locations {
		re.Locations = append(re.Locations, location{Line: loc.Line, Column: loc.Column})
	}
	return response{Errors: []responseError{re}}
}

func resultResponse(res *executor.ExecutionResult) response {
	out := response{Data: res.Data}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, responseError{Message: e.Message, Path: e.Path, Extensions: e.Extensions})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
