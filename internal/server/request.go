package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Request is one GraphQL request as sent by GET parameters or a JSON body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// badRequest rejects a request before execution.
type badRequest struct {
	status int
	msg    string
}

func reject(msg string) *badRequest { return &badRequest{status: http.StatusBadRequest, msg: msg} }

// decodeRequest reads the requests carried by r. batch reports a JSON array
// body, which may hold several requests.
func decodeRequest(w http.ResponseWriter, r *http.Request, maxBody int64) (reqs []Request, batch bool, _ *badRequest) {
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req := Request{Query: q.Get("query"), OperationName: q.Get("operationName"), Variables: map[string]any{}}
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return nil, false, reject("invalid 'variables' JSON")
			}
		}
		if req.Query == "" {
			return nil, false, reject("missing 'query'")
		}
		return []Request{req}, false, nil
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			return nil, false, reject("unsupported Content-Type")
		}
	}
	body := r.Body
	if maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBody)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		if tooLarge := new(http.MaxBytesError); errors.As(err, &tooLarge) {
			return nil, false, &badRequest{status: http.StatusRequestEntityTooLarge, msg: "body too large"}
		}
		return nil, false, reject("failed to read body")
	}

	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &reqs); err != nil {
			return nil, false, reject("invalid JSON")
		}
		if len(reqs) == 0 {
			return nil, false, reject("empty batch")
		}
		return reqs, true, nil
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, false, reject("invalid JSON")
	}
	if req.Query == "" {
		return nil, false, reject("missing 'query'")
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return []Request{req}, false, nil
}

// wantsGraphiQL reports a browser navigation: a GET without a query that
// accepts HTML.
func wantsGraphiQL(r *http.Request) bool {
	if r.URL.Query().Get("query") != "" {
		return false
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if mt == "text/html" || mt == "*/*" {
			return true
		}
	}
	return false
}
