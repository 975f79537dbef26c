package server

import (
	"net/http"
	"slices"
)

// CORSOptions lists the origins allowed to call the endpoint. "*" allows
// any origin.
type CORSOptions struct {
	AllowedOrigins []string
}

func (o CORSOptions) apply(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || len(o.AllowedOrigins) == 0 {
		return
	}
	switch {
	case slices.Contains(o.AllowedOrigins, "*"):
		w.Header().Set("Access-Control-Allow-Origin", "*")
	case slices.Contains(o.AllowedOrigins, origin):
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	default:
		return
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	}
}
