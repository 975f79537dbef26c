// Package server exposes an executor over HTTP using the GraphQL over HTTP
// conventions: GET and POST requests, JSON bodies, batched POSTs and an
// optional GraphiQL page.
package server

import (
	"context"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	eventbus "github.com/hanpama/contentgraph/internal/eventbus"
	events "github.com/hanpama/contentgraph/internal/events"
	executor "github.com/hanpama/contentgraph/internal/executor"
	language "github.com/hanpama/contentgraph/internal/language"
	reqid "github.com/hanpama/contentgraph/internal/reqid"
	schema "github.com/hanpama/contentgraph/internal/schema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler serves one schema.
type Handler struct {
	exec *executor.Executor
	opt  Options
}

type Options struct {
	// Timeout bounds requests whose context has no deadline. Zero disables it.
	Timeout time.Duration
	// Pretty indents responses.
	Pretty bool
	// MaxBodyBytes limits POST bodies. Zero means unlimited.
	MaxBodyBytes int64
	// CORS is disabled while AllowedOrigins is empty.
	CORS CORSOptions
	// ContextFuncs derive the execution context from the request, in order.
	ContextFuncs []ContextFunc
	Logger       *zap.Logger
	GraphiQL     bool
}

type Option func(*Options)

// ContextFunc attaches per-request state, such as a loader or the viewer,
// to the execution context.
type ContextFunc func(ctx context.Context, r *http.Request) context.Context

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithGraphiQL(enable bool) Option    { return func(o *Options) { o.GraphiQL = enable } }
func WithLogger(l *zap.Logger) Option    { return func(o *Options) { o.Logger = l } }

func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}

func WithContext(fn ContextFunc) Option {
	return func(o *Options) { o.ContextFuncs = append(o.ContextFuncs, fn) }
}

// New returns a handler executing against runtime and schema.
func New(runtime executor.Runtime, schema *schema.Schema, opts ...Option) (*Handler, error) {
	opt := Options{Timeout: 10 * time.Second, GraphiQL: true, Logger: zap.NewNop()}
	for _, f := range opts {
		f(&opt)
	}
	opt.Logger = opt.Logger.Named("server")
	return &Handler{exec: executor.NewExecutor(runtime, schema), opt: opt}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	ctx, rid := reqid.WithID(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)

	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	h.opt.CORS.apply(w, r)
	switch {
	case r.Method == http.MethodOptions:
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	case r.Method != http.MethodGet && r.Method != http.MethodPost:
		status = http.StatusMethodNotAllowed
		h.write(w, status, errorResponse(&language.Error{Message: "method not allowed"}))
		return
	case r.Method == http.MethodGet && h.opt.GraphiQL && wantsGraphiQL(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	reqs, batch, rerr := decodeRequest(w, r, h.opt.MaxBodyBytes)
	if rerr != nil {
		status = rerr.status
		h.opt.Logger.Debug("rejected request",
			zap.String("requestId", rid), zap.Int("status", status), zap.String("error", rerr.msg))
		h.write(w, status, errorResponse(&language.Error{Message: rerr.msg}))
		return
	}

	for _, fn := range h.opt.ContextFuncs {
		ctx = fn(ctx, r)
	}
	if !batch {
		h.write(w, status, h.execute(ctx, reqs[0], false))
		return
	}
	out := make([]response, len(reqs))
	for i, req := range reqs {
		out[i] = h.execute(ctx, req, true)
	}
	h.write(w, status, out)
}

func (h *Handler) execute(ctx context.Context, req Request, batched bool) response {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return errorResponse(language.AsError(err))
	}

	var opType string
	if op := doc.Operations.ForName(req.OperationName); op != nil {
		opType = string(op.Operation)
	}
	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Batched:       batched,
	})
	res := h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)

	errs := make([]error, len(res.Errors))
	for i := range res.Errors {
		errs[i] = res.Errors[i]
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Batched:       batched,
		Errors:        errs,
		Duration:      time.Since(start),
	})
	if len(res.Errors) > 0 {
		rid, _ := reqid.FromContext(ctx)
		h.opt.Logger.Debug("operation finished with errors",
			zap.String("requestId", rid),
			zap.String("operation", req.OperationName),
			zap.Int("errors", len(res.Errors)),
			zap.String("first", res.Errors[0].Message))
	}
	return resultResponse(res)
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, v, h.opt.Pretty)
}
