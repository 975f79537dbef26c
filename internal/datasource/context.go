package datasource

import "context"

type loaderKey struct{}
type queryClassKey struct{}

// WithLoader attaches a request-scoped loader to ctx.
func WithLoader(ctx context.Context, l *Loader) context.Context {
	return context.WithValue(ctx, loaderKey{}, l)
}

// LoaderFrom returns the loader attached to ctx, if any.
func LoaderFrom(ctx context.Context) (*Loader, bool) {
	l, ok := ctx.Value(loaderKey{}).(*Loader)
	return l, ok && l != nil
}

// WithQueryClass records which query strategy a connection resolver expects
// the store to use, such as "post" or "term".
func WithQueryClass(ctx context.Context, class string) context.Context {
	if class == "" {
		return ctx
	}
	return context.WithValue(ctx, queryClassKey{}, class)
}

// QueryClassFrom returns the query class hint set by WithQueryClass.
func QueryClassFrom(ctx context.Context) string {
	s, _ := ctx.Value(queryClassKey{}).(string)
	return s
}
