package content

import "context"

type viewerKey struct{}

// WithViewer records the authenticated viewer of a request.
func WithViewer(ctx context.Context, viewer string) context.Context {
	return context.WithValue(ctx, viewerKey{}, viewer)
}

// ViewerFrom returns the request's viewer, or "" for anonymous requests.
func ViewerFrom(ctx context.Context) string {
	v, _ := ctx.Value(viewerKey{}).(string)
	return v
}
