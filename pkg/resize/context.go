package resize

import "context"

type serviceKey struct{}

// NewContext returns a copy of ctx carrying svc.
// The server uses it to scope one Service to each connected page.
func NewContext(ctx context.Context, svc *Service) context.Context {
	return context.WithValue(ctx, serviceKey{}, svc)
}

// FromContext returns the Service stored in ctx, or nil.
func FromContext(ctx context.Context) *Service {
	svc, _ := ctx.Value(serviceKey{}).(*Service)
	return svc
}
