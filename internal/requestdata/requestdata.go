package requestdata

import "context"

type requestDataKey struct{}

// RequestData carries the authenticated caller through the request context.
// UserID is the username resolved by the access guard.
type RequestData struct {
	UserID   string
	Identity string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey{})
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}
