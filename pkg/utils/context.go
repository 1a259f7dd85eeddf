package utils

import (
	"context"
)

type contextKey string

const (
	CustomerIDKey contextKey = "customer_id"
	RequestIDKey  contextKey = "request_id"
)

// GetCustomerIDFromContext returns the authenticated customer, or nil for anonymous callers.
func GetCustomerIDFromContext(ctx context.Context) *string {
	id, ok := ctx.Value(CustomerIDKey).(string)
	if !ok || id == "" {
		return nil
	}
	return &id
}

func SetCustomerContext(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, CustomerIDKey, customerID)
}

func GetRequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(RequestIDKey).(string)
	return id, ok
}

func SetRequestIDContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}
