// Package context provides operation-scoped values extraction.
package context

import (
	"context"
)

// OperatorContext identifies the warehouse operator driving a capture session.
type OperatorContext struct {
	OperatorID string
	StationID  string
	SessionID  string
}

type operatorContextKey struct{}

// WithOperator adds OperatorContext to context.
func WithOperator(ctx context.Context, op *OperatorContext) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, op)
}

// GetOperator returns OperatorContext from context.
func GetOperator(ctx context.Context) *OperatorContext {
	if v, ok := ctx.Value(operatorContextKey{}).(*OperatorContext); ok {
		return v
	}
	return nil
}

// GetOperatorID returns operator ID from context or empty string.
func GetOperatorID(ctx context.Context) string {
	if o := GetOperator(ctx); o != nil {
		return o.OperatorID
	}
	return ""
}

// GetStationID returns station ID from context or empty string.
func GetStationID(ctx context.Context) string {
	if o := GetOperator(ctx); o != nil {
		return o.StationID
	}
	return ""
}
