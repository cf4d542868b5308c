package context

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
)

// RequestContextKey represents keys used in request context
type RequestContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey RequestContextKey = "request_id"
	// StartTimeKey is the context key for request start time
	StartTimeKey RequestContextKey = "start_time"
	// RemoteAddrKey is the context key for remote address
	RemoteAddrKey RequestContextKey = "remote_addr"
	// CallerKey holds the authenticated caller asserted by the backend
	CallerKey RequestContextKey = "caller"
	// OperationIDKey holds the client supplied idempotency key
	OperationIDKey RequestContextKey = "operation_id"
)

// RequestInfo holds information about the current request
type RequestInfo struct {
	ID          string        `json:"request_id"`
	StartTime   time.Time     `json:"start_time"`
	RemoteAddr  string        `json:"remote_addr,omitempty"`
	Caller      models.Caller `json:"caller"`
	OperationID string        `json:"operation_id,omitempty"`
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithStartTime adds a start time to the context
func WithStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, StartTimeKey, startTime)
}

// GetStartTime retrieves the start time from context
func GetStartTime(ctx context.Context) time.Time {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}

// WithRemoteAddr adds remote address to the context
func WithRemoteAddr(ctx context.Context, remoteAddr string) context.Context {
	return context.WithValue(ctx, RemoteAddrKey, remoteAddr)
}

// GetRemoteAddr retrieves the remote address from context
func GetRemoteAddr(ctx context.Context) string {
	if remoteAddr, ok := ctx.Value(RemoteAddrKey).(string); ok {
		return remoteAddr
	}
	return ""
}

// WithCaller stores the caller capability
func WithCaller(ctx context.Context, caller models.Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// GetCaller returns the caller capability, or the zero Caller which every
// role check rejects.
func GetCaller(ctx context.Context) models.Caller {
	if caller, ok := ctx.Value(CallerKey).(models.Caller); ok {
		return caller
	}
	return models.Caller{}
}

// WithOperationID stores the idempotency key of a mutating request
func WithOperationID(ctx context.Context, opID string) context.Context {
	return context.WithValue(ctx, OperationIDKey, opID)
}

// GetOperationID returns the idempotency key, or "" when the client sent none
func GetOperationID(ctx context.Context) string {
	if opID, ok := ctx.Value(OperationIDKey).(string); ok {
		return opID
	}
	return ""
}

// NewRequestContext starts a request: it keeps requestID when the client
// sent one and generates it otherwise.
func NewRequestContext(ctx context.Context, requestID, remoteAddr string) context.Context {
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx = WithRequestID(ctx, requestID)
	ctx = WithStartTime(ctx, time.Now())
	ctx = WithRemoteAddr(ctx, remoteAddr)

	return ctx
}

// GetRequestInfo extracts all request information from context
func GetRequestInfo(ctx context.Context) RequestInfo {
	return RequestInfo{
		ID:          GetRequestID(ctx),
		StartTime:   GetStartTime(ctx),
		RemoteAddr:  GetRemoteAddr(ctx),
		Caller:      GetCaller(ctx),
		OperationID: GetOperationID(ctx),
	}
}
