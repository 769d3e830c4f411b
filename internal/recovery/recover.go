// Package recovery provides panic recovery for Flight RPC handlers and
// batch filtering, so a malformed batch or payload cannot crash the server.
package recovery

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RecoverToError runs fn and converts a panic into a gRPC Internal error.
//
// Example:
//
//	err := recovery.RecoverToError(logger, "DoExchange", func() error {
//	    return s.filterStream(ctx, stream, cmd)
//	})
func RecoverToError(logger *slog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
			err = status.Errorf(codes.Internal, "%s panicked: %v", operation, r)
		}
	}()

	return fn()
}

// RecoverToValue runs fn and converts a panic into the zero value and a
// plain error.
//
// Example:
//
//	out, err := recovery.RecoverToValue(logger, "FilterRecordBatch", func() (arrow.RecordBatch, error) {
//	    return records.FilterRecordBatch(ctx, eval, fs, batch, skip, mem)
//	})
func RecoverToValue[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
			var zero T
			result = zero
			err = fmt.Errorf("%s panicked: %v", operation, r)
		}
	}()

	return fn()
}

// Recover runs fn and logs a panic without returning it.
// Use for cleanup where errors can't be returned.
func Recover(logger *slog.Logger, operation string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
		}
	}()

	fn()
}

func logPanic(logger *slog.Logger, operation string, r any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("Panic recovered",
		"operation", operation,
		"panic", r,
		"stack", string(debug.Stack()),
	)
}
