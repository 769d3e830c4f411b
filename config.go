package recordfilter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/recordfilter/auth"
)

// Config contains configuration for a filter Engine.
type Config struct {
	// Logger receives warnings for ignored filters and errors for
	// unsupported date ranges.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level of the logger created when Logger is nil.
	// OPTIONAL: If nil, slog.Default() is used.
	// Valid values: slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level

	// SkipUndefined decides whether records missing a filtered field pass.
	// OPTIONAL: If nil, records missing a field pass (true).
	SkipUndefined *bool

	// Location is the time zone of symbolic date ranges and of date strings
	// without an offset.
	// OPTIONAL: Uses time.Local if nil.
	Location *time.Location

	// Now returns the current time anchoring symbolic date ranges.
	// OPTIONAL: Uses time.Now if nil.
	Now func() time.Time

	// MaxPayloadSize limits the decompressed size of zstd payloads in bytes.
	// OPTIONAL: If 0, uses DefaultMaxPayloadSize.
	MaxPayloadSize uint64
}

// DefaultMaxPayloadSize is the decompressed payload limit used when
// Config.MaxPayloadSize is 0.
const DefaultMaxPayloadSize = 256 << 20

// ServerConfig contains configuration for the record filter Flight server.
type ServerConfig struct {
	// Engine evaluates the filter commands received by the server.
	// OPTIONAL: If nil, filters run with default evaluator options and
	// records missing a filtered field pass. The caller owns the Engine
	// and closes it after the gRPC server stops.
	Engine *Engine

	// Auth provides authentication logic.
	// OPTIONAL: If nil, no authentication (all requests allowed).
	Auth auth.Authenticator

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, slog.Default() is used.
	LogLevel *slog.Level

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	// Recommended: 16MB for large Arrow batches.
	MaxMessageSize int
}

// Standard errors returned by recordfilter package.
var (
	// ErrInvalidConfig indicates Config or ServerConfig validation failed.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnsupportedFormat indicates a payload format or file extension
	// that cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInvalidPayload indicates a filter set or record payload that is
	// syntactically invalid.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrUnauthorized indicates authentication failed.
	// Return this from Authenticator.Authenticate() for invalid tokens.
	ErrUnauthorized = auth.ErrUnauthenticated
)

// newLogger returns logger, or a text logger on standard error at level,
// or slog.Default().
func newLogger(logger *slog.Logger, level *slog.Level) *slog.Logger {
	if logger != nil {
		return logger
	}
	if level == nil {
		return slog.Default()
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: *level,
	})
	return slog.New(handler)
}

func validateLevel(level *slog.Level) error {
	if level == nil {
		return nil
	}
	if *level < slog.LevelDebug || *level > slog.LevelError {
		return fmt.Errorf("log level %d is out of range", int(*level))
	}
	return nil
}
