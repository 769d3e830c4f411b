// Package flight provides the Arrow Flight RPC handlers of the record
// filter service.
//
// Clients stream record batches through DoExchange together with a filter
// command in the flight descriptor and receive the matching rows back with
// the same schema. DoAction exposes filter metadata and validation.
package flight

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/recordfilter/filter"
)

// Server implements the Flight service handlers.
// Embeds BaseFlightServer for forward compatibility with protocol changes;
// RPCs other than DoExchange, DoAction and ListActions return Unimplemented.
type Server struct {
	flight.BaseFlightServer

	evaluator     *filter.Evaluator
	allocator     memory.Allocator
	logger        *slog.Logger
	skipUndefined bool
}

// NewServer creates a new Flight server.
// skipUndefined is the missing-field disposition used when a command does
// not set one.
func NewServer(evaluator *filter.Evaluator, allocator memory.Allocator, logger *slog.Logger, skipUndefined bool) *Server {
	return &Server{
		evaluator:     evaluator,
		allocator:     allocator,
		logger:        logger,
		skipUndefined: skipUndefined,
	}
}

// RegisterFlightServer registers the Flight service on the provided gRPC server.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}
