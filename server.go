package recordfilter

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/recordfilter/auth"
	"github.com/hugr-lab/recordfilter/filter"
	"github.com/hugr-lab/recordfilter/flight"
)

// NewServer registers the record filter Flight service handlers on the
// provided gRPC server.
//
// The function:
//  1. Validates the ServerConfig
//  2. Creates Flight service implementation
//  3. Registers it on grpcServer
//
// Does NOT start the gRPC server - user controls lifecycle via grpcServer.Serve().
//
// For authentication and request logging, use ServerOptions() to create the
// gRPC server:
//
//	config := recordfilter.ServerConfig{
//	    Auth: recordfilter.StaticTokens(map[string]string{"secret": "alice"}),
//	}
//	grpcServer := grpc.NewServer(recordfilter.ServerOptions(config)...)
//	if err := recordfilter.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func NewServer(grpcServer *grpc.Server, config ServerConfig) error {
	if err := validateServerConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	allocator := config.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}

	logger := newLogger(config.Logger, config.LogLevel)

	// Without an Engine, filters run on a bare evaluator.
	evaluator, skipUndefined := filter.NewEvaluator(&filter.EvaluatorOptions{Logger: logger}), true
	if config.Engine != nil {
		evaluator, skipUndefined = config.Engine.Evaluator(), config.Engine.SkipUndefined()
	}

	flightServer := flight.NewServer(evaluator, allocator, logger, skipUndefined)
	flight.RegisterFlightServer(grpcServer, flightServer)

	logger.Info("Record filter Flight server registered",
		"has_auth", config.Auth != nil,
		"skip_undefined", skipUndefined,
		"max_message_size", config.MaxMessageSize,
	)

	return nil
}

// validateServerConfig checks that ServerConfig fields are valid.
func validateServerConfig(config ServerConfig) error {
	if config.MaxMessageSize < 0 {
		return fmt.Errorf("max message size must not be negative")
	}
	return validateLevel(config.LogLevel)
}

// ServerOptions returns gRPC server options with request metadata, logging
// and, when config.Auth is set, authentication interceptors.
func ServerOptions(config ServerConfig) []grpc.ServerOption {
	logger := newLogger(config.Logger, config.LogLevel)

	unary := []grpc.UnaryServerInterceptor{flight.UnaryServerInterceptor(logger)}
	stream := []grpc.StreamServerInterceptor{flight.StreamServerInterceptor(logger)}
	if config.Auth != nil {
		unary = append(unary, auth.UnaryServerInterceptor(config.Auth))
		stream = append(stream, auth.StreamServerInterceptor(config.Auth))
	}

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	}

	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}

	return opts
}
