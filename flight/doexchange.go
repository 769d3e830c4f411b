package flight

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/recordfilter/internal/recovery"
	"github.com/hugr-lab/recordfilter/records"
)

// DoExchange filters a stream of record batches.
//
// Protocol:
//   - The first message carries a flight descriptor whose Cmd is the
//     filter Command (MessagePack or JSON) and the input schema
//   - Client sends batches of records via stream
//   - Server sends back, for every input batch, a batch with the same
//     schema holding only the matching rows
//
// The implementation uses a pipeline with 3 stages running concurrently:
//  1. Reader goroutine: Reads input batches from client stream
//  2. Processor goroutine: Applies the filter set to each batch
//  3. Writer goroutine: Sends filtered batches back to client stream
func (s *Server) DoExchange(stream flight.FlightService_DoExchangeServer) error {
	ctx := stream.Context()

	reader, err := flight.NewRecordReader(stream, ipc.WithAllocator(s.allocator))
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "failed to create record reader: %v", err)
	}

	var cmdData []byte
	if desc := reader.LatestFlightDescriptor(); desc != nil {
		cmdData = desc.GetCmd()
	}
	cmd, err := DecodeCommand(cmdData)
	if err != nil {
		reader.Release()
		return status.Errorf(codes.InvalidArgument, "invalid filter command: %v", err)
	}

	filters := cmd.FilterSet()
	skipUndefined := cmd.skip(s.skipUndefined)
	schema := reader.Schema()

	s.logger.Debug("DoExchange requested",
		"filters", len(filters),
		"skip_undefined", skipUndefined,
		"trace_id", TraceIDFromContext(ctx),
		"schema", schema,
	)

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(schema), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	inputCh := make(chan arrow.RecordBatch, 1)
	outputCh := make(chan arrow.RecordBatch, 1)

	eg, ctx := errgroup.WithContext(ctx)

	// The reader runs outside the errgroup so a failing stage can return its
	// status to the client while the reader is still blocked on the stream.
	readErr := make(chan error, 1)
	go func() {
		defer close(readErr)
		readErr <- s.readBatches(ctx, reader, inputCh)
	}()

	var inRows, outRows int64
	eg.Go(func() error {
		defer close(outputCh)
		batchCount := 0
		for in := range inputCh {
			batchCount++
			rows := in.NumRows()
			inRows += rows

			out, err := recovery.RecoverToValue(s.logger, "filter batch", func() (arrow.RecordBatch, error) {
				return records.FilterRecordBatch(ctx, s.evaluator, filters, in, skipUndefined, s.allocator)
			})
			in.Release()
			if err != nil {
				s.logger.Error("Batch filtering failed",
					"batch", batchCount,
					"error", err,
				)
				s.drain(inputCh)
				return err
			}

			s.logger.Debug("Filtered batch",
				"batch", batchCount,
				"input_rows", rows,
				"output_rows", out.NumRows(),
			)

			select {
			case outputCh <- out:
			case <-ctx.Done():
				out.Release()
				s.drain(inputCh)
				return ctx.Err()
			}
		}
		return nil
	})

	eg.Go(func() error {
		for out := range outputCh {
			outRows += out.NumRows()
			err := writer.Write(out)
			out.Release()
			if err != nil {
				s.drain(outputCh)
				return fmt.Errorf("failed to write output batch: %w", err)
			}
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		s.logger.Error("DoExchange pipeline failed", "error", err)
		if _, ok := status.FromError(err); ok {
			return err
		}
		return status.Errorf(codes.Internal, "filter execution failed: %v", err)
	}
	if err := <-readErr; err != nil {
		return err
	}

	s.logger.Info("DoExchange completed",
		"input_rows", inRows,
		"output_rows", outRows,
	)
	return nil
}

// readBatches forwards the batches of reader to out and closes it.
func (s *Server) readBatches(ctx context.Context, reader *flight.Reader, out chan<- arrow.RecordBatch) error {
	defer close(out)
	defer reader.Release()

	for reader.Next() {
		batch := reader.RecordBatch()
		batch.Retain()

		s.logger.Debug("Received input batch",
			"num_rows", batch.NumRows(),
			"num_cols", batch.NumCols(),
		)

		select {
		case out <- batch:
		case <-ctx.Done():
			batch.Release()
			return nil
		}
	}
	if err := reader.Err(); err != nil && !errors.Is(err, io.EOF) {
		return status.Errorf(codes.Internal, "error reading input: %v", err)
	}
	return nil
}

// drain releases batches left in ch after a stage failed.
func (s *Server) drain(ch <-chan arrow.RecordBatch) {
	go recovery.Recover(s.logger, "drain batches", func() {
		for b := range ch {
			b.Release()
		}
	})
}
