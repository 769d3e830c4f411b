package serialize

import (
	"bytes"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// WriteBatches writes batches as an Arrow IPC stream with the given schema.
func WriteBatches(w io.Writer, schema *arrow.Schema, batches []arrow.RecordBatch, allocator memory.Allocator) error {
	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(allocator))
	defer writer.Close()

	for i, batch := range batches {
		if err := writer.Write(batch); err != nil {
			return fmt.Errorf("failed to write IPC batch %d: %w", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close IPC writer: %w", err)
	}
	return nil
}

// EncodeBatches returns batches serialized as an Arrow IPC stream.
func EncodeBatches(schema *arrow.Schema, batches []arrow.RecordBatch, allocator memory.Allocator) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteBatches(&buf, schema, batches, allocator); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadBatches reads every batch of an Arrow IPC stream.
// The caller owns the returned batches and must release them.
func ReadBatches(r io.Reader, allocator memory.Allocator) (*arrow.Schema, []arrow.RecordBatch, error) {
	reader, err := ipc.NewReader(r, ipc.WithAllocator(allocator))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open IPC stream: %w", err)
	}
	defer reader.Release()

	var batches []arrow.RecordBatch
	for reader.Next() {
		batch := reader.RecordBatch()
		batch.Retain()
		batches = append(batches, batch)
	}
	if err := reader.Err(); err != nil {
		for _, b := range batches {
			b.Release()
		}
		return nil, nil, fmt.Errorf("failed to read IPC stream: %w", err)
	}
	return reader.Schema(), batches, nil
}
