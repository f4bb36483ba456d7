package app

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/ipc"
	"github.com/apache/arrow/go/arrow/memory"
)

// SketchSchema returns the Arrow schema matching the Parquet layout
func SketchSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "image", Type: arrow.BinaryTypes.String},
		{Name: "problem", Type: arrow.BinaryTypes.String},
		{Name: "label", Type: arrow.BinaryTypes.String},
		{Name: "confidence", Type: arrow.PrimitiveTypes.Int32},
	}, nil)
}

// WriteArrowBatch writes one batch of records to an Arrow IPC stream file
func WriteArrowBatch(outputPath string, records []SketchRecord) error {
	schema := SketchSchema()
	pool := memory.NewGoAllocator()

	imageBuilder := array.NewStringBuilder(pool)
	defer imageBuilder.Release()
	problemBuilder := array.NewStringBuilder(pool)
	defer problemBuilder.Release()
	labelBuilder := array.NewStringBuilder(pool)
	defer labelBuilder.Release()
	confidenceBuilder := array.NewInt32Builder(pool)
	defer confidenceBuilder.Release()

	for _, record := range records {
		imageBuilder.Append(record.Image)
		problemBuilder.Append(record.Problem)
		labelBuilder.Append(record.Label)
		confidenceBuilder.Append(record.Confidence)
	}

	imageArr := imageBuilder.NewArray()
	defer imageArr.Release()
	problemArr := problemBuilder.NewArray()
	defer problemArr.Release()
	labelArr := labelBuilder.NewArray()
	defer labelArr.Release()
	confidenceArr := confidenceBuilder.NewArray()
	defer confidenceArr.Release()

	batch := array.NewRecord(schema, []array.Interface{imageArr, problemArr, labelArr, confidenceArr}, int64(len(records)))
	defer batch.Release()

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create arrow file: %w", err)
	}
	defer f.Close()

	w := ipc.NewWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err := w.Write(batch); err != nil {
		w.Close()
		return fmt.Errorf("failed to write arrow batch: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize arrow file: %w", err)
	}

	return nil
}

// ReadArrowBatch reads all records from an Arrow IPC stream file
func ReadArrowBatch(path string) ([]SketchRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow file: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}
	defer r.Release()

	var records []SketchRecord
	for r.Next() {
		batch := r.Record()

		images, ok := batch.Column(0).(*array.String)
		if !ok {
			return nil, fmt.Errorf("unexpected type for image column")
		}
		problems, ok := batch.Column(1).(*array.String)
		if !ok {
			return nil, fmt.Errorf("unexpected type for problem column")
		}
		labels, ok := batch.Column(2).(*array.String)
		if !ok {
			return nil, fmt.Errorf("unexpected type for label column")
		}
		confidences, ok := batch.Column(3).(*array.Int32)
		if !ok {
			return nil, fmt.Errorf("unexpected type for confidence column")
		}

		for i := 0; i < int(batch.NumRows()); i++ {
			records = append(records, SketchRecord{
				Image:      images.Value(i),
				Problem:    problems.Value(i),
				Label:      labels.Value(i),
				Confidence: confidences.Value(i),
			})
		}
	}

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read arrow batches: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("arrow file is empty")
	}

	return records, nil
}
