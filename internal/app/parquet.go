package app

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// WriteParquetBatch writes one batch of records to a Parquet file
func WriteParquetBatch(outputPath string, records []SketchRecord, parallelism int) error {
	fw, err := local.NewLocalFileWriter(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(SketchRecord), int64(parallelism))
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, record := range records {
		if err := pw.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}

	return nil
}

// ReadParquetBatch reads all records from a Parquet batch file
func ReadParquetBatch(path string) ([]SketchRecord, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(SketchRecord), 2)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	if numRows == 0 {
		return nil, fmt.Errorf("parquet file is empty")
	}

	records := make([]SketchRecord, numRows)
	if err := pr.Read(&records); err != nil {
		return nil, fmt.Errorf("failed to read parquet records: %w", err)
	}

	return records, nil
}
