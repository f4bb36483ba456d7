package app

import "fmt"

// Batch geometry defaults for the conversion pipeline.
const (
	DefaultBatchSize  = 2000
	DefaultNumWorkers = 20
)

// Record constants shared by every batch. These are deliberate
// placeholders baked into the dataset, not values computed from the
// drawing content.
const (
	// ProblemText is the source prompt stored with every record.
	ProblemText = "Interactive Math Lesson, Generic"

	// DefaultConfidence is the legibility grade assigned to every
	// rendered drawing.
	DefaultConfidence = 7

	labelTemplate = "<transcription>\n%s\n</transcription>"
)

// Supported columnar output formats.
const (
	FormatParquet = "parquet"
	FormatArrow   = "arrow"
)

// ConfidenceExplanations maps each legibility grade to its rubric text.
// The pipeline always writes DefaultConfidence; the table is surfaced by
// the inspector so readers of a batch can interpret the scale.
var ConfidenceExplanations = map[int32]string{
	1:  "1 - Exceptionally unreadable, incomprehensible with any context. Refrain from putting obviously scribbled out text here.",
	2:  "2 - Barely distinguishable marks, might hint at text/drawings but impossible to interpret meaningfully.",
	3:  "3 - Few readable characters/elements, requires extensive context and guesswork to attempt interpretation.",
	4:  "4 - Vaguely readable, or only certain portions readable, but only with significant context. Badly drawn diagrams and mostly illegible handwriting belongs here.",
	5:  "5 - Mostly decipherable but requires concentration. Messy diagrams that convey basic meaning.",
	6:  "6 - Readable with some context. Bad but legible handwriting that can be reasonably deciphered and unorthodox/messy diagrams belong here.",
	7:  "7 - Generally readable with occasional unclear parts. Average student handwriting quality.",
	8:  "8 - Readable with or without context. Decent handwriting that you expect from a student belongs here. Properly drawn diagrams are also acceptable.",
	9:  "9 - Very good handwriting that is easily legible. There should be no errors in the text, but it could be slanted, misspelled, etc.",
	10: "10 - Perfectly readable without context. Reserve this for flawless handwriting that is unmistakeable for anything else.",
}

// SketchRecord defines our ML-ready schema: one row per rendered drawing
type SketchRecord struct {
	Image      string `parquet:"name=image, type=BYTE_ARRAY, convertedtype=UTF8"`
	Problem    string `parquet:"name=problem, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Label      string `parquet:"name=label, type=BYTE_ARRAY, convertedtype=UTF8"`
	Confidence int32  `parquet:"name=confidence, type=INT32"`
}

// NewSketchRecord assembles the full record for one encoded drawing
func NewSketchRecord(encodedImage, label string) SketchRecord {
	return SketchRecord{
		Image:      encodedImage,
		Problem:    ProblemText,
		Label:      WrapLabel(label),
		Confidence: DefaultConfidence,
	}
}

// WrapLabel wraps raw annotation text in the transcription tag template
func WrapLabel(label string) string {
	return fmt.Sprintf(labelTemplate, label)
}

// Config holds application configuration
type Config struct {
	InputDir     string
	OutputDir    string
	Datasets     []string
	Format       string
	NumWorkers   int
	BatchSize    int
	CheckpointDB string
	DryRun       bool
}
