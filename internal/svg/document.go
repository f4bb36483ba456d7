// Package svg normalizes variable-sized vector drawings into
// fixed-size training rasters. Dimension metadata and path complexity
// decide the output resolution; embedded label tags are extracted as
// annotation text and never rendered.
package svg

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultDimension applies to any side a document does not declare.
	DefaultDimension = 1024

	baseTargetArea = 40000
	areaPerVertex  = 800

	labelOpenTag = "<label>"
)

var (
	viewBoxRe    = regexp.MustCompile(`viewBox="[^"]*?\s+[^"]*?\s+([^"]*?)\s+([^"]*?)"`)
	widthRe      = regexp.MustCompile(`width="([^"]*?)"`)
	heightRe     = regexp.MustCompile(`height="([^"]*?)"`)
	pathDataRe   = regexp.MustCompile(`d="([^"]*)"`)
	commandRunRe = regexp.MustCompile(`[MLHVCSQTAmlhvcsqta][^MLHVCSQTAmlhvcsqta]*`)
	labelRe      = regexp.MustCompile(`<label>(.*?)</label>`)
)

// ExtractDimensions returns a document's declared width and height. The
// third and fourth viewBox fields win; explicit width/height attributes
// are the fallback. Missing or unparseable metadata defaults to 1024
// per side, never an error.
func ExtractDimensions(doc string) (float64, float64) {
	if m := viewBoxRe.FindStringSubmatch(doc); m != nil {
		w, errW := strconv.ParseFloat(strings.TrimSpace(m[1]), 64)
		h, errH := strconv.ParseFloat(strings.TrimSpace(m[2]), 64)
		if errW == nil && errH == nil {
			return w, h
		}
	}

	width := float64(DefaultDimension)
	height := float64(DefaultDimension)
	if m := widthRe.FindStringSubmatch(doc); m != nil {
		if w, err := strconv.ParseFloat(strings.TrimSpace(m[1]), 64); err == nil {
			width = w
		}
	}
	if m := heightRe.FindStringSubmatch(doc); m != nil {
		if h, err := strconv.ParseFloat(strings.TrimSpace(m[1]), 64); err == nil {
			height = h
		}
	}
	return width, height
}

// CountVertices counts one vertex per maximal run of coordinates
// following a drawing command letter (M, L, H, V, C, S, Q, T, A, either
// case). A run like "L 1,2 3,4 5,6" is a single vertex no matter how
// many coordinate pairs it carries; the count is a complexity proxy,
// not a point count, and downstream resolution scaling depends on it
// staying that way.
func CountVertices(doc string) int {
	total := 0
	for _, m := range pathDataRe.FindAllStringSubmatch(doc, -1) {
		total += len(commandRunRe.FindAllString(m[1], -1))
	}
	return total
}

// TargetResolution computes the raster size for a document. The pixel
// budget grows with path complexity so dense drawings keep legible
// strokes after downstream resizing, while the declared aspect ratio
// is preserved within floor rounding.
func TargetResolution(width, height float64, vertexCount int) (int, int, error) {
	if width <= 0 || height <= 0 {
		return 0, 0, NewError(ErrCodeZeroAspect, "document dimensions collapse to zero",
			fmt.Sprintf("%gx%g", width, height))
	}

	aspectRatio := width / height
	targetArea := float64(baseTargetArea + vertexCount*areaPerVertex)
	targetHeight := int(math.Sqrt(targetArea / aspectRatio))
	targetWidth := int(float64(targetHeight) * aspectRatio)
	return targetWidth, targetHeight, nil
}

// ExtractLabel returns the text between the first pair of label tags,
// or "" when the document carries none.
func ExtractLabel(doc string) string {
	if m := labelRe.FindStringSubmatch(doc); m != nil {
		return m[1]
	}
	return ""
}
