package svg

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
)

// padBorder is the fixed white margin added around every raster.
const padBorder = 30

// Rasterize renders a document onto a white background at exactly
// (width, height) pixels. Everything from the first label tag onward is
// dropped before parsing so annotations never show up as pixels.
func Rasterize(doc string, width, height int) (*image.RGBA, error) {
	if i := strings.Index(doc, labelOpenTag); i >= 0 {
		doc = doc[:i]
	}

	icon, err := oksvg.ReadIconStream(strings.NewReader(doc), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, NewError(ErrCodeMalformedDocument, "unparseable vector markup", err.Error())
	}
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		// No usable size metadata in the markup itself; map the same
		// defaulted rectangle the resolution heuristic saw.
		w, h := ExtractDimensions(doc)
		icon.ViewBox.X, icon.ViewBox.Y = 0, 0
		icon.ViewBox.W, icon.ViewBox.H = w, h
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	icon.SetTarget(0, 0, float64(width), float64(height))
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1.0)

	return img, nil
}

// Pad returns img surrounded by a fixed 30 pixel white border on all
// four sides. Source pixels land unchanged at offset (30, 30).
func Pad(img image.Image) *image.RGBA {
	b := img.Bounds()
	padded := image.NewRGBA(image.Rect(0, 0, b.Dx()+2*padBorder, b.Dy()+2*padBorder))
	draw.Draw(padded, padded.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(padded, image.Rect(padBorder, padBorder, padBorder+b.Dx(), padBorder+b.Dy()), img, b.Min, draw.Src)
	return padded
}

// EncodeImage serializes img as PNG wrapped in base64. The encoding is
// lossless; DecodeImage recovers the identical pixels.
func EncodeImage(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", NewError(ErrCodeEncodeFailure, "png encoding failed", err.Error())
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeImage reverses EncodeImage.
func DecodeImage(encoded string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, NewError(ErrCodeDecodeFailure, "base64 decoding failed", err.Error())
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, NewError(ErrCodeDecodeFailure, "png decoding failed", err.Error())
	}
	return img, nil
}

// Convert runs the whole per-document pipeline: dimension extraction,
// complexity-scaled target resolution, rasterization, padding, and
// encoding, plus label extraction. Documents are independent, so
// Convert is safe to call from any number of goroutines.
func Convert(doc string) (encoded, label string, err error) {
	width, height := ExtractDimensions(doc)
	vertices := CountVertices(doc)

	tw, th, err := TargetResolution(width, height, vertices)
	if err != nil {
		return "", "", err
	}

	img, err := Rasterize(doc, tw, th)
	if err != nil {
		return "", "", err
	}

	encoded, err = EncodeImage(Pad(img))
	if err != nil {
		return "", "", err
	}
	return encoded, ExtractLabel(doc), nil
}
