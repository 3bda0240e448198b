package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
)

// MaxDimension is the maximum width or height for stored images.
const MaxDimension = 800

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

// ErrUnsupportedImage is returned for image data that is not a decodable
// JPEG or PNG.
var ErrUnsupportedImage = errors.New("unsupported image")

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

const dataImagePrefix = "data:image/"

// ProcessResult contains the processed image data.
type ProcessResult struct {
	Data []byte
	MIME string
	// Unchanged is set when Data is the input as given: a JPEG already within
	// bounds.
	Unchanged bool
}

// Process reads image data, validates the format by sniffing bytes,
// downscales if larger than maxDim, and re-encodes with compression.
// Always outputs JPEG for consistency and smaller file sizes.
func Process(r io.Reader, maxDim int) (*ProcessResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s (only JPEG and PNG accepted)", ErrUnsupportedImage, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", ErrUnsupportedImage, err)
	}

	scaled := downscale(img, maxDim)
	if scaled == img && detected == "image/jpeg" {
		return &ProcessResult{Data: data, MIME: detected, Unchanged: true}, nil
	}

	// Re-encode as JPEG.
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &ProcessResult{
		Data: buf.Bytes(),
		MIME: "image/jpeg",
	}, nil
}

// NormalizeImageRef normalises an image reference before it is stored.
//
// Inline base64 data URIs for images are decoded, downscaled to MaxDimension
// and re-encoded as a JPEG data URI. A JPEG that already fits is returned as
// given, so saving the same reference twice yields the same value. Any other
// reference, including an empty one or a URL, is returned unchanged.
func NormalizeImageRef(ref string) (string, error) {
	if !strings.HasPrefix(ref, dataImagePrefix) {
		return ref, nil
	}

	meta, payload, ok := strings.Cut(ref, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", fmt.Errorf("%w: image data must be base64 encoded", ErrUnsupportedImage)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrUnsupportedImage, err)
	}

	result, err := Process(bytes.NewReader(data), MaxDimension)
	if err != nil {
		return "", err
	}
	if result.Unchanged {
		return ref, nil
	}
	return "data:" + result.MIME + ";base64," + base64.StdEncoding.EncodeToString(result.Data), nil
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
// Returns the original image if already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	// Calculate new dimensions preserving aspect ratio.
	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
