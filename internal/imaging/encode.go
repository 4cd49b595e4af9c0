package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
)

// PNGMIME is the MIME type of everything the encoder produces.
const PNGMIME = "image/png"

// EncodePNG serializes img as a PNG in memory.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64 encodes img as PNG and returns the standard, padded base64
// text of those bytes.
func EncodeBase64(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DataURI wraps an already base64-encoded PNG for inline display.
func DataURI(b64 string) string {
	return "data:" + PNGMIME + ";base64," + b64
}
