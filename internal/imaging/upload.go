package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedType is returned for anything that is not a JPEG or PNG,
	// judged by both the file extension and the content itself.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrUnreadable is returned when the content claims to be an accepted
	// image type but cannot be decoded.
	ErrUnreadable = errors.New("unreadable image")
)

// MaxPixels caps the declared width times height of an upload. Larger images
// are refused before any pixel data is decoded.
const MaxPixels = 2 * 89_478_485

// allowedExtensions mirrors the accept list of the upload control.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Upload is a decoded photo ready for encoding. Image is always fully opaque.
type Upload struct {
	Image        *image.NRGBA
	MIMEType     string
	DeclaredMIME string
	Size         int
}

func (u *Upload) Width() int  { return u.Image.Bounds().Dx() }
func (u *Upload) Height() int { return u.Image.Bounds().Dy() }

// Decode reads an uploaded photo, checks that it is a JPEG or PNG and decodes
// it into an RGB bitmap. filename may be empty when the client did not send
// one; declaredMIME is kept for logging only, the sniffed type is authoritative.
func Decode(r io.Reader, filename, declaredMIME string) (*Upload, error) {
	if filename != "" && !allowedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return nil, fmt.Errorf("%w: extension %q", ErrUnsupportedType, filepath.Ext(filename))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	mimeType, ok := SniffMIME(data)
	if !ok {
		return nil, fmt.Errorf("%w: content %q", ErrUnsupportedType, http.DetectContentType(data))
	}

	decodeConfig, decode := jpeg.DecodeConfig, jpeg.Decode
	if mimeType == "image/png" {
		decodeConfig, decode = png.DecodeConfig, png.Decode
	}

	cfg, err := decodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnreadable, cfg.Width, cfg.Height, MaxPixels)
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	return &Upload{
		Image:        ToRGB(img),
		MIMEType:     mimeType,
		DeclaredMIME: declaredMIME,
		Size:         len(data),
	}, nil
}

// SniffMIME returns the content type of data and true if it is JPEG or PNG.
func SniffMIME(data []byte) (string, bool) {
	switch mime := http.DetectContentType(data); mime {
	case "image/jpeg", "image/png":
		return mime, true
	default:
		return "", false
	}
}

// ToRGB copies img into a new bitmap anchored at the origin with every pixel
// made opaque. Color channels are kept as they are; alpha is dropped, not
// composited against a background.
func ToRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 0xff
			out.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return out
}
