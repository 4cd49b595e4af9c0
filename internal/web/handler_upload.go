package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const formField = "image"

var (
	// errNoUpload means the form carried no file, which is the idle state.
	errNoUpload = errors.New("no image uploaded")
	// errTooLarge means the request body exceeded the upload limit.
	errTooLarge = errors.New("upload too large")
)

// upload is one file read from a multipart form.
type upload struct {
	Data     []byte
	Filename string
	MIMEType string
}

// Reader returns a fresh reader over the upload bytes.
func (u *upload) Reader() io.Reader {
	return bytes.NewReader(u.Data)
}

// readUpload reads the "image" field of a multipart request, capping the body
// at maxBytes.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, errTooLarge
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, errNoUpload
		}
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}

	file, header, err := r.FormFile(formField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errNoUpload
		}
		return nil, fmt.Errorf("failed to read form file: %w", err)
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, errNoUpload
	}

	return &upload{
		Data:     data,
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
	}, nil
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
