// Package images turns a user-selected file into the data URI sent to the scanning backend as the reference image.
//
// Validation runs in a fixed order: the declared media type must be an image type ([ErrNotAnImage]),
// then the declared size must not exceed [MaxSize] ([ErrTooLarge]). Nothing is cropped, resized or decoded here;
// face detection is the backend's job.
package images

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/facescan/internal/shared"
	"github.com/gabriel-vasile/mimetype"
)

// MaxSize is the largest reference image accepted, in bytes (5 MiB).
const MaxSize int64 = 5 * 1024 * 1024

// User-facing messages for rejected files.
const (
	MsgNotAnImage = "Please upload an image file"
	MsgTooLarge   = "Image size should be less than 5MB"
)

var (
	ErrNotAnImage = fmt.Errorf("%w: not an image", shared.ErrInvalidInput)
	ErrTooLarge   = fmt.Errorf("%w: image too large", shared.ErrInvalidInput)
)

// ValidationError reports why a file was rejected, with the user-facing message in Message.
type ValidationError struct {
	Kind    error
	File    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.File == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// File describes a user-selected file before it is read.
//
// MediaType is the type the file was declared as (extension or browser-supplied Content-Type), not a sniffed one.
type File struct {
	Name      string
	MediaType string
	Size      int64
	Open      func() (io.ReadCloser, error)
}

// Encoded is a validated reference image in data URI form.
type Encoded struct {
	Name      string
	MediaType string
	Size      int64
	DataURI   string
}

// String returns the data URI, which is the shape sent downstream.
func (e Encoded) String() string { return e.DataURI }

// IsZero reports whether no image has been encoded.
func (e Encoded) IsZero() bool { return e.DataURI == "" }

// Encode validates f and returns its data URI representation.
//
// Validation errors are returned as *[ValidationError]; the file is only opened once both checks pass.
func Encode(f File) (Encoded, error) {
	if !IsImageType(f.MediaType) {
		return Encoded{}, &ValidationError{Kind: ErrNotAnImage, File: f.Name, Message: MsgNotAnImage}
	}
	if f.Size > MaxSize {
		return Encoded{}, &ValidationError{Kind: ErrTooLarge, File: f.Name, Message: MsgTooLarge}
	}
	if f.Open == nil {
		return Encoded{}, fmt.Errorf("%w: %s has no content", shared.ErrInvalidInput, f.Name)
	}

	rc, err := f.Open()
	if err != nil {
		return Encoded{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer rc.Close()

	// Declared sizes can lie; never buffer more than the limit.
	limited := &io.LimitedReader{R: rc, N: MaxSize + 1}

	var buf bytes.Buffer
	buf.WriteString("data:")
	buf.WriteString(f.MediaType)
	buf.WriteString(";base64,")

	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	n, err := io.Copy(enc, limited)
	if err != nil {
		return Encoded{}, fmt.Errorf("failed to read image: %w", err)
	}
	if err := enc.Close(); err != nil {
		return Encoded{}, fmt.Errorf("failed to encode image: %w", err)
	}
	if n > MaxSize {
		return Encoded{}, &ValidationError{Kind: ErrTooLarge, File: f.Name, Message: MsgTooLarge}
	}

	return Encoded{Name: f.Name, MediaType: f.MediaType, Size: n, DataURI: buf.String()}, nil
}

// IsImageType reports whether mediaType declares an image: it must start with "image/", case-sensitively, as browsers
// report file types in lower case.
func IsImageType(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}

// FromPath describes the file at path.
//
// The declared type comes from the extension; files with an unknown extension are sniffed.
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%w: %s is a directory", shared.ErrInvalidArgument, path)
	}

	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mediaType == "" {
		detected, err := mimetype.DetectFile(path)
		if err != nil {
			return File{}, fmt.Errorf("failed to detect media type: %w", err)
		}
		mediaType = detected.String()
	}

	return File{
		Name:      filepath.Base(path),
		MediaType: mediaType,
		Size:      info.Size(),
		Open:      func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// FromMultipart describes an uploaded form file using the Content-Type the browser declared for it.
func FromMultipart(fh *multipart.FileHeader) File {
	return File{
		Name:      fh.Filename,
		MediaType: fh.Header.Get("Content-Type"),
		Size:      fh.Size,
		Open: func() (io.ReadCloser, error) {
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

// FromBytes describes an in-memory file with an explicit declared type.
func FromBytes(name, mediaType string, data []byte) File {
	return File{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Message returns the user-facing text for err, falling back to err.Error().
func Message(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}
