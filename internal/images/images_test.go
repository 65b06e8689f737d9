package images

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/facescan/internal/shared"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}

func TestEncode(t *testing.T) {
	t.Run("png becomes data uri", func(t *testing.T) {
		enc, err := Encode(FromBytes("me.png", "image/png", pngHeader))
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}

		want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
		if enc.DataURI != want {
			t.Errorf("Encode() = %s, want %s", enc.DataURI, want)
		}
		if enc.String() != want {
			t.Error("String() should return the data uri")
		}
		if enc.Size != int64(len(pngHeader)) {
			t.Errorf("expected size %d, got %d", len(pngHeader), enc.Size)
		}
		if enc.IsZero() {
			t.Error("encoded image should not be zero")
		}
	})

	t.Run("non-image types are rejected before reading", func(t *testing.T) {
		tc := []string{"text/plain", "application/pdf", "", "video/mp4", "imagex/png", "not a type"}

		for _, mt := range tc {
			t.Run(mt, func(t *testing.T) {
				opened := false
				f := File{
					Name:      "doc",
					MediaType: mt,
					Size:      10,
					Open: func() (io.ReadCloser, error) {
						opened = true
						return io.NopCloser(strings.NewReader("x")), nil
					},
				}

				_, err := Encode(f)
				if !errors.Is(err, ErrNotAnImage) {
					t.Fatalf("expected ErrNotAnImage, got %v", err)
				}
				if !errors.Is(err, shared.ErrInvalidInput) {
					t.Error("expected error to wrap shared.ErrInvalidInput")
				}
				if opened {
					t.Error("file should not be opened when the type is rejected")
				}
				if Message(err) != "Please upload an image file" {
					t.Errorf("unexpected message %q", Message(err))
				}
			})
		}
	})

	t.Run("type check runs before size check", func(t *testing.T) {
		_, err := Encode(File{Name: "huge.txt", MediaType: "text/plain", Size: MaxSize * 2})
		if !errors.Is(err, ErrNotAnImage) {
			t.Errorf("expected ErrNotAnImage, got %v", err)
		}
	})

	t.Run("size boundary", func(t *testing.T) {
		tc := []struct {
			name    string
			size    int64
			wantErr bool
		}{
			{name: "exactly 5 MiB", size: MaxSize, wantErr: false},
			{name: "one byte over", size: MaxSize + 1, wantErr: true},
			{name: "far over", size: 50 * MaxSize, wantErr: true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				f := File{
					Name:      "photo.jpg",
					MediaType: "image/jpeg",
					Size:      tt.size,
					Open: func() (io.ReadCloser, error) {
						return io.NopCloser(io.LimitReader(zeroReader{}, tt.size)), nil
					},
				}

				_, err := Encode(f)
				if tt.wantErr {
					if !errors.Is(err, ErrTooLarge) {
						t.Fatalf("expected ErrTooLarge, got %v", err)
					}
					if Message(err) != "Image size should be less than 5MB" {
						t.Errorf("unexpected message %q", Message(err))
					}
					return
				}
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
			})
		}
	})

	t.Run("understated size is still capped", func(t *testing.T) {
		f := File{
			Name:      "liar.jpg",
			MediaType: "image/jpeg",
			Size:      100,
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(io.LimitReader(zeroReader{}, MaxSize+10)), nil
			},
		}

		if _, err := Encode(f); !errors.Is(err, ErrTooLarge) {
			t.Errorf("expected ErrTooLarge, got %v", err)
		}
	})

	t.Run("image type prefix", func(t *testing.T) {
		tests := []struct {
			mediaType string
			want      bool
		}{
			{"image/png", true},
			{"image/", true},
			{"image/svg+xml; charset=utf-8", true},
			{"IMAGE/PNG", false},
			{"text/plain", false},
			{"", false},
		}
		for _, tt := range tests {
			if got := IsImageType(tt.mediaType); got != tt.want {
				t.Errorf("IsImageType(%q) = %v, want %v", tt.mediaType, got, tt.want)
			}
		}
	})

	t.Run("media type parameters are tolerated", func(t *testing.T) {
		if _, err := Encode(FromBytes("a.svg", "image/svg+xml; charset=utf-8", []byte("<svg/>"))); err != nil {
			t.Errorf("expected svg with parameters to pass, got %v", err)
		}
	})

	t.Run("open failure", func(t *testing.T) {
		f := File{
			Name:      "gone.png",
			MediaType: "image/png",
			Open:      func() (io.ReadCloser, error) { return nil, os.ErrNotExist },
		}
		if _, err := Encode(f); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("missing opener", func(t *testing.T) {
		_, err := Encode(File{Name: "x.png", MediaType: "image/png"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Kind: ErrTooLarge, File: "a.png", Message: "Image size should be less than 5MB"}
	if err.Error() != "a.png: Image size should be less than 5MB" {
		t.Errorf("unexpected Error() %q", err.Error())
	}

	anon := &ValidationError{Kind: ErrNotAnImage, Message: "Please upload an image file"}
	if anon.Error() != "Please upload an image file" {
		t.Errorf("unexpected Error() %q", anon.Error())
	}

	if Message(errors.New("plain")) != "plain" {
		t.Error("Message should fall back to Error()")
	}
}

func TestFromPath(t *testing.T) {
	dir := t.TempDir()

	t.Run("extension declares type", func(t *testing.T) {
		path := filepath.Join(dir, "face.PNG")
		if err := os.WriteFile(path, pngHeader, 0644); err != nil {
			t.Fatal(err)
		}

		f, err := FromPath(path)
		if err != nil {
			t.Fatalf("FromPath() error = %v", err)
		}
		if f.MediaType != "image/png" {
			t.Errorf("expected image/png, got %s", f.MediaType)
		}
		if f.Name != "face.PNG" || f.Size != int64(len(pngHeader)) {
			t.Errorf("unexpected file %+v", f)
		}

		enc, err := Encode(f)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if !strings.HasPrefix(enc.DataURI, "data:image/png;base64,") {
			t.Errorf("unexpected data uri prefix %s", enc.DataURI[:30])
		}
	})

	t.Run("unknown extension is sniffed", func(t *testing.T) {
		path := filepath.Join(dir, "face.unknownext")
		if err := os.WriteFile(path, pngHeader, 0644); err != nil {
			t.Fatal(err)
		}

		f, err := FromPath(path)
		if err != nil {
			t.Fatalf("FromPath() error = %v", err)
		}
		if f.MediaType != "image/png" {
			t.Errorf("expected sniffed image/png, got %s", f.MediaType)
		}
	})

	t.Run("text file is not an image", func(t *testing.T) {
		path := filepath.Join(dir, "notes.unknownext2")
		if err := os.WriteFile(path, []byte("just some notes\n"), 0644); err != nil {
			t.Fatal(err)
		}

		f, err := FromPath(path)
		if err != nil {
			t.Fatalf("FromPath() error = %v", err)
		}
		if _, err := Encode(f); !errors.Is(err, ErrNotAnImage) {
			t.Errorf("expected ErrNotAnImage, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := FromPath(filepath.Join(dir, "missing.png")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("directory", func(t *testing.T) {
		if _, err := FromPath(dir); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestFromMultipart(t *testing.T) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="ref.gif"`)
	h.Set("Content-Type", "image/gif")
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("GIF89a"))
	w.Close()

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("failed to read form: %v", err)
	}
	defer form.RemoveAll()

	f := FromMultipart(form.File["image"][0])
	if f.Name != "ref.gif" || f.MediaType != "image/gif" || f.Size != 6 {
		t.Errorf("unexpected file %+v", f)
	}

	enc, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if enc.DataURI != "data:image/gif;base64,"+base64.StdEncoding.EncodeToString([]byte("GIF89a")) {
		t.Errorf("unexpected data uri %s", enc.DataURI)
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
