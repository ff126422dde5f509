package gallery

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/lumen/internal/notes"
)

// ReadImageFile loads a local file for upload. The MIME type comes from the
// extension, falling back to content sniffing. Reading stops one byte past
// the size limit so oversized files are still reported as too large.
func ReadImageFile(path string) (notes.ImageFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return notes.ImageFile{}, fmt.Errorf("gallery: open image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, notes.MaxImageBytes+1))
	if err != nil {
		return notes.ImageFile{}, fmt.Errorf("gallery: read image: %w", err)
	}

	return notes.ImageFile{
		Filename:    filepath.Base(path),
		ContentType: detectContentType(path, data),
		Data:        data,
	}, nil
}

func detectContentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err == nil {
			return mediaType
		}
		return ct
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mediaType
}
