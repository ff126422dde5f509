package notes

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lumen/internal/apperr"
)

// MaxImageBytes is the largest image the API accepts (5 MiB).
const MaxImageBytes = 5 * 1024 * 1024

var imageMIMEPattern = regexp.MustCompile(`^image/`)

// ValidateTitle rejects empty or whitespace-only titles.
func ValidateTitle(title string) error {
	if err := validation.Validate(strings.TrimSpace(title), validation.Required); err != nil {
		return apperr.ErrTitleRequired
	}
	return nil
}

// ValidateImage checks the upload preconditions: an image/* MIME type and a
// size of at most MaxImageBytes.
func ValidateImage(contentType string, size int64) error {
	if err := validation.Validate(contentType,
		validation.Required,
		validation.Match(imageMIMEPattern),
	); err != nil {
		return apperr.ErrNotImage
	}
	if err := validation.Validate(size, validation.Max(int64(MaxImageBytes))); err != nil {
		return apperr.ErrImageTooLarge
	}
	return nil
}

// Validate checks the file against ValidateImage.
func (f ImageFile) Validate() error {
	return ValidateImage(f.ContentType, f.Size())
}
