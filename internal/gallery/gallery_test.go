package gallery_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"

	"github.com/starford/lumen/internal/apperr"
	"github.com/starford/lumen/internal/gallery"
	"github.com/starford/lumen/internal/notes"
	"github.com/starford/lumen/internal/notes/mock"
)

const template = "https://bucket.example.com/{key}"

func pngFile(size int) notes.ImageFile {
	return notes.ImageFile{Filename: "a.png", ContentType: "image/png", Data: make([]byte, size)}
}

func TestUpload_RefetchesAndReplaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	g := gallery.New(api, "n1", []string{"notes/n1/old.jpg"}, nil, template)

	gomock.InOrder(
		api.EXPECT().
			UploadImage(gomock.Any(), "n1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, f notes.ImageFile) (*notes.ImageUploadResponse, error) {
				assert.Equal(t, "a.png", f.Filename)
				return &notes.ImageUploadResponse{ImageKey: "notes/n1/new.png"}, nil
			}).
			Times(1),
		api.EXPECT().
			GetNote(gomock.Any(), "n1").
			Return(&notes.Note{
				ID:        "n1",
				Images:    []string{"notes/n1/old.jpg", "notes/n1/new.png"},
				ImageURLs: []string{"https://signed/old"},
			}, nil).
			Times(1),
	)

	op, err := g.StartUpload(pngFile(10))
	require.NoError(t, err)
	assert.True(t, g.Uploading())
	assert.False(t, g.CanUpload())
	assert.Equal(t, "Uploading...", g.UploadLabel())

	changed := g.Apply(op(context.Background()))
	assert.True(t, changed)
	assert.False(t, g.Uploading())
	assert.Empty(t, g.Err())
	assert.Equal(t, []string{"notes/n1/old.jpg", "notes/n1/new.png"}, g.Images())
	assert.Equal(t, []string{"https://signed/old"}, g.ImageURLs())
	assert.Equal(t, "https://signed/old", g.DisplayURL(0))
	assert.Equal(t, "https://bucket.example.com/notes/n1/new.png", g.DisplayURL(1))
	assert.Equal(t, "2 images", g.CountLabel())
}

func TestStartUpload_InvalidFileSendsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	g := gallery.New(api, "n1", nil, nil, template)

	op, err := g.StartUpload(pngFile(notes.MaxImageBytes + 1))
	assert.Nil(t, op)
	assert.ErrorIs(t, err, apperr.ErrImageTooLarge)
	assert.Equal(t, "Image size must be less than 5MB", g.Err())
	assert.False(t, g.Uploading())

	op, err = g.StartUpload(notes.ImageFile{Filename: "a.txt", ContentType: "text/plain", Data: []byte("x")})
	assert.Nil(t, op)
	assert.ErrorIs(t, err, apperr.ErrNotImage)
	assert.Equal(t, "Please select a valid image file", g.Err())
}

func TestUpload_FailureKeepsImages(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	g := gallery.New(api, "n1", []string{"k1"}, []string{"u1"}, template)

	api.EXPECT().
		UploadImage(gomock.Any(), "n1", gomock.Any()).
		Return(nil, apperr.NewAPIError(500, "Failed to upload image: boom")).
		Times(1)

	err := g.Upload(context.Background(), pngFile(1))
	require.Error(t, err)
	assert.Equal(t, "Failed to upload image: boom", g.Err())
	assert.Equal(t, []string{"k1"}, g.Images())
	assert.Equal(t, []string{"u1"}, g.ImageURLs())
	assert.False(t, g.Uploading())
}

func TestUpload_RefetchFailureIsReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	g := gallery.New(api, "n1", nil, nil, template)

	api.EXPECT().UploadImage(gomock.Any(), "n1", gomock.Any()).Return(&notes.ImageUploadResponse{}, nil).Times(1)
	api.EXPECT().GetNote(gomock.Any(), "n1").Return(nil, errors.New("connection reset")).Times(1)

	err := g.Upload(context.Background(), pngFile(1))
	require.Error(t, err)
	assert.Equal(t, "connection reset", g.Err())
	assert.Empty(t, g.Images())
}

func TestStartUpload_Blocked(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	g := gallery.New(api, "n1", nil, nil, template)

	_, err := g.StartUpload(pngFile(1))
	require.NoError(t, err)

	_, err = g.StartUpload(pngFile(1))
	assert.ErrorIs(t, err, apperr.ErrUploadBlocked)

	g2 := gallery.New(api, "n2", nil, nil, template)
	g2.SetDisabled(true)
	_, err = g2.StartUpload(pngFile(1))
	assert.ErrorIs(t, err, apperr.ErrUploadBlocked)
}

func TestStartDelete_OneAtATime(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	g := gallery.New(api, "n1", []string{"notes/n1/a.jpg", "notes/n1/b.jpg"}, nil, template)

	api.EXPECT().DeleteImage(gomock.Any(), "n1", "notes/n1/a.jpg").
		Return(&notes.MessageResponse{}, nil).Times(1)
	api.EXPECT().GetNote(gomock.Any(), "n1").
		Return(&notes.Note{ID: "n1", Images: []string{"notes/n1/b.jpg"}}, nil).Times(1)

	op, err := g.StartDelete("notes/n1/a.jpg")
	require.NoError(t, err)
	assert.True(t, g.Deleting("notes/n1/a.jpg"))
	assert.False(t, g.CanDelete())

	_, err = g.StartDelete("notes/n1/a.jpg")
	assert.ErrorIs(t, err, apperr.ErrDeleteInFlight)
	_, err = g.StartDelete("notes/n1/b.jpg")
	assert.ErrorIs(t, err, apperr.ErrDeleteInFlight)

	assert.True(t, g.Apply(op(context.Background())))
	assert.False(t, g.Deleting("notes/n1/a.jpg"))
	assert.True(t, g.CanDelete())
	assert.Empty(t, g.Err())
	assert.Equal(t, []string{"notes/n1/b.jpg"}, g.Images())
}

func TestStartDelete_FailureReleases(t *testing.T) {
	g := gallery.New(nil, "n1", []string{"k"}, nil, template)

	_, err := g.StartDelete("k")
	require.NoError(t, err)
	g.Apply(gallery.Result{Kind: gallery.KindDelete, NoteID: "n1", Key: "k", Err: errors.New("timeout")})

	assert.True(t, g.CanDelete())
	assert.Equal(t, "timeout", g.Err())
	_, err = g.StartDelete("k")
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	g := gallery.New(api, "n1", []string{"notes/n1/a.jpg", "notes/n1/b.jpg"}, nil, template)

	gomock.InOrder(
		api.EXPECT().DeleteImage(gomock.Any(), "n1", "notes/n1/a.jpg").
			Return(&notes.MessageResponse{Message: "Image deleted successfully"}, nil).Times(1),
		api.EXPECT().GetNote(gomock.Any(), "n1").
			Return(&notes.Note{ID: "n1", Images: []string{"notes/n1/b.jpg"}}, nil).Times(1),
	)

	require.NoError(t, g.Delete(context.Background(), "notes/n1/a.jpg"))
	assert.Equal(t, []string{"notes/n1/b.jpg"}, g.Images())
	assert.Empty(t, g.ImageURLs())
	assert.Equal(t, "1 image", g.CountLabel())
}

func TestDelete_FailureKeepsImages(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	g := gallery.New(api, "n1", []string{"k"}, nil, template)

	api.EXPECT().DeleteImage(gomock.Any(), "n1", "k").
		Return(nil, apperr.NewAPIError(404, "Image not found")).Times(1)

	require.Error(t, g.Delete(context.Background(), "k"))
	assert.Equal(t, "Image not found", g.Err())
	assert.Equal(t, []string{"k"}, g.Images())

	_, err := g.StartDelete("unknown")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestApply_IgnoresOtherNotes(t *testing.T) {
	g := gallery.New(nil, "n1", []string{"k"}, nil, template)
	changed := g.Apply(gallery.Result{Kind: gallery.KindDelete, NoteID: "n2", Note: &notes.Note{}})
	assert.False(t, changed)
	assert.Equal(t, []string{"k"}, g.Images())
}

func TestDisplayURL_NoTemplate(t *testing.T) {
	g := gallery.New(nil, "n1", []string{"k"}, nil, "")
	assert.Empty(t, g.DisplayURL(0))
	assert.Empty(t, gallery.CountLabel(0))
}

func TestReadImageFile(t *testing.T) {
	dir := t.TempDir()

	png := filepath.Join(dir, "photo.PNG")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\nrest"), 0o644))
	f, err := gallery.ReadImageFile(png)
	require.NoError(t, err)
	assert.Equal(t, "photo.PNG", f.Filename)
	assert.Equal(t, "image/png", f.ContentType)
	assert.NoError(t, f.Validate())

	sniffed := filepath.Join(dir, "noext")
	require.NoError(t, os.WriteFile(sniffed, []byte("GIF89a......"), 0o644))
	f, err = gallery.ReadImageFile(sniffed)
	require.NoError(t, err)
	assert.Equal(t, "image/gif", f.ContentType)

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o644))
	f, err = gallery.ReadImageFile(text)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Validate(), apperr.ErrNotImage)

	_, err = gallery.ReadImageFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

// serverState is a minimal notes.API holding one note whose images may also
// change behind the gallery's back.
type serverState struct {
	notes.API
	note    notes.Note
	nextKey int
	calls   int
}

func (s *serverState) UploadImage(_ context.Context, _ string, _ notes.ImageFile) (*notes.ImageUploadResponse, error) {
	s.calls++
	s.nextKey++
	key := fmt.Sprintf("notes/n1/%d.png", s.nextKey)
	s.note.Images = append(s.note.Images, key)
	return &notes.ImageUploadResponse{ImageKey: key}, nil
}

func (s *serverState) DeleteImage(_ context.Context, _ string, key string) (*notes.MessageResponse, error) {
	s.calls++
	i := slices.Index(s.note.Images, key)
	if i < 0 {
		return nil, apperr.NewAPIError(404, "Image not found")
	}
	s.note.Images = slices.Delete(s.note.Images, i, i+1)
	return &notes.MessageResponse{}, nil
}

func (s *serverState) GetNote(_ context.Context, _ string) (*notes.Note, error) {
	n := s.note.Clone()
	n.ImageURLs = make([]string, len(n.Images)/2)
	for i := range n.ImageURLs {
		n.ImageURLs[i] = "https://signed/" + n.Images[i]
	}
	return &n, nil
}

func TestGallery_MirrorsServerProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		srv := &serverState{note: notes.Note{ID: "n1"}}
		g := gallery.New(srv, "n1", nil, nil, template)

		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for range steps {
			switch rapid.IntRange(0, 2).Draw(t, "action") {
			case 0:
				size := rapid.IntRange(0, notes.MaxImageBytes+10).Draw(t, "size")
				before := srv.calls
				err := g.Upload(context.Background(), notes.ImageFile{ContentType: "image/png", Data: make([]byte, size)})
				if size > notes.MaxImageBytes {
					if !errors.Is(err, apperr.ErrImageTooLarge) || srv.calls != before {
						t.Fatalf("oversized upload reached the server")
					}
					g.ClearErr()
				}
			case 1:
				if g.Count() == 0 {
					continue
				}
				i := rapid.IntRange(0, g.Count()-1).Draw(t, "index")
				_ = g.Delete(context.Background(), g.Images()[i])
			case 2:
				// Another client attaches an image.
				srv.nextKey++
				srv.note.Images = append(srv.note.Images, fmt.Sprintf("notes/n1/x%d.png", srv.nextKey))
			}

			if srv.calls > 0 && g.Err() == "" {
				fresh, _ := srv.GetNote(context.Background(), "n1")
				lastSync := g.Images()
				// Images only ever equal a server snapshot, possibly one that
				// predates an out-of-band change.
				if !slices.Equal(lastSync, fresh.Images) && !isPrefix(lastSync, fresh.Images) {
					t.Fatalf("gallery %v diverged from server %v", lastSync, fresh.Images)
				}
			}
		}
	})
}

func isPrefix(prefix, full []string) bool {
	return len(prefix) <= len(full) && slices.Equal(prefix, full[:len(prefix)])
}
