package notes

import "context"

//go:generate mockgen -source=$GOFILE -destination=mock/api_mock.go -package=mock

// API is the notes service as seen by its consumers.
type API interface {
	ListNotes(ctx context.Context) ([]Note, error)
	GetNote(ctx context.Context, id string) (*Note, error)
	CreateNote(ctx context.Context, in NoteCreate) (*Note, error)
	UpdateNote(ctx context.Context, id string, in NoteUpdate) (*Note, error)
	DeleteNote(ctx context.Context, id string) (*MessageResponse, error)
	UploadImage(ctx context.Context, noteID string, file ImageFile) (*ImageUploadResponse, error)
	DeleteImage(ctx context.Context, noteID, imageKey string) (*MessageResponse, error)
	Health(ctx context.Context) (*HealthStatus, error)
}
