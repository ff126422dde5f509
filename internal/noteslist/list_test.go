package noteslist_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"

	"github.com/starford/lumen/internal/apperr"
	"github.com/starford/lumen/internal/notes"
	"github.com/starford/lumen/internal/notes/mock"
	"github.com/starford/lumen/internal/noteslist"
)

const template = "https://bucket.example.com/{key}"

func note(id, updated string) notes.Note {
	ts, err := notes.ParseTimestamp(updated)
	if err != nil {
		panic(err)
	}
	return notes.Note{ID: id, Title: "title " + id, UpdatedAt: ts, Images: []string{}}
}

func ids(list []notes.Note) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.ID
	}
	return out
}

func TestLoad_SortsNewestFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	l := noteslist.New(api, template)

	api.EXPECT().ListNotes(gomock.Any()).
		Return([]notes.Note{note("jan", "2024-01-01"), note("mar", "2024-03-01"), note("feb", "2024-02-01")}, nil).
		Times(1)

	assert.True(t, l.Stale(0))
	op := l.StartLoad(0)
	assert.True(t, l.Loading())
	assert.False(t, l.Stale(0), "no second fetch while loading")

	l.FinishLoad(op(context.Background()))
	assert.False(t, l.Loading())
	assert.Equal(t, []string{"mar", "feb", "jan"}, ids(l.Notes()))
	assert.Equal(t, "3 notes", l.CountLabel())
	assert.False(t, l.Stale(0))
	assert.True(t, l.Stale(1), "refresh trigger changed")
}

func TestLoad_ErrorAndRetry(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	l := noteslist.New(api, template)

	gomock.InOrder(
		api.EXPECT().ListNotes(gomock.Any()).Return(nil, errors.New("connection refused")).Times(1),
		api.EXPECT().ListNotes(gomock.Any()).Return([]notes.Note{}, nil).Times(1),
	)

	require.Error(t, l.Load(context.Background(), 0))
	assert.Equal(t, "connection refused", l.Err())
	assert.False(t, l.Empty())

	require.NoError(t, l.Load(context.Background(), 0))
	assert.Empty(t, l.Err())
	assert.True(t, l.Empty())
	assert.Empty(t, l.CountLabel())
}

func TestFinishLoad_SupersededTriggerDropped(t *testing.T) {
	l := noteslist.New(nil, template)
	l.StartLoad(1)
	l.StartLoad(2)

	l.FinishLoad(noteslist.LoadResult{Trigger: 1, Notes: []notes.Note{note("old", "2024-01-01")}})
	assert.True(t, l.Loading())
	assert.Zero(t, l.Len())

	l.FinishLoad(noteslist.LoadResult{Trigger: 2, Notes: []notes.Note{note("new", "2024-01-01")}})
	assert.False(t, l.Loading())
	assert.Equal(t, []string{"new"}, ids(l.Notes()))
}

func TestDelete_Confirmed(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	l := noteslist.New(api, template)
	l.FinishLoad(noteslist.LoadResult{Notes: []notes.Note{note("a", "2024-01-02"), note("b", "2024-01-01")}})

	api.EXPECT().DeleteNote(gomock.Any(), "a").
		Return(&notes.MessageResponse{Message: "Note deleted successfully"}, nil).Times(1)

	require.NoError(t, l.RequestDelete("a"))
	assert.Equal(t,
		`Are you sure you want to delete "title a"? This action cannot be undone and will also delete any attached images.`,
		l.ConfirmPrompt())

	op, err := l.ConfirmDelete()
	require.NoError(t, err)
	_, pending := l.PendingDelete()
	assert.False(t, pending)

	l.FinishDelete(op(context.Background()))
	assert.Equal(t, []string{"b"}, ids(l.Notes()))
	assert.Empty(t, l.Err())
}

func TestDelete_Cancelled(t *testing.T) {
	l := noteslist.New(nil, template)
	l.FinishLoad(noteslist.LoadResult{Notes: []notes.Note{note("a", "2024-01-01")}})

	require.NoError(t, l.RequestDelete("a"))
	l.CancelDelete()
	_, err := l.ConfirmDelete()
	assert.ErrorIs(t, err, apperr.ErrNoPendingDelete)
	assert.Equal(t, 1, l.Len())

	assert.ErrorIs(t, l.RequestDelete("ghost"), apperr.ErrNotFound)
}

func TestDelete_FailureLeavesList(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	l := noteslist.New(api, template)
	l.FinishLoad(noteslist.LoadResult{Notes: []notes.Note{note("a", "2024-01-01")}})

	api.EXPECT().DeleteNote(gomock.Any(), "a").Return(nil, apperr.NewAPIError(404, "Note not found")).Times(1)

	require.Error(t, l.Delete(context.Background(), "a"))
	assert.Equal(t, []string{"a"}, ids(l.Notes()))
	assert.Equal(t, "Note not found", l.Err())
}

func TestPreview(t *testing.T) {
	l := noteslist.New(nil, template)
	n := notes.Note{
		Images:    []string{"k1", "k2", "k3", "k4", "k5"},
		ImageURLs: []string{"https://signed/1"},
	}
	urls, more := l.Preview(n, 3)
	assert.Equal(t, []string{
		"https://signed/1",
		"https://bucket.example.com/k2",
		"https://bucket.example.com/k3",
	}, urls)
	assert.Equal(t, 2, more)

	urls, more = l.Preview(notes.Note{}, 3)
	assert.Empty(t, urls)
	assert.Zero(t, more)
}

func TestPreview_NoURLs(t *testing.T) {
	l := noteslist.New(nil, "")
	n := notes.Note{Images: []string{"k1", "k2", "k3", "k4", "k5"}}

	urls, more := l.Preview(n, 3)
	assert.Empty(t, urls)
	assert.Equal(t, 5, more)

	n.ImageURLs = []string{"", "https://signed/2"}
	urls, more = l.Preview(n, 3)
	assert.Equal(t, []string{"https://signed/2"}, urls)
	assert.Equal(t, 4, more)
}

func TestDelete_NoSecondRequestWhileInFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	l := noteslist.New(api, template)
	l.FinishLoad(noteslist.LoadResult{Notes: []notes.Note{note("a", "2024-01-01")}})

	api.EXPECT().DeleteNote(gomock.Any(), "a").
		Return(&notes.MessageResponse{Message: "Note deleted successfully"}, nil).
		Times(1)

	require.NoError(t, l.RequestDelete("a"))
	op, err := l.ConfirmDelete()
	require.NoError(t, err)
	assert.True(t, l.Deleting("a"))

	assert.ErrorIs(t, l.RequestDelete("a"), apperr.ErrDeleteInFlight)
	_, pending := l.PendingDelete()
	assert.False(t, pending)
	_, err = l.ConfirmDelete()
	assert.ErrorIs(t, err, apperr.ErrNoPendingDelete)

	l.FinishDelete(op(context.Background()))
	assert.False(t, l.Deleting("a"))
	assert.Empty(t, l.Notes())
	assert.Empty(t, l.Err())
}

func TestDelete_FailureAllowsRetry(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockAPI(ctrl)
	l := noteslist.New(api, template)
	l.FinishLoad(noteslist.LoadResult{Notes: []notes.Note{note("a", "2024-01-01")}})

	gomock.InOrder(
		api.EXPECT().DeleteNote(gomock.Any(), "a").Return(nil, errors.New("connection reset")),
		api.EXPECT().DeleteNote(gomock.Any(), "a").Return(&notes.MessageResponse{}, nil),
	)

	require.Error(t, l.Delete(context.Background(), "a"))
	assert.False(t, l.Deleting("a"))
	assert.Equal(t, "connection reset", l.Err())

	require.NoError(t, l.Delete(context.Background(), "a"))
	assert.Empty(t, l.Notes())
}

func TestList_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 25).Draw(t, "n")
		server := make([]notes.Note, n)
		for i := range server {
			server[i] = notes.Note{
				ID:        rapid.StringMatching(`[a-z]{8}`).Draw(t, "id"),
				UpdatedAt: notes.NewTimestamp(time.Unix(rapid.Int64Range(0, 1e9).Draw(t, "ts"), 0)),
			}
		}

		l := noteslist.New(nil, template)
		l.FinishLoad(noteslist.LoadResult{Notes: server})

		got := l.Notes()
		if len(got) != len(server) {
			t.Fatalf("len %d, want %d", len(got), len(server))
		}
		for i := 1; i < len(got); i++ {
			if got[i-1].UpdatedAt.Before(got[i].UpdatedAt.Time) {
				t.Fatalf("unsorted at %d", i)
			}
		}

		if len(got) == 0 {
			return
		}
		victim := got[rapid.IntRange(0, len(got)-1).Draw(t, "victim")].ID
		fail := rapid.Bool().Draw(t, "fail")
		var err error
		if fail {
			err = errors.New("boom")
		}
		l.FinishDelete(noteslist.DeleteResult{ID: victim, Err: err})

		after := ids(l.Notes())
		if fail {
			if !slices.Equal(after, ids(got)) {
				t.Fatalf("failed delete changed the list")
			}
			return
		}
		if slices.Contains(after, victim) {
			t.Fatalf("deleted note %s still listed", victim)
		}
	})
}
