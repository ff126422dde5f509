// Package testutil provides shared test helpers for running the fake notes API.
package testutil

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/starford/lumen/internal/client"
	"github.com/starford/lumen/internal/fakeapi"
)

// FakeAPI is a running fake notes API with a client pointed at it.
type FakeAPI struct {
	Server *fakeapi.Server
	HTTP   *httptest.Server
	Client *client.Client
}

// URL returns the base URL of the running server.
func (f *FakeAPI) URL() string {
	return f.HTTP.URL
}

// NewFakeAPI starts a fake API backed by a temp directory. Everything is
// shut down when the test ends.
func NewFakeAPI(t *testing.T, opts ...fakeapi.Option) *FakeAPI {
	t.Helper()

	quiet := slog.New(slog.NewJSONHandler(io.Discard, nil))
	opts = append([]fakeapi.Option{fakeapi.WithLogger(quiet)}, opts...)
	srv, err := fakeapi.New(t.TempDir(), opts...)
	if err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c, err := client.New(ts.URL, client.WithHTTPClient(ts.Client()), client.WithLogger(quiet))
	if err != nil {
		t.Fatal(err)
	}
	return &FakeAPI{Server: srv, HTTP: ts, Client: c}
}
