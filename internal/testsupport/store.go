package testsupport

import (
	"context"
	"testing"

	"ariacut/internal/config"
	"ariacut/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEdition enqueues an Italian aria edition for tests.
func NewEdition(t testing.TB, store *queue.Store, artist, title string) *queue.Edition {
	t.Helper()

	edition, err := store.NewEdition(context.Background(), queue.NewEditionRequest{
		SourceURL: "https://www.youtube.com/watch?v=" + title,
		Artist:    artist,
		Title:     title,
		Opera:     "Turandot",
		Composer:  "Puccini",
		Language:  "it",
	})
	if err != nil {
		t.Fatalf("store.NewEdition: %v", err)
	}
	return edition
}
