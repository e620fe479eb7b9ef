package storage_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/pkgindex/pkgindex/internal/config"
	"github.com/pkgindex/pkgindex/internal/storage"
)

// stubBackend satisfies storage.Storage with no behaviour; the factory tests
// only care about registration and lookup.
type stubBackend struct {
	name string
}

func (s *stubBackend) Upload(context.Context, string, io.Reader, int64) (*storage.UploadResult, error) {
	return nil, nil
}
func (s *stubBackend) Download(context.Context, string) (io.ReadCloser, error) { return nil, nil }
func (s *stubBackend) Delete(context.Context, string) error                    { return nil }
func (s *stubBackend) GetURL(context.Context, string, time.Duration) (string, error) {
	return "", nil
}
func (s *stubBackend) Exists(context.Context, string) (bool, error) { return false, nil }
func (s *stubBackend) GetMetadata(context.Context, string) (*storage.FileMetadata, error) {
	return nil, nil
}

func configFor(backend string) *config.Config {
	cfg := &config.Config{}
	cfg.Storage.DefaultBackend = backend
	return cfg
}

func TestNewStorage_DispatchesToRegisteredBackend(t *testing.T) {
	storage.Register("stub", func(_ *config.Config) (storage.Storage, error) {
		return &stubBackend{name: "stub"}, nil
	})

	s, err := storage.NewStorage(configFor("stub"))
	if err != nil {
		t.Fatalf("NewStorage() error: %v", err)
	}
	stub, ok := s.(*stubBackend)
	if !ok {
		t.Fatalf("NewStorage() returned %T, want *stubBackend", s)
	}
	if stub.name != "stub" {
		t.Errorf("backend name = %q, want stub", stub.name)
	}
}

func TestNewStorage_RejectsUnknownBackends(t *testing.T) {
	for _, backend := range []string{"completely-unknown-backend", ""} {
		t.Run("backend="+backend, func(t *testing.T) {
			if _, err := storage.NewStorage(configFor(backend)); err == nil {
				t.Errorf("NewStorage(%q) = nil error, want error", backend)
			}
		})
	}
}
