package projects

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/pkgindex/pkgindex/internal/config"
	"github.com/pkgindex/pkgindex/internal/db/models"
	"github.com/pkgindex/pkgindex/internal/middleware"
	"github.com/pkgindex/pkgindex/internal/storage"
)

// ---------------------------------------------------------------------------
// Test setup helpers
// ---------------------------------------------------------------------------

var releaseGetSQLCols = []string{
	"id", "project_id", "version", "storage_path", "storage_backend", "size_bytes",
	"checksum", "summary", "readme", "published_by", "download_count", "created_at",
}

// captureStorage records the upload so tests can assert on the storage path.
type captureStorage struct {
	uploadedPath string
	failUpload   bool
}

func (cs *captureStorage) Upload(ctx context.Context, path string, reader io.Reader, size int64) (*storage.UploadResult, error) {
	if cs.failUpload {
		return nil, io.ErrClosedPipe
	}
	cs.uploadedPath = path
	return &storage.UploadResult{Path: path, Size: size, Checksum: "deadbeef"}, nil
}

func (cs *captureStorage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	return nil, nil
}

func (cs *captureStorage) Delete(ctx context.Context, path string) error { return nil }

func (cs *captureStorage) GetURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	return "", nil
}

func (cs *captureStorage) Exists(ctx context.Context, path string) (bool, error) {
	return false, nil
}

func (cs *captureStorage) GetMetadata(ctx context.Context, path string) (*storage.FileMetadata, error) {
	return nil, nil
}

func newPublishRouter(t *testing.T, backend storage.Storage) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.Storage.DefaultBackend = "s3"

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Set(middleware.ProjectKey, &models.Project{
			ID:              "proj-1",
			Name:            "requests",
			LifecycleStatus: models.StatusNormal,
		})
		c.Next()
	})
	r.POST("/projects/:name/releases", PublishHandler(db, backend, cfg))
	return mock, r
}

// buildArchive assembles an in-memory tar.gz with the given files.
func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("tar write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// publishRequest builds a multipart upload request for the given archive.
func publishRequest(t *testing.T, version, summary string, archive []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if version != "" {
		mw.WriteField("version", version)
	}
	if summary != "" {
		mw.WriteField("summary", summary)
	}
	if archive != nil {
		fw, err := mw.CreateFormFile("file", "release.tar.gz")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		fw.Write(archive)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/projects/requests/releases", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// ---------------------------------------------------------------------------
// PublishHandler
// ---------------------------------------------------------------------------

func TestPublishHandler_Success(t *testing.T) {
	cs := &captureStorage{}
	mock, r := newPublishRouter(t, cs)

	archive := buildArchive(t, map[string]string{
		"README.md": "# requests\nHTTP for humans.",
		"main.go":   "package main",
	})

	mock.ExpectQuery("SELECT id, project_id, version.*FROM releases").
		WithArgs("proj-1", "2.31.0").
		WillReturnRows(sqlmock.NewRows(releaseGetSQLCols))
	mock.ExpectQuery("INSERT INTO releases").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).
			AddRow("rel-1", time.Now()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, publishRequest(t, "2.31.0", "bugfix release", archive))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if resp["version"] != "2.31.0" {
		t.Errorf("version = %v, want 2.31.0", resp["version"])
	}
	if resp["checksum"] != "deadbeef" {
		t.Errorf("checksum = %v, want deadbeef", resp["checksum"])
	}
	if cs.uploadedPath != "projects/requests/2.31.0.tar.gz" {
		t.Errorf("uploadedPath = %q, want projects/requests/2.31.0.tar.gz", cs.uploadedPath)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPublishHandler_MissingVersion(t *testing.T) {
	_, r := newPublishRouter(t, &captureStorage{})

	archive := buildArchive(t, map[string]string{"README.md": "hi"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, publishRequest(t, "", "", archive))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPublishHandler_InvalidVersion(t *testing.T) {
	_, r := newPublishRouter(t, &captureStorage{})

	archive := buildArchive(t, map[string]string{"README.md": "hi"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, publishRequest(t, "latest-and-greatest", "", archive))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPublishHandler_MissingFile(t *testing.T) {
	_, r := newPublishRouter(t, &captureStorage{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, publishRequest(t, "1.0.0", "", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPublishHandler_NotAnArchive(t *testing.T) {
	_, r := newPublishRouter(t, &captureStorage{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, publishRequest(t, "1.0.0", "", []byte("plain text, not gzip")))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPublishHandler_PathTraversalArchive(t *testing.T) {
	_, r := newPublishRouter(t, &captureStorage{})

	archive := buildArchive(t, map[string]string{"../../etc/passwd": "root"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, publishRequest(t, "1.0.0", "", archive))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPublishHandler_DuplicateVersion(t *testing.T) {
	mock, r := newPublishRouter(t, &captureStorage{})

	archive := buildArchive(t, map[string]string{"README.md": "hi"})

	mock.ExpectQuery("SELECT id, project_id, version.*FROM releases").
		WithArgs("proj-1", "1.0.0").
		WillReturnRows(sqlmock.NewRows(releaseGetSQLCols).
			AddRow("rel-1", "proj-1", "1.0.0", "projects/requests/1.0.0.tar.gz", "s3",
				int64(10), "deadbeef", nil, nil, nil, int64(0), time.Now()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, publishRequest(t, "1.0.0", "", archive))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestPublishHandler_StorageFailure(t *testing.T) {
	mock, r := newPublishRouter(t, &captureStorage{failUpload: true})

	archive := buildArchive(t, map[string]string{"README.md": "hi"})

	mock.ExpectQuery("SELECT id, project_id, version.*FROM releases").
		WithArgs("proj-1", "1.0.0").
		WillReturnRows(sqlmock.NewRows(releaseGetSQLCols))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, publishRequest(t, "1.0.0", "", archive))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
