package projects

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/pkgindex/pkgindex/internal/db/models"
	"github.com/pkgindex/pkgindex/internal/middleware"
)

// ---------------------------------------------------------------------------
// Test setup helpers
// ---------------------------------------------------------------------------

var projectSQLCols = []string{
	"id", "name", "lifecycle_status", "description", "homepage",
	"owner_id", "created_at", "updated_at", "owner_name",
}

func strPtr(s string) *string { return &s }

func jsonBody(v interface{}) *bytes.Buffer {
	b, _ := json.Marshal(v)
	return bytes.NewBuffer(b)
}

func getJSON(resp *httptest.ResponseRecorder) map[string]interface{} {
	var m map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &m)
	return m
}

// newCreateRouter registers CreateHandler behind an authenticated actor.
func newCreateRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Next()
	})
	r.POST("/projects", CreateHandler(db))
	return mock, r
}

// newUpdateRouter registers UpdateHandler with the project already resolved,
// the way the quarantine guard middleware leaves it for real requests.
func newUpdateRouter(t *testing.T, project *models.Project) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Set(middleware.ProjectKey, project)
		c.Next()
	})
	r.PATCH("/projects/:name", UpdateHandler(db))
	return mock, r
}

// ---------------------------------------------------------------------------
// CreateHandler
// ---------------------------------------------------------------------------

func TestCreateHandler_Success(t *testing.T) {
	mock, r := newCreateRouter(t)

	mock.ExpectQuery("SELECT p.id.*FROM projects p").
		WithArgs("requests").
		WillReturnRows(sqlmock.NewRows(projectSQLCols))
	mock.ExpectQuery("INSERT INTO projects").
		WithArgs("requests", strPtr("HTTP for humans"), nil, strPtr("user-1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "lifecycle_status", "created_at", "updated_at"}).
			AddRow("proj-1", "normal", time.Now(), time.Now()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/projects",
		jsonBody(map[string]string{"name": "requests", "description": "HTTP for humans"})))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if resp["name"] != "requests" {
		t.Errorf("name = %v, want requests", resp["name"])
	}
	if resp["lifecycle_status"] != "normal" {
		t.Errorf("lifecycle_status = %v, want normal", resp["lifecycle_status"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateHandler_NormalizesName(t *testing.T) {
	mock, r := newCreateRouter(t)

	mock.ExpectQuery("SELECT p.id.*FROM projects p").
		WithArgs("requests").
		WillReturnRows(sqlmock.NewRows(projectSQLCols))
	mock.ExpectQuery("INSERT INTO projects").
		WithArgs("requests", nil, nil, strPtr("user-1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "lifecycle_status", "created_at", "updated_at"}).
			AddRow("proj-1", "normal", time.Now(), time.Now()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/projects",
		jsonBody(map[string]string{"name": "Requests"})))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateHandler_InvalidName(t *testing.T) {
	_, r := newCreateRouter(t)

	for _, name := range []string{"-leading", "trailing-", "has space", "double--dash"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/projects",
			jsonBody(map[string]string{"name": name})))

		if w.Code != http.StatusBadRequest {
			t.Errorf("name %q: status = %d, want 400", name, w.Code)
		}
	}
}

func TestCreateHandler_MissingName(t *testing.T) {
	_, r := newCreateRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/projects",
		jsonBody(map[string]string{"description": "no name"})))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateHandler_NameTaken(t *testing.T) {
	mock, r := newCreateRouter(t)

	now := time.Now()
	mock.ExpectQuery("SELECT p.id.*FROM projects p").
		WithArgs("requests").
		WillReturnRows(sqlmock.NewRows(projectSQLCols).
			AddRow("proj-1", "requests", "normal", nil, nil, nil, now, now, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/projects",
		jsonBody(map[string]string{"name": "requests"})))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

// ---------------------------------------------------------------------------
// UpdateHandler
// ---------------------------------------------------------------------------

func TestUpdateHandler_Success(t *testing.T) {
	project := &models.Project{
		ID:              "proj-1",
		Name:            "requests",
		LifecycleStatus: models.StatusNormal,
		Description:     strPtr("old description"),
	}
	mock, r := newUpdateRouter(t, project)

	mock.ExpectQuery("UPDATE projects").
		WithArgs(strPtr("new description"), nil, "proj-1").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PATCH", "/projects/requests",
		jsonBody(map[string]string{"description": "new description"})))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if resp["description"] != "new description" {
		t.Errorf("description = %v, want new description", resp["description"])
	}
}

func TestUpdateHandler_PartialPatch(t *testing.T) {
	// Absent fields stay untouched
	project := &models.Project{
		ID:              "proj-1",
		Name:            "requests",
		LifecycleStatus: models.StatusNormal,
		Description:     strPtr("keep me"),
	}
	mock, r := newUpdateRouter(t, project)

	mock.ExpectQuery("UPDATE projects").
		WithArgs(strPtr("keep me"), strPtr("https://example.com"), "proj-1").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PATCH", "/projects/requests",
		jsonBody(map[string]string{"homepage": "https://example.com"})))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdateHandler_InvalidJSON(t *testing.T) {
	project := &models.Project{ID: "proj-1", Name: "requests", LifecycleStatus: models.StatusNormal}
	_, r := newUpdateRouter(t, project)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PATCH", "/projects/requests",
		bytes.NewBufferString("{bad json")))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
