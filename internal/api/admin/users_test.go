package admin

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

// ---------------------------------------------------------------------------
// Test setup helpers
// ---------------------------------------------------------------------------

// userSQLCols are the columns returned by user SELECT queries.
var userSQLCols = []string{"id", "email", "name", "scopes", "created_at", "updated_at"}

func sampleUserRow() *sqlmock.Rows {
	return sqlmock.NewRows(userSQLCols).
		AddRow("user-1", "alice@example.com", "Alice", []byte("{projects:read}"), time.Now(), time.Now())
}

func emptyUserRows() *sqlmock.Rows {
	return sqlmock.NewRows(userSQLCols)
}

// errDB is a sentinel error for DB failures in tests.
var errDB = &dbError{"database error"}

type dbError struct{ msg string }

func (e *dbError) Error() string { return e.msg }

// newUserRouter creates a gin router with all UserHandlers routes registered.
// The authenticated actor is always admin-1.
func newUserRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewUserHandlers(db)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "admin-1")
		c.Next()
	})
	r.GET("/users", h.ListUsersHandler())
	r.GET("/users/:id", h.GetUserHandler())
	r.POST("/users", h.CreateUserHandler())
	r.PUT("/users/:id/scopes", h.UpdateUserScopesHandler())
	r.DELETE("/users/:id", h.DeleteUserHandler())

	return mock, r
}

// ---------------------------------------------------------------------------
// ListUsersHandler
// ---------------------------------------------------------------------------

func TestListUsersHandler_Success(t *testing.T) {
	mock, r := newUserRouter(t)

	mock.ExpectQuery("SELECT id, email, name, scopes.*FROM users").
		WillReturnRows(sampleUserRow())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/users", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if resp["users"] == nil {
		t.Error("response missing 'users' key")
	}
}

func TestListUsersHandler_DBError(t *testing.T) {
	mock, r := newUserRouter(t)

	mock.ExpectQuery("SELECT id, email, name, scopes.*FROM users").
		WillReturnError(errDB)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/users", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ---------------------------------------------------------------------------
// GetUserHandler
// ---------------------------------------------------------------------------

func TestGetUserHandler_Success(t *testing.T) {
	mock, r := newUserRouter(t)

	mock.ExpectQuery("SELECT id, email, name, scopes.*FROM users").
		WithArgs("user-1").
		WillReturnRows(sampleUserRow())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/users/user-1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if resp["user"] == nil {
		t.Error("response missing 'user' key")
	}
}

func TestGetUserHandler_NotFound(t *testing.T) {
	mock, r := newUserRouter(t)

	mock.ExpectQuery("SELECT id, email, name, scopes.*FROM users").
		WithArgs("missing").
		WillReturnRows(emptyUserRows())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/users/missing", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ---------------------------------------------------------------------------
// CreateUserHandler
// ---------------------------------------------------------------------------

func TestCreateUserHandler_Success(t *testing.T) {
	mock, r := newUserRouter(t)

	mock.ExpectQuery("SELECT id, email, name, scopes.*FROM users").
		WithArgs("bob@example.com").
		WillReturnRows(emptyUserRows())
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("bob@example.com", "Bob", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("user-2", time.Now(), time.Now()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/users",
		jsonBody(map[string]interface{}{
			"email":  "bob@example.com",
			"name":   "Bob",
			"scopes": []string{"projects:read", "projects:write"},
		})))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateUserHandler_DefaultScopes(t *testing.T) {
	// Omitting scopes grants the read-only default set
	mock, r := newUserRouter(t)

	mock.ExpectQuery("SELECT id, email, name, scopes.*FROM users").
		WithArgs("bob@example.com").
		WillReturnRows(emptyUserRows())
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("bob@example.com", "Bob", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("user-2", time.Now(), time.Now()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/users",
		jsonBody(map[string]string{"email": "bob@example.com", "name": "Bob"})))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	user, _ := resp["user"].(map[string]interface{})
	scopes, _ := user["scopes"].([]interface{})
	if len(scopes) == 0 {
		t.Error("expected default scopes on created user")
	}
}

func TestCreateUserHandler_InvalidJSON(t *testing.T) {
	_, r := newUserRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/users", bytes.NewBufferString("{bad json")))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateUserHandler_InvalidScopes(t *testing.T) {
	_, r := newUserRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/users",
		jsonBody(map[string]interface{}{
			"email":  "bob@example.com",
			"name":   "Bob",
			"scopes": []string{"launch:missiles"},
		})))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateUserHandler_Conflict(t *testing.T) {
	mock, r := newUserRouter(t)

	mock.ExpectQuery("SELECT id, email, name, scopes.*FROM users").
		WithArgs("alice@example.com").
		WillReturnRows(sampleUserRow())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/users",
		jsonBody(map[string]string{"email": "alice@example.com", "name": "Alice"})))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

// ---------------------------------------------------------------------------
// UpdateUserScopesHandler
// ---------------------------------------------------------------------------

func TestUpdateUserScopesHandler_Success(t *testing.T) {
	mock, r := newUserRouter(t)

	mock.ExpectExec("UPDATE users SET scopes").
		WithArgs(sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, email, name, scopes.*FROM users").
		WithArgs("user-1").
		WillReturnRows(sampleUserRow())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PUT", "/users/user-1/scopes",
		jsonBody(map[string]interface{}{"scopes": []string{"projects:read"}})))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
}

func TestUpdateUserScopesHandler_NotFound(t *testing.T) {
	mock, r := newUserRouter(t)

	mock.ExpectExec("UPDATE users SET scopes").
		WithArgs(sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PUT", "/users/missing/scopes",
		jsonBody(map[string]interface{}{"scopes": []string{"projects:read"}})))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateUserScopesHandler_InvalidScopes(t *testing.T) {
	_, r := newUserRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PUT", "/users/user-1/scopes",
		jsonBody(map[string]interface{}{"scopes": []string{"nonsense"}})))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---------------------------------------------------------------------------
// DeleteUserHandler
// ---------------------------------------------------------------------------

func TestDeleteUserHandler_Success(t *testing.T) {
	mock, r := newUserRouter(t)

	mock.ExpectExec("DELETE FROM users").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/users/user-1", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestDeleteUserHandler_Self(t *testing.T) {
	_, r := newUserRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/users/admin-1", nil))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestDeleteUserHandler_NotFound(t *testing.T) {
	mock, r := newUserRouter(t)

	mock.ExpectExec("DELETE FROM users").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/users/missing", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
