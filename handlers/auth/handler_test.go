package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"billing-backend/testutils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()

	log.SetOutput(io.Discard)

	exitCode := m.Run()

	log.SetOutput(os.Stdout)

	os.Exit(exitCode)
}

func authRouter() *gin.Engine {
	r := testutils.SetupTestRouter()
	r.POST("/auth/register", Register)
	r.POST("/auth/login", Login)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRegister(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = (.+) OR user_name = (.+)`).
		WithArgs("new@example.com", "newuser", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users" (.+) RETURNING "id"`).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow("9f0c6a2e-7e3a-4a57-92cf-0a5a6e2a0c22"))
	mock.ExpectCommit()

	resp := postJSON(authRouter(), "/auth/register",
		`{"email": "new@example.com", "username": "newuser", "password": "password123"}`)

	assert.Equal(t, http.StatusCreated, resp.Code)

	var response map[string]interface{}
	err := json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.NotEmpty(t, response["token"])
	user, ok := response["user"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "new@example.com", user["email"])
	// the password hash never leaves the API
	_, exposed := user["password"]
	assert.False(t, exposed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_EmailAlreadyRegistered(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = (.+) OR user_name = (.+)`).
		WithArgs("taken@example.com", "newuser", 1).
		WillReturnRows(mock.NewRows([]string{"id", "email", "user_name"}).
			AddRow("9f0c6a2e-7e3a-4a57-92cf-0a5a6e2a0c22", "taken@example.com", "someoneelse"))

	resp := postJSON(authRouter(), "/auth/register",
		`{"email": "taken@example.com", "username": "newuser", "password": "password123"}`)

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "Email already registered")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_UsernameAlreadyTaken(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = (.+) OR user_name = (.+)`).
		WithArgs("new@example.com", "taken", 1).
		WillReturnRows(mock.NewRows([]string{"id", "email", "user_name"}).
			AddRow("9f0c6a2e-7e3a-4a57-92cf-0a5a6e2a0c22", "other@example.com", "taken"))

	resp := postJSON(authRouter(), "/auth/register",
		`{"email": "new@example.com", "username": "taken", "password": "password123"}`)

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "Username already taken")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_InvalidInput(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	resp := postJSON(authRouter(), "/auth/register", `{"email": "not-an-email"}`)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	assert.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = (.+) AND is_active = (.+)`).
		WithArgs("user@example.com", true, 1).
		WillReturnRows(mock.NewRows([]string{"id", "email", "password", "role", "is_active"}).
			AddRow("9f0c6a2e-7e3a-4a57-92cf-0a5a6e2a0c22", "user@example.com", string(hash), "user", true))

	resp := postJSON(authRouter(), "/auth/login",
		`{"email": "user@example.com", "password": "password123"}`)

	assert.Equal(t, http.StatusOK, resp.Code)

	var response map[string]interface{}
	err = json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.NotEmpty(t, response["token"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_WrongPassword(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	assert.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = (.+) AND is_active = (.+)`).
		WithArgs("user@example.com", true, 1).
		WillReturnRows(mock.NewRows([]string{"id", "email", "password", "is_active"}).
			AddRow("9f0c6a2e-7e3a-4a57-92cf-0a5a6e2a0c22", "user@example.com", string(hash), true))

	resp := postJSON(authRouter(), "/auth/login",
		`{"email": "user@example.com", "password": "wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Invalid credentials")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_InactiveUser(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	// the is_active filter keeps deactivated accounts out entirely
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = (.+) AND is_active = (.+)`).
		WithArgs("inactive@example.com", true, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	resp := postJSON(authRouter(), "/auth/login",
		`{"email": "inactive@example.com", "password": "password123"}`)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Invalid credentials")
	assert.NoError(t, mock.ExpectationsWereMet())
}
