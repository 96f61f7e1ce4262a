package users

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"billing-backend/models"
	"billing-backend/testutils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	stripe "github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

const userID = "9f0c6a2e-7e3a-4a57-92cf-0a5a6e2a0c22"

func TestMain(m *testing.M) {
	testutils.InitTestMain()

	log.SetOutput(io.Discard)

	exitCode := m.Run()

	log.SetOutput(os.Stdout)

	os.Exit(exitCode)
}

func usersRouter(h *Handler) *gin.Engine {
	r := testutils.SetupTestRouter()
	r.POST("/users", h.CreateUser)
	r.GET("/users", h.GetAllUsers)
	r.GET("/users/:id", h.GetUserByID)
	r.PATCH("/users/:id", h.UpdateUser)
	r.DELETE("/users/:id", h.DeleteUser)
	return r
}

func TestCreateUser_ProvisionsStripeCustomer(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	var customerEmail string
	fake := &testutils.FakePaymentsClient{
		CreateCustomerFn: func(email string) (*stripe.Customer, error) {
			customerEmail = email
			return &stripe.Customer{ID: "cus_1"}, nil
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users" (.+) RETURNING "id"`).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(userID))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET "stripe_customer_id"=\$1,"updated_at"=\$2 WHERE "id" = \$3`).
		WithArgs("cus_1", sqlmock.AnyArg(), userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := usersRouter(NewHandler(fake))

	body := `{"email": "new@example.com", "username": "newuser"}`
	req, _ := http.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "new@example.com", customerEmail)

	var response map[string]interface{}
	err := json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "cus_1", response["stripeCustomerId"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_StripeFailure(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	fake := &testutils.FakePaymentsClient{
		CreateCustomerFn: func(email string) (*stripe.Customer, error) {
			return nil, fmt.Errorf("stripe unavailable")
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users" (.+) RETURNING "id"`).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(userID))
	mock.ExpectCommit()

	r := usersRouter(NewHandler(fake))

	req, _ := http.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(`{"email": "new@example.com", "username": "newuser"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureStripeCustomer_AlreadyProvisioned(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	user := models.User{ID: userID, Email: "user@example.com", StripeCustomerId: "cus_1"}

	// the fake would fail loudly if CreateCustomer were reached
	err := EnsureStripeCustomer(&testutils.FakePaymentsClient{}, &user)

	assert.NoError(t, err)
	assert.Equal(t, "cus_1", user.StripeCustomerId)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByID(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = (.+)`).
		WithArgs(userID, 1).
		WillReturnRows(mock.NewRows([]string{"id", "email", "user_name"}).
			AddRow(userID, "user@example.com", "user"))

	r := usersRouter(NewHandler(&testutils.FakePaymentsClient{}))

	req, _ := http.NewRequest(http.MethodGet, "/users/"+userID, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByID_NotFound(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = (.+)`).
		WithArgs(userID, 1).
		WillReturnError(gorm.ErrRecordNotFound)

	r := usersRouter(NewHandler(&testutils.FakePaymentsClient{}))

	req, _ := http.NewRequest(http.MethodGet, "/users/"+userID, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUser(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = (.+)`).
		WithArgs(userID, 1).
		WillReturnRows(mock.NewRows([]string{"id", "email", "user_name"}).
			AddRow(userID, "old@example.com", "user"))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := usersRouter(NewHandler(&testutils.FakePaymentsClient{}))

	req, _ := http.NewRequest(http.MethodPatch, "/users/"+userID, bytes.NewBufferString(`{"email": "new@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var response map[string]interface{}
	err := json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "new@example.com", response["email"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser_NotFound(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "users" WHERE id = (.+)`).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	r := usersRouter(NewHandler(&testutils.FakePaymentsClient{}))

	req, _ := http.NewRequest(http.MethodDelete, "/users/"+userID, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
