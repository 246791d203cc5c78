package investments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/modousall221/iap/database"
	"github.com/modousall221/iap/models"
	"github.com/modousall221/iap/utils"
)

const (
	testInvestmentID = "11111111-1111-1111-1111-111111111111"
	testInvestorID   = "22222222-2222-2222-2222-222222222222"
	testProjectID    = "33333333-3333-3333-3333-333333333333"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return db, mock
}

func swapDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	orig := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = orig })
}

func authedRequest(method, target, role, userID string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": testInvestmentID})
	ctx := context.WithValue(req.Context(), utils.UserIDKey, userID)
	ctx = context.WithValue(ctx, utils.UserRoleKey, role)
	return req.WithContext(ctx)
}

func investmentRows(status string, reference interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "project_id", "investor_id", "amount", "status", "payment_reference", "payment_method"}).
		AddRow(testInvestmentID, testProjectID, testInvestorID, "500.00", status, reference, "bank_transfer")
}

func TestIsDuplicateKey(t *testing.T) {
	require.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	require.True(t, isDuplicateKey(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	require.True(t, isDuplicateKey(fmt.Errorf("create funding entry: %w", &mysql.MySQLError{Number: 1062})))

	require.False(t, isDuplicateKey(nil))
	require.False(t, isDuplicateKey(errors.New("connection refused")))
	require.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
}

func TestPayHandlerMovesPendingToPaymentConfirmed(t *testing.T) {
	db, mock := newMockDB(t)
	swapDB(t, db)
	t.Setenv("PAYMENT_SIM_DELAY_MS", "0")

	mock.ExpectQuery("SELECT (.+) FROM `investments` WHERE id = \\?").
		WillReturnRows(investmentRows("pending", nil))
	mock.ExpectExec("UPDATE `investments` SET `payment_reference`=\\?,`status`=\\?,`updated_at`=\\? WHERE id = \\? AND status = \\? AND payment_reference IS NULL").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := httptest.NewRecorder()
	PayHandler(rr, authedRequest(http.MethodPost, "/v1/investments/"+testInvestmentID+"/pay", "investor", testInvestorID, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Investment struct {
				Status string `json:"status"`
			} `json:"investment"`
			PaymentReference string `json:"payment_reference"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "payment_confirmed", resp.Data.Investment.Status)
	require.NotEmpty(t, resp.Data.PaymentReference)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminConfirmRecordsSuppliedReference(t *testing.T) {
	db, mock := newMockDB(t)
	swapDB(t, db)

	const suppliedRef = "PAY-20250901-BNK001"

	mock.ExpectQuery("SELECT (.+) FROM `investments` WHERE id = \\?").
		WillReturnRows(investmentRows("pending", nil))
	mock.ExpectExec("UPDATE `investments` SET `payment_reference`=\\?,`updated_at`=\\? WHERE id = \\? AND payment_reference IS NULL").
		WithArgs(suppliedRef, sqlmock.AnyArg(), testInvestmentID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `funding_entries`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM `projects` (.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "target_amount", "raised_amount", "status"}).
			AddRow(testProjectID, "10000.00", "1000.00", "funding"))
	mock.ExpectExec("UPDATE `projects` SET `raised_amount`=\\?,`status`=\\?,`updated_at`=\\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `investments` SET `status`=\\?,`updated_at`=\\? WHERE id = \\? AND status = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	body, _ := json.Marshal(map[string]string{"payment_reference": suppliedRef})
	rr := httptest.NewRecorder()
	AdminConfirmHandler(rr, authedRequest(http.MethodPost, "/v1/investments/"+testInvestmentID+"/admin-confirm", "admin", "44444444-4444-4444-4444-444444444444", body))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "Payment confirmed", resp.Message)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmHandlerNoOpAfterAdminConfirm(t *testing.T) {
	db, mock := newMockDB(t)
	swapDB(t, db)

	// an admin-confirmed investment carries no gateway reference; the
	// investor's confirm must succeed without touching the database again
	mock.ExpectQuery("SELECT (.+) FROM `investments` WHERE id = \\?").
		WillReturnRows(investmentRows("payment_confirmed", nil))

	rr := httptest.NewRecorder()
	ConfirmHandler(rr, authedRequest(http.MethodPost, "/v1/investments/"+testInvestmentID+"/confirm", "investor", testInvestorID, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "Investment already confirmed", resp.Message)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyFundsOnceAppliesAndCommits(t *testing.T) {
	db, mock := newMockDB(t)
	inv := &models.Investment{
		ID:        testInvestmentID,
		ProjectID: testProjectID,
		Amount:    decimal.RequireFromString("500.00"),
		Status:    models.InvestmentPaymentConfirmed,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `funding_entries`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM `projects` (.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "target_amount", "raised_amount", "status"}).
			AddRow(testProjectID, "10000.00", "1000.00", "funding"))
	mock.ExpectExec("UPDATE `projects` SET `raised_amount`=\\?,`status`=\\?,`updated_at`=\\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `investments` SET `status`=\\?,`updated_at`=\\? WHERE id = \\? AND status = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	applied, err := applyFundsOnce(db, inv)
	require.NoError(t, err)
	require.True(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyFundsOnceDuplicateEntryIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	inv := &models.Investment{
		ID:        testInvestmentID,
		ProjectID: testProjectID,
		Amount:    decimal.RequireFromString("500.00"),
		Status:    models.InvestmentPaymentConfirmed,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `funding_entries`").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectCommit()

	applied, err := applyFundsOnce(db, inv)
	require.NoError(t, err)
	require.False(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyFundsOnceRollsBackOverTarget(t *testing.T) {
	db, mock := newMockDB(t)
	inv := &models.Investment{
		ID:        testInvestmentID,
		ProjectID: testProjectID,
		Amount:    decimal.RequireFromString("500.00"),
		Status:    models.InvestmentPaymentConfirmed,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `funding_entries`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM `projects` (.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "target_amount", "raised_amount", "status"}).
			AddRow(testProjectID, "10000.00", "9700.00", "funding"))
	mock.ExpectRollback()

	applied, err := applyFundsOnce(db, inv)
	require.False(t, applied)
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, utils.KindInvalidState, appErr.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}