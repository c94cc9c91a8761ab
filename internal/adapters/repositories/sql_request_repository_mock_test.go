package repositories

import (
	"context"
	"errors"
	"testing"

	"pickup-request-service/internal/ports"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRollsBackWhenRequestInsertFails(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewSQLRequestRepository(sqlx.NewDb(mockDB, "sqlite"))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO addresses").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery("INSERT INTO requests").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err = repo.Create(context.Background(), newRequestInput(1, "Centro"), ports.CreateOptions{TrackingCode: "t", Now: testNow})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert request")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignReportsMissedGuard(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewSQLRequestRepository(sqlx.NewDb(mockDB, "pgx"))

	mock.ExpectExec(`UPDATE requests\s+SET status = \$1, collector_id = \$2, assigned_at = \$3, updated_at = \$4\s+WHERE id = \$5 AND status IN \(\$6\)`).
		WithArgs("ASSIGNED", int64(9), testNow, testNow, int64(3), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Assign(context.Background(), 3, 9, testNow)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
