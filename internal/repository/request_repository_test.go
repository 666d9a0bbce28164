package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/registrar-docs-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestCreateRequestTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO document_requests").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO request_documents").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO request_documents").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO request_requirements").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	req := &models.DocumentRequest{
		StudentID:        "student-1",
		Status:           models.RequestStatusPending,
		PreferredContact: models.ContactEmail,
		TotalPrice:       300,
	}
	docs := []models.RequestDocument{
		{Name: "Transcript of Records", Cost: 200, Quantity: 1},
		{Name: "Barangay Certificate", IsCustom: true, Quantity: 1},
	}
	reqs := []models.RequestRequirement{
		{RequirementID: "req-1", RequirementName: "Clearance Form", FilePath: "uploads/a.pdf"},
	}

	err := repo.Create(context.Background(), req, docs, reqs)
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, req.ID, docs[0].RequestID)
	assert.Equal(t, req.ID, reqs[0].RequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequestRollbackOnDocumentFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO document_requests").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO request_documents").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.DocumentRequest{StudentID: "student-1"}, []models.RequestDocument{{Name: "Diploma"}}, nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotSplitsCustomDocuments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Now()
	reqRows := sqlmock.NewRows([]string{"id", "student_id", "status", "payment_status", "assigned_admin_id", "preferred_contact", "total_price", "remarks", "created_at", "updated_at"}).
		AddRow("req-1", "student-1", string(models.RequestStatusInProgress), true, sql.NullString{String: "admin-1", Valid: true}, string(models.ContactEmail), 200.0, nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM document_requests WHERE id").
		WithArgs("req-1").
		WillReturnRows(reqRows)

	docRows := sqlmock.NewRows([]string{"id", "request_id", "doc_id", "name", "cost", "quantity", "is_custom", "requires_payment_first", "is_done", "paid"}).
		AddRow("d1", "req-1", sql.NullString{String: "cat-1", Valid: true}, "Transcript of Records", 200.0, 1, false, true, true, true).
		AddRow("d2", "req-1", sql.NullString{}, "Barangay Certificate", 0.0, 1, true, false, false, false)
	mock.ExpectQuery("SELECT (.+) FROM request_documents WHERE request_id").
		WithArgs("req-1").
		WillReturnRows(docRows)

	snap, err := repo.Snapshot(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusInProgress, snap.Status)
	assert.True(t, snap.PaymentStatus)
	require.NotNil(t, snap.AssignedAdminID)
	require.Len(t, snap.Documents, 1)
	assert.True(t, snap.Documents[0].IsDone)
	require.Len(t, snap.OthersDocuments, 1)
	assert.Equal(t, "Barangay Certificate", snap.OthersDocuments[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveExcludesTerminalStatuses(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "status", "payment_status", "assigned_admin_id", "preferred_contact", "total_price", "remarks", "created_at", "updated_at"}).
		AddRow("req-1", "student-1", string(models.RequestStatusPending), false, nil, string(models.ContactEmail), 100.0, nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM document_requests WHERE student_id (.+) status NOT IN").
		WithArgs("student-1", string(models.RequestStatusReleased), string(models.RequestStatusRejected)).
		WillReturnRows(rows)

	reqs, err := repo.ListActiveByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, models.RequestStatusPending, reqs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusMissingRequest(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("UPDATE document_requests SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.RequestStatusInProgress)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleDocumentScopedToRequest(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("UPDATE request_documents SET is_done").
		WithArgs("req-1", "doc-1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ToggleDocument(context.Background(), "req-1", "doc-1", true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFilterByStatusAndAssignee(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "student_id", "status", "payment_status", "assigned_admin_id", "preferred_contact", "total_price", "remarks", "created_at", "updated_at"}).
		AddRow("req-1", "student-1", string(models.RequestStatusDocReady), false, sql.NullString{String: "admin-1", Valid: true}, string(models.ContactSMS), 150.0, nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM document_requests WHERE 1=1 AND status IN (.+) AND assigned_admin_id").
		WithArgs(string(models.RequestStatusDocReady), "admin-1").
		WillReturnRows(listRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(string(models.RequestStatusDocReady), "admin-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	reqs, total, err := repo.List(context.Background(), models.RequestFilter{
		Status:          []models.RequestStatus{models.RequestStatusDocReady},
		AssignedAdminID: "admin-1",
	})
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSearchMatchesTrackingAndStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "student_id", "status", "payment_status", "assigned_admin_id", "preferred_contact", "total_price", "remarks", "created_at", "updated_at"}).
		AddRow("req-1", "student-1", string(models.RequestStatusPending), false, nil, string(models.ContactEmail), 100.0, nil, now, now)
	mock.ExpectQuery(`SELECT (.+) FROM document_requests WHERE 1=1 AND \(id LIKE (.+) OR student_id IN \(SELECT id FROM users WHERE LOWER\(full_name\) LIKE (.+) OR student_number LIKE (.+)\)\)`).
		WithArgs("%maria%").
		WillReturnRows(listRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("%maria%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	reqs, total, err := repo.List(context.Background(), models.RequestFilter{Search: "Maria"})
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
