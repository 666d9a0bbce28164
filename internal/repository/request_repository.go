package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/registrar-docs-api/internal/models"
)

// RequestRepository persists document requests with their document lines and
// requirement uploads.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository creates a new instance of RequestRepository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `id, student_id, status, payment_status, assigned_admin_id, preferred_contact, total_price, remarks, created_at, updated_at`

// Create inserts a request together with its documents and requirements in a
// single transaction so a half-written request can never be observed.
func (r *RequestRepository) Create(ctx context.Context, req *models.DocumentRequest, docs []models.RequestDocument, reqs []models.RequestRequirement) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create request: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertRequest = `INSERT INTO document_requests (id, student_id, status, payment_status, assigned_admin_id, preferred_contact, total_price, remarks, created_at, updated_at) VALUES (:id, :student_id, :status, :payment_status, :assigned_admin_id, :preferred_contact, :total_price, :remarks, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertRequest, req); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	const insertDoc = `INSERT INTO request_documents (id, request_id, doc_id, name, cost, quantity, is_custom, requires_payment_first, is_done, paid) VALUES (:id, :request_id, :doc_id, :name, :cost, :quantity, :is_custom, :requires_payment_first, :is_done, :paid)`
	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = uuid.NewString()
		}
		docs[i].RequestID = req.ID
		if _, err := tx.NamedExecContext(ctx, insertDoc, docs[i]); err != nil {
			return fmt.Errorf("insert request document %s: %w", docs[i].Name, err)
		}
	}

	const insertReq = `INSERT INTO request_requirements (id, request_id, requirement_id, requirement_name, file_path) VALUES (:id, :request_id, :requirement_id, :requirement_name, :file_path)`
	for i := range reqs {
		if reqs[i].ID == "" {
			reqs[i].ID = uuid.NewString()
		}
		reqs[i].RequestID = req.ID
		if _, err := tx.NamedExecContext(ctx, insertReq, reqs[i]); err != nil {
			return fmt.Errorf("insert request requirement %s: %w", reqs[i].RequirementName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create request: %w", err)
	}
	return nil
}

// FindByID returns a request by its tracking identifier.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.DocumentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM document_requests WHERE id = $1 LIMIT 1`
	var req models.DocumentRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find request by id: %w", err)
	}
	return &req, nil
}

// Documents returns all document lines of a request.
func (r *RequestRepository) Documents(ctx context.Context, requestID string) ([]models.RequestDocument, error) {
	const query = `SELECT id, request_id, doc_id, name, cost, quantity, is_custom, requires_payment_first, is_done, paid FROM request_documents WHERE request_id = $1 ORDER BY name`
	var docs []models.RequestDocument
	if err := r.db.SelectContext(ctx, &docs, query, requestID); err != nil {
		return nil, fmt.Errorf("list request documents: %w", err)
	}
	return docs, nil
}

// Requirements returns the requirement uploads attached to a request.
func (r *RequestRepository) Requirements(ctx context.Context, requestID string) ([]models.RequestRequirement, error) {
	const query = `SELECT id, request_id, requirement_id, requirement_name, file_path FROM request_requirements WHERE request_id = $1 ORDER BY requirement_name`
	var reqs []models.RequestRequirement
	if err := r.db.SelectContext(ctx, &reqs, query, requestID); err != nil {
		return nil, fmt.Errorf("list request requirements: %w", err)
	}
	return reqs, nil
}

// Snapshot loads the projection the transition validator operates on. Catalog
// and custom document lines are split because completion rules treat them the
// same but the board renders them separately.
func (r *RequestRepository) Snapshot(ctx context.Context, requestID string) (*models.RequestSnapshot, error) {
	req, err := r.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	docs, err := r.Documents(ctx, requestID)
	if err != nil {
		return nil, err
	}

	snap := &models.RequestSnapshot{
		Status:          req.Status,
		PaymentStatus:   req.PaymentStatus,
		AssignedAdminID: req.AssignedAdminID,
	}
	for _, d := range docs {
		entry := models.SnapshotDocument{Name: d.Name, IsDone: d.IsDone}
		if d.IsCustom {
			snap.OthersDocuments = append(snap.OthersDocuments, entry)
		} else {
			snap.Documents = append(snap.Documents, entry)
		}
	}
	return snap, nil
}

// ListActiveByStudent returns the student's requests that have not reached a
// terminal state, used by the wizard entry guard.
func (r *RequestRepository) ListActiveByStudent(ctx context.Context, studentID string) ([]models.DocumentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM document_requests WHERE student_id = $1 AND status NOT IN ($2, $3) ORDER BY created_at DESC`
	var reqs []models.DocumentRequest
	if err := r.db.SelectContext(ctx, &reqs, query, studentID, models.RequestStatusReleased, models.RequestStatusRejected); err != nil {
		return nil, fmt.Errorf("list active requests: %w", err)
	}
	return reqs, nil
}

// List returns requests matching the filter with a total count.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.DocumentRequest, int, error) {
	baseQuery := `FROM document_requests WHERE 1=1`
	var conditions []string
	var args []interface{}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, s)
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.AssignedAdminID != "" {
		conditions = append(conditions, fmt.Sprintf("assigned_admin_id = $%d", len(args)+1))
		args = append(args, filter.AssignedAdminID)
	}
	if filter.Unassigned {
		conditions = append(conditions, "assigned_admin_id IS NULL")
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(id LIKE $%d OR student_id IN (SELECT id FROM users WHERE LOWER(full_name) LIKE $%d OR student_number LIKE $%d))", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", requestColumns, baseQuery, limit, offset)

	var reqs []models.DocumentRequest
	if err := r.db.SelectContext(ctx, &reqs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	return reqs, total, nil
}

// UpdateStatus moves a request to a new lifecycle status. The caller is
// expected to have validated the transition already.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, status models.RequestStatus) error {
	const query = `UPDATE document_requests SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Assign sets the handling admin for a request.
func (r *RequestRepository) Assign(ctx context.Context, id, adminID string) error {
	const query = `UPDATE document_requests SET assigned_admin_id = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, adminID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("assign request: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkPaid flips the request-level payment flag.
func (r *RequestRepository) MarkPaid(ctx context.Context, id string) error {
	const query = `UPDATE document_requests SET payment_status = TRUE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark request paid: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ToggleDocument sets the done flag on a document line.
func (r *RequestRepository) ToggleDocument(ctx context.Context, requestID, documentID string, done bool) error {
	const query = `UPDATE request_documents SET is_done = $3 WHERE id = $2 AND request_id = $1`
	res, err := r.db.ExecContext(ctx, query, requestID, documentID, done)
	if err != nil {
		return fmt.Errorf("toggle request document: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkDocumentPaid flips the paid flag on a document line.
func (r *RequestRepository) MarkDocumentPaid(ctx context.Context, requestID, documentID string) error {
	const query = `UPDATE request_documents SET paid = TRUE WHERE id = $2 AND request_id = $1`
	res, err := r.db.ExecContext(ctx, query, requestID, documentID)
	if err != nil {
		return fmt.Errorf("mark request document paid: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
