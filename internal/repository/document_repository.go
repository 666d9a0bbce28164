package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/registrar-docs-api/internal/models"
)

// DocumentRepository manages the catalog of offered documents and the named
// requirements they reference.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new instance of DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, name, cost, requires_payment_first, requirement_names, active, created_at, updated_at`

// ListActive returns the documents currently offered to requesters.
func (r *DocumentRepository) ListActive(ctx context.Context) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE active = TRUE ORDER BY name`
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query); err != nil {
		return nil, fmt.Errorf("list active documents: %w", err)
	}
	return docs, nil
}

// ListAll returns every catalog document including retired ones.
func (r *DocumentRepository) ListAll(ctx context.Context) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY name`
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// FindByID returns a catalog document by identifier.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 LIMIT 1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document by id: %w", err)
	}
	return &doc, nil
}

// Create inserts a new catalog document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	const query = `INSERT INTO documents (id, name, cost, requires_payment_first, requirement_names, active, created_at, updated_at) VALUES (:id, :name, :cost, :requires_payment_first, :requirement_names, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of a catalog document.
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE documents SET name = :name, cost = :cost, requires_payment_first = :requires_payment_first, requirement_names = :requirement_names, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// ListRequirements returns the requirement catalog.
func (r *DocumentRepository) ListRequirements(ctx context.Context) ([]models.Requirement, error) {
	const query = `SELECT id, name, created_at, updated_at FROM requirements ORDER BY name`
	var reqs []models.Requirement
	if err := r.db.SelectContext(ctx, &reqs, query); err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	return reqs, nil
}

// FindRequirementsByNames resolves requirement rows by their names. Documents
// reference requirements by name, so selection-time resolution tolerates
// catalog entries added after the document was defined.
func (r *DocumentRepository) FindRequirementsByNames(ctx context.Context, names []string) ([]models.Requirement, error) {
	if len(names) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, created_at, updated_at FROM requirements WHERE name IN (?) ORDER BY name`, names)
	if err != nil {
		return nil, fmt.Errorf("build requirements query: %w", err)
	}
	query = r.db.Rebind(query)
	var reqs []models.Requirement
	if err := r.db.SelectContext(ctx, &reqs, query, args...); err != nil {
		return nil, fmt.Errorf("find requirements by names: %w", err)
	}
	return reqs, nil
}

// CreateRequirement inserts a requirement catalog entry.
func (r *DocumentRepository) CreateRequirement(ctx context.Context, req *models.Requirement) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	const query = `INSERT INTO requirements (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create requirement: %w", err)
	}
	return nil
}
