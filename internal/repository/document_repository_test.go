package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/registrar-docs-api/internal/models"
)

func TestListActiveDocuments(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "cost", "requires_payment_first", "requirement_names", "active", "created_at", "updated_at"}).
		AddRow("doc-1", "Transcript of Records", 200.0, true, `{"Clearance Form","Request Letter"}`, true, now, now)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE active = TRUE").
		WillReturnRows(rows)

	docs, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Transcript of Records", docs[0].Name)
	assert.Equal(t, []string{"Clearance Form", "Request Letter"}, []string(docs[0].RequirementNames))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindRequirementsByNames(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
		AddRow("req-1", "Clearance Form", now, now).
		AddRow("req-2", "Request Letter", now, now)
	mock.ExpectQuery("SELECT (.+) FROM requirements WHERE name IN").
		WithArgs("Clearance Form", "Request Letter").
		WillReturnRows(rows)

	reqs, err := repo.FindRequirementsByNames(context.Background(), []string{"Clearance Form", "Request Letter"})
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "req-1", reqs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindRequirementsByNamesEmpty(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	reqs, err := repo.FindRequirementsByNames(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, reqs)
}

func TestCreateDocument(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectExec("INSERT INTO documents").WillReturnResult(sqlmock.NewResult(1, 1))

	doc := &models.Document{Name: "Diploma", Cost: 500, Active: true}
	err := repo.Create(context.Background(), doc)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
