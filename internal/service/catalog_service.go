package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/registrar-docs-api/internal/dto"
	"github.com/noah-isme/registrar-docs-api/internal/models"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
)

type catalogStore interface {
	ListActive(ctx context.Context) ([]models.Document, error)
	ListAll(ctx context.Context) ([]models.Document, error)
	FindByID(ctx context.Context, id string) (*models.Document, error)
	Create(ctx context.Context, doc *models.Document) error
	Update(ctx context.Context, doc *models.Document) error
	ListRequirements(ctx context.Context) ([]models.Requirement, error)
	FindRequirementsByNames(ctx context.Context, names []string) ([]models.Requirement, error)
	CreateRequirement(ctx context.Context, req *models.Requirement) error
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const (
	catalogCacheKey = "catalog:documents:active"
	catalogCacheTTL = 5 * time.Minute
)

// CatalogService manages the document and requirement catalogs. The active
// document list is read on every wizard entry, so it is cached.
type CatalogService struct {
	repo      catalogStore
	cache     catalogCache
	audit     auditLogger
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(repo catalogStore, cache catalogCache, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CatalogService{repo: repo, cache: cache, audit: audit, metrics: metrics, validator: validate, logger: logger}
}

// ListOffered returns the active catalog, served from cache when possible.
func (s *CatalogService) ListOffered(ctx context.Context) ([]models.Document, error) {
	if s.cache != nil {
		var cached []models.Document
		if err := s.cache.Get(ctx, catalogCacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	docs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offered documents")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogCacheKey, docs, catalogCacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return docs, nil
}

// ListAll returns the full catalog including retired documents.
func (s *CatalogService) ListAll(ctx context.Context) ([]models.Document, error) {
	docs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// Get returns one catalog document.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return doc, nil
}

// Create registers a catalog document.
func (s *CatalogService) Create(ctx context.Context, req dto.CreateDocumentRequest, actor *models.JWTClaims) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}

	doc := &models.Document{
		Name:                 strings.TrimSpace(req.Name),
		Cost:                 req.Cost,
		RequiresPaymentFirst: req.RequiresPaymentFirst,
		RequirementNames:     pq.StringArray(req.Requirements),
		Active:               true,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document")
	}
	s.invalidate(ctx)
	s.emitAudit(ctx, actor, doc.ID, fmt.Sprintf(`{"name":%q,"action":"created"}`, doc.Name))
	return doc, nil
}

// Update applies partial changes to a catalog document.
func (s *CatalogService) Update(ctx context.Context, id string, req dto.UpdateDocumentRequest, actor *models.JWTClaims) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		doc.Name = strings.TrimSpace(*req.Name)
	}
	if req.Cost != nil {
		doc.Cost = *req.Cost
	}
	if req.RequiresPaymentFirst != nil {
		doc.RequiresPaymentFirst = *req.RequiresPaymentFirst
	}
	if req.Requirements != nil {
		doc.RequirementNames = pq.StringArray(req.Requirements)
	}
	if req.Active != nil {
		doc.Active = *req.Active
	}

	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document")
	}
	s.invalidate(ctx)
	s.emitAudit(ctx, actor, doc.ID, fmt.Sprintf(`{"name":%q,"action":"updated"}`, doc.Name))
	return doc, nil
}

// ListRequirements returns the requirement catalog.
func (s *CatalogService) ListRequirements(ctx context.Context) ([]models.Requirement, error) {
	reqs, err := s.repo.ListRequirements(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requirements")
	}
	return reqs, nil
}

// CreateRequirement registers a requirement catalog entry.
func (s *CatalogService) CreateRequirement(ctx context.Context, req dto.CreateRequirementRequest, actor *models.JWTClaims) (*models.Requirement, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid requirement payload")
	}

	requirement := &models.Requirement{Name: strings.TrimSpace(req.Name)}
	if err := s.repo.CreateRequirement(ctx, requirement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create requirement")
	}
	s.emitAudit(ctx, actor, requirement.ID, fmt.Sprintf(`{"requirement":%q,"action":"created"}`, requirement.Name))
	return requirement, nil
}

// ResolveRequirements returns the union of requirements referenced by the
// given documents, deduplicated by name. Documents reference requirements by
// name, so entries missing from the requirement catalog are skipped.
func (s *CatalogService) ResolveRequirements(ctx context.Context, docs []models.Document) ([]models.Requirement, error) {
	seen := make(map[string]struct{})
	var names []string
	for _, doc := range docs {
		for _, name := range doc.RequirementNames {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	reqs, err := s.repo.FindRequirementsByNames(ctx, names)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve requirements")
	}
	return reqs, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "catalog:documents:*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func (s *CatalogService) emitAudit(ctx context.Context, actor *models.JWTClaims, resourceID, payload string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionCatalogChange,
		Resource:   "catalog",
		ResourceID: &resourceID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record catalog audit log", zap.Error(err))
	}
}
