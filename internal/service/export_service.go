package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/registrar-docs-api/internal/models"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
	"github.com/noah-isme/registrar-docs-api/pkg/export"
)

type exportRequestStore interface {
	FindByID(ctx context.Context, id string) (*models.DocumentRequest, error)
	Documents(ctx context.Context, requestID string) ([]models.RequestDocument, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.DocumentRequest, int, error)
}

type exportUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type stubTokenParser interface {
	Parse(token string, allowExpired bool) (requestID, relPath string, expiresAt time.Time, err error)
}

type claimStubRenderer interface {
	RenderClaimStub(stub export.ClaimStub) ([]byte, error)
}

type registryRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportService produces the claim stub PDF and the registry CSV export.
type ExportService struct {
	requests exportRequestStore
	users    exportUserStore
	parser   stubTokenParser
	pdf      claimStubRenderer
	csv      registryRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(requests exportRequestStore, users exportUserStore, parser stubTokenParser, pdf claimStubRenderer, csv registryRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{requests: requests, users: users, parser: parser, pdf: pdf, csv: csv, logger: logger}
}

// ClaimStub renders the claim stub for a submitted request. The token in the
// pre-signed URL is the sole authorization because submitting a request ends
// the requester's session.
func (s *ExportService) ClaimStub(ctx context.Context, requestID, token string) ([]byte, error) {
	if s.parser == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "stub signer unavailable")
	}
	signedID, _, _, err := s.parser.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	if signedID != requestID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}

	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	docs, err := s.requests.Documents(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request documents")
	}

	stub := export.ClaimStub{
		TrackingID:       req.ID,
		PreferredContact: string(req.PreferredContact),
		SubmittedAt:      req.CreatedAt,
		TotalPrice:       req.TotalPrice,
		PaymentStatus:    paymentLabel(req.PaymentStatus),
	}
	if student, err := s.users.FindByID(ctx, req.StudentID); err == nil {
		stub.StudentName = student.FullName
		if student.StudentNumber != nil {
			stub.StudentNumber = *student.StudentNumber
		}
	} else {
		s.logger.Warn("failed to resolve requester for claim stub", zap.String("request_id", requestID), zap.Error(err))
	}
	for _, doc := range docs {
		stub.Documents = append(stub.Documents, export.ClaimStubLine{
			Name:     doc.Name,
			Quantity: doc.Quantity,
			Cost:     doc.Cost,
			IsCustom: doc.IsCustom,
		})
	}

	rendered, err := s.pdf.RenderClaimStub(stub)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render claim stub")
	}
	return rendered, nil
}

// RegistryCSV exports the request registry for reporting.
func (s *ExportService) RegistryCSV(ctx context.Context, filter models.RequestFilter, actor *models.JWTClaims) ([]byte, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	reqs, _, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}

	dataset := export.Dataset{
		Headers: []string{"Tracking ID", "Student ID", "Status", "Paid", "Total", "Contact", "Created"},
	}
	for _, req := range reqs {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Tracking ID": req.ID,
			"Student ID":  req.StudentID,
			"Status":      models.ToDisplayStatus(req.Status, req.PaymentStatus),
			"Paid":        fmt.Sprintf("%t", req.PaymentStatus),
			"Total":       fmt.Sprintf("%.2f", req.TotalPrice),
			"Contact":     string(req.PreferredContact),
			"Created":     req.CreatedAt.Format(time.RFC3339),
		})
	}

	rendered, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render registry export")
	}
	return rendered, nil
}

func paymentLabel(paid bool) string {
	if paid {
		return "Paid"
	}
	return "Unpaid"
}
