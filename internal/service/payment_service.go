package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/registrar-docs-api/internal/dto"
	"github.com/noah-isme/registrar-docs-api/internal/models"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
	"github.com/noah-isme/registrar-docs-api/pkg/jobs"
	"github.com/noah-isme/registrar-docs-api/pkg/payment"
)

type paymentGateway interface {
	CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error)
	GetCheckout(ctx context.Context, sessionID string) (*payment.CheckoutSession, error)
}

type paymentStateStore interface {
	Load(ctx context.Context, studentID string) (*models.WizardState, error)
	Save(ctx context.Context, state *models.WizardState) error
	SavePreserved(ctx context.Context, studentID string, data *models.PreservedPaymentData) error
	LoadPreserved(ctx context.Context, studentID string) (*models.PreservedPaymentData, error)
	ClearPreserved(ctx context.Context, studentID string) error
}

type paymentRequestStore interface {
	FindByID(ctx context.Context, id string) (*models.DocumentRequest, error)
	MarkPaid(ctx context.Context, id string) error
	MarkDocumentPaid(ctx context.Context, requestID, documentID string) error
}

// PaymentServiceConfig tunes the confirmation poller.
type PaymentServiceConfig struct {
	ConfirmInterval time.Duration
	ConfirmAttempts int
}

// PaymentService handles checkout creation, the post-redirect recovery path,
// and over-the-counter payment marking. The gateway redirect is a full page
// navigation, so everything needed to resume is written to the durable
// snapshot before the checkout URL is handed out.
type PaymentService struct {
	gateway  paymentGateway
	states   paymentStateStore
	requests paymentRequestStore
	audit    auditLogger
	logger   *zap.Logger
	cfg      PaymentServiceConfig

	confirmations *jobs.Queue
}

// NewPaymentService constructs the service.
func NewPaymentService(gateway paymentGateway, states paymentStateStore, requests paymentRequestStore, audit auditLogger, logger *zap.Logger, cfg PaymentServiceConfig) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConfirmInterval <= 0 {
		cfg.ConfirmInterval = 5 * time.Second
	}
	if cfg.ConfirmAttempts <= 0 {
		cfg.ConfirmAttempts = 12
	}
	s := &PaymentService{
		gateway:  gateway,
		states:   states,
		requests: requests,
		audit:    audit,
		logger:   logger,
		cfg:      cfg,
	}
	s.confirmations = jobs.NewQueue("payment-confirmations", s.handleConfirmation, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.ConfirmAttempts,
		RetryDelay: cfg.ConfirmInterval,
		Logger:     logger,
	})
	return s
}

// StartConfirmations launches the background confirmation poller.
func (s *PaymentService) StartConfirmations(ctx context.Context) {
	s.confirmations.Start(ctx)
}

// StopConfirmations drains the poller.
func (s *PaymentService) StopConfirmations() {
	s.confirmations.Stop()
}

// StartCheckout opens a gateway session for the current wizard selection and
// preserves the payment snapshot before returning the hosted URL.
func (s *PaymentService) StartCheckout(ctx context.Context, studentID string) (*dto.CheckoutResponse, error) {
	state, err := s.states.Load(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load wizard state")
	}
	if state == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no submission in progress")
	}
	if state.Step != models.StepSummary {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("checkout is not available in step %s", state.Step))
	}
	if !state.RequiresPayment() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "selection does not require payment")
	}
	if state.PaymentCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment is already completed")
	}
	if state.TotalPrice <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to pay for")
	}

	trackingID := uuid.NewString()
	lineItems := make([]payment.LineItem, 0, len(state.SelectedDocs))
	for _, pick := range state.SelectedDocs {
		if pick.IsCustom {
			continue
		}
		lineItems = append(lineItems, payment.LineItem{
			Name:        pick.DocName,
			AmountCents: toCents(pick.Cost),
			Quantity:    pick.Quantity,
		})
	}

	session, err := s.gateway.CreateCheckout(ctx, payment.CheckoutRequest{
		TrackingID:  trackingID,
		Description: "Registrar document request fees",
		AmountCents: toCents(state.TotalPrice),
		LineItems:   lineItems,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create checkout session")
	}

	// snapshot first, then the aggregate; losing the snapshot is the only
	// unrecoverable failure once the requester leaves for the gateway
	if err := s.states.SavePreserved(ctx, studentID, &models.PreservedPaymentData{
		RequestID:  trackingID,
		Amount:     state.TotalPrice,
		Documents:  state.SelectedDocs,
		CheckoutID: session.ID,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to preserve payment data")
	}

	state.CheckoutID = session.ID
	if err := s.states.Save(ctx, state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save wizard state")
	}

	return &dto.CheckoutResponse{
		CheckoutID:  session.ID,
		CheckoutURL: session.CheckoutURL,
		Amount:      state.TotalPrice,
	}, nil
}

// HandleReturn resumes the wizard after the gateway redirect. A success
// outcome is verified against the gateway before the payment flag flips; a
// cancel or failure keeps the snapshot so the requester can retry without
// re-entering anything.
func (s *PaymentService) HandleReturn(ctx context.Context, studentID string, req dto.PaymentReturnRequest) (*dto.PaymentReturnResponse, error) {
	state, err := s.states.Load(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load wizard state")
	}
	if state == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no submission in progress")
	}

	preserved, err := s.states.LoadPreserved(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment snapshot")
	}
	if preserved == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no payment in progress")
	}
	if req.TrackingID != "" && req.TrackingID != preserved.RequestID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tracking id does not match the payment in progress")
	}

	resp := &dto.PaymentReturnResponse{Outcome: req.Outcome, Step: state.Step}

	switch req.Outcome {
	case payment.RedirectSuccess:
		session, err := s.gateway.GetCheckout(ctx, preserved.CheckoutID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify checkout")
		}
		if session.Status != payment.SessionPaid {
			// gateway settlement can lag the redirect; poll in the background
			s.enqueueConfirmation(studentID, preserved.CheckoutID)
			resp.Retained = true
			return resp, nil
		}
		state.PaymentCompleted = true
		if err := s.states.Save(ctx, state); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save wizard state")
		}
		if err := s.states.ClearPreserved(ctx, studentID); err != nil {
			s.logger.Warn("failed to clear payment snapshot", zap.Error(err))
		}
		resp.PaymentCompleted = true
		resp.Step = state.Step
		return resp, nil

	case payment.RedirectFailure:
		// the snapshot stays so the requester can retry from the summary
		resp.Retained = true
		return resp, nil

	case payment.RedirectCancel:
		// the snapshot stays untouched, only the abandoned session is dropped
		state.CheckoutID = ""
		if err := s.states.Save(ctx, state); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save wizard state")
		}
		resp.Retained = true
		return resp, nil

	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown payment outcome %q", req.Outcome))
	}
}

// MarkRequestPaid records an over-the-counter payment against a request.
func (s *PaymentService) MarkRequestPaid(ctx context.Context, requestID string, req dto.MarkPaidRequest, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if err := s.requests.MarkPaid(ctx, requestID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark request paid")
	}
	s.emitPaymentAudit(ctx, actor, requestID, fmt.Sprintf(`{"scope":"request","reference":%q}`, req.Reference))
	return nil
}

// MarkDocumentPaid records payment for a single document line.
func (s *PaymentService) MarkDocumentPaid(ctx context.Context, requestID, documentID string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.requests.MarkDocumentPaid(ctx, requestID, documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "request document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark document paid")
	}
	s.emitPaymentAudit(ctx, actor, requestID, fmt.Sprintf(`{"scope":"document","document_id":%q}`, documentID))
	return nil
}

type confirmationPayload struct {
	StudentID  string
	CheckoutID string
}

func (s *PaymentService) enqueueConfirmation(studentID, checkoutID string) {
	err := s.confirmations.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "confirm-checkout",
		Payload: confirmationPayload{StudentID: studentID, CheckoutID: checkoutID},
	})
	if err != nil {
		s.logger.Warn("failed to enqueue payment confirmation", zap.Error(err))
	}
}

// handleConfirmation polls the gateway for a settled session. Returning an
// error makes the queue retry after the configured delay, which gives the
// poller its interval and attempt cap.
func (s *PaymentService) handleConfirmation(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(confirmationPayload)
	if !ok {
		s.logger.Error("unexpected confirmation payload", zap.String("job_id", job.ID))
		return nil
	}

	session, err := s.gateway.GetCheckout(ctx, payload.CheckoutID)
	if err != nil {
		return err
	}
	if session.Status != payment.SessionPaid {
		return fmt.Errorf("checkout %s still %s", payload.CheckoutID, session.Status)
	}

	state, err := s.states.Load(ctx, payload.StudentID)
	if err != nil {
		return err
	}
	if state == nil || state.CheckoutID != payload.CheckoutID {
		// submission was abandoned or superseded, nothing to update
		return nil
	}
	state.PaymentCompleted = true
	if err := s.states.Save(ctx, state); err != nil {
		return err
	}
	if err := s.states.ClearPreserved(ctx, payload.StudentID); err != nil {
		s.logger.Warn("failed to clear payment snapshot", zap.Error(err))
	}
	s.logger.Info("checkout confirmed", zap.String("checkout_id", payload.CheckoutID))
	return nil
}

func (s *PaymentService) emitPaymentAudit(ctx context.Context, actor *models.JWTClaims, requestID, payload string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionPaymentMarked,
		Resource:   "request",
		ResourceID: &requestID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record payment audit log", zap.Error(err))
	}
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
