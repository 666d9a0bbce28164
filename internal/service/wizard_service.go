package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/registrar-docs-api/internal/dto"
	"github.com/noah-isme/registrar-docs-api/internal/models"
	"github.com/noah-isme/registrar-docs-api/internal/wizard"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
)

type wizardStateStore interface {
	Load(ctx context.Context, studentID string) (*models.WizardState, error)
	Save(ctx context.Context, state *models.WizardState) error
	Clear(ctx context.Context, studentID string) error
	ClearPreserved(ctx context.Context, studentID string) error
}

type wizardRequestStore interface {
	ListActiveByStudent(ctx context.Context, studentID string) ([]models.DocumentRequest, error)
	Create(ctx context.Context, req *models.DocumentRequest, docs []models.RequestDocument, reqs []models.RequestRequirement) error
}

type wizardCatalog interface {
	ListOffered(ctx context.Context) ([]models.Document, error)
	ResolveRequirements(ctx context.Context, docs []models.Document) ([]models.Requirement, error)
}

type wizardUploader interface {
	Store(upload RequirementUpload) (string, error)
	Remove(path string)
}

type sessionRevoker interface {
	RevokeAllSessions(ctx context.Context, userID string) error
}

type claimStubSigner interface {
	Generate(requestID, relPath string) (string, time.Time, error)
}

// WizardService orchestrates the multi-step submission flow. All cross-step
// data lives in the persisted aggregate; the service validates each step's
// payload, merges it into the aggregate, and only then moves the cursor.
type WizardService struct {
	states    wizardStateStore
	requests  wizardRequestStore
	catalog   wizardCatalog
	uploads   wizardUploader
	sessions  sessionRevoker
	signer    claimStubSigner
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	apiPrefix string
}

// NewWizardService constructs the orchestrator.
func NewWizardService(
	states wizardStateStore,
	requests wizardRequestStore,
	catalog wizardCatalog,
	uploads wizardUploader,
	sessions sessionRevoker,
	signer claimStubSigner,
	audit auditLogger,
	validate *validator.Validate,
	logger *zap.Logger,
	apiPrefix string,
) *WizardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	return &WizardService{
		states:    states,
		requests:  requests,
		catalog:   catalog,
		uploads:   uploads,
		sessions:  sessions,
		signer:    signer,
		audit:     audit,
		validator: validate,
		logger:    logger,
		apiPrefix: apiPrefix,
	}
}

// Start resumes an in-flight submission or begins a new one. A fresh session
// runs the entry guard: requesters with open requests land on the
// pending-requests branch instead of the document picker.
func (s *WizardService) Start(ctx context.Context, studentID string) (*dto.WizardStateResponse, error) {
	state, err := s.states.Load(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load wizard state")
	}
	if state != nil {
		return s.buildResponse(ctx, state, nil)
	}

	state = models.NewWizardState(studentID)
	active, err := s.requests.ListActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active requests")
	}

	event := wizard.EventAdvance
	if len(active) > 0 {
		event = wizard.EventActiveFound
	}
	if err := wizard.Reduce(state, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to initialise wizard")
	}
	if err := s.states.Save(ctx, state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save wizard state")
	}
	return s.buildResponse(ctx, state, active)
}

// State returns the current aggregate without moving the cursor.
func (s *WizardService) State(ctx context.Context, studentID string) (*dto.WizardStateResponse, error) {
	state, err := s.loadExisting(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, state, nil)
}

// Navigate applies a bare navigation event. Forward moves that require a step
// payload are rejected; their dedicated operations move the cursor themselves.
func (s *WizardService) Navigate(ctx context.Context, studentID string, req dto.NavigateRequest) (*dto.WizardStateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid navigation payload")
	}
	state, err := s.loadExisting(ctx, studentID)
	if err != nil {
		return nil, err
	}

	event := wizard.Event(req.Event)
	if event == wizard.EventAdvance {
		switch state.Step {
		case models.StepRequestList:
			// the request list is a confirmation screen, advancing is free
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("step %s requires its own submission to advance", state.Step))
		}
	}
	if err := wizard.Reduce(state, event); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := s.states.Save(ctx, state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save wizard state")
	}
	return s.buildResponse(ctx, state, nil)
}

// SelectDocuments records the document picks, recomputes the total, prunes
// uploads whose requirement is no longer needed, and advances to the request
// list. The selection is persisted before the cursor moves so a crash between
// the two never loses picks.
func (s *WizardService) SelectDocuments(ctx context.Context, studentID string, req dto.SelectDocumentsRequest) (*dto.WizardStateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document selection")
	}
	state, err := s.loadExisting(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if state.Step != models.StepDocuments && state.Step != models.StepRequestList {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("documents cannot be selected in step %s", state.Step))
	}

	offered, err := s.catalog.ListOffered(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Document, len(offered))
	for _, doc := range offered {
		byID[doc.ID] = doc
	}

	selected := make([]models.SelectedDocument, 0, len(req.Documents))
	for _, pick := range req.Documents {
		if pick.DocID != "" {
			doc, ok := byID[pick.DocID]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("document %s is not offered", pick.DocID))
			}
			selected = append(selected, models.SelectedDocument{
				DocID:                doc.ID,
				DocName:              doc.Name,
				Cost:                 doc.Cost,
				Quantity:             pick.Quantity,
				RequiresPaymentFirst: doc.RequiresPaymentFirst,
			})
			continue
		}
		name := strings.TrimSpace(pick.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "custom document needs a name")
		}
		selected = append(selected, models.SelectedDocument{
			DocID:    uuid.NewString(),
			DocName:  name,
			Quantity: pick.Quantity,
			IsCustom: true,
		})
	}

	state.SelectedDocs = selected
	state.RecomputeTotal()
	s.pruneObsoleteUploads(ctx, state, offered)

	if state.Step == models.StepDocuments {
		if err := wizard.Reduce(state, wizard.EventAdvance); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance wizard")
		}
	}
	if err := s.states.Save(ctx, state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save wizard state")
	}
	return s.buildResponse(ctx, state, nil)
}

// UploadRequirement stores one requirement file and merges it into the
// aggregate. Re-uploading a requirement replaces the previous file.
func (s *WizardService) UploadRequirement(ctx context.Context, studentID string, upload RequirementUpload) (*dto.WizardStateResponse, error) {
	state, err := s.loadExisting(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if state.Step != models.StepUploadRequirements {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("requirements cannot be uploaded in step %s", state.Step))
	}

	required, err := s.requiredRequirementNames(ctx, state)
	if err != nil {
		return nil, err
	}
	if _, needed := required[upload.Requirement]; !needed {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("requirement %q is not needed for this selection", upload.Requirement))
	}

	path, err := s.uploads.Store(upload)
	if err != nil {
		return nil, err
	}
	if previous, ok := state.Uploads[upload.Requirement]; ok && previous != path {
		s.uploads.Remove(previous)
	}
	state.Uploads[upload.Requirement] = path

	if err := s.states.Save(ctx, state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save wizard state")
	}
	return s.buildResponse(ctx, state, nil)
}

// RemoveUpload discards the stored file for one requirement so the student
// can upload a replacement or back out of it entirely.
func (s *WizardService) RemoveUpload(ctx context.Context, studentID, requirement string) (*dto.WizardStateResponse, error) {
	state, err := s.loadExisting(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if state.Step != models.StepUploadRequirements {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("requirements cannot be removed in step %s", state.Step))
	}

	path, ok := state.Uploads[requirement]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no upload recorded for requirement %q", requirement))
	}
	s.uploads.Remove(path)
	delete(state.Uploads, requirement)

	if err := s.states.Save(ctx, state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save wizard state")
	}
	return s.buildResponse(ctx, state, nil)
}

// CompleteUploads verifies every required requirement has a file and advances
// to the contact step.
func (s *WizardService) CompleteUploads(ctx context.Context, studentID string) (*dto.WizardStateResponse, error) {
	state, err := s.loadExisting(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if state.Step != models.StepUploadRequirements {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("uploads cannot be confirmed in step %s", state.Step))
	}

	required, err := s.requiredRequirementNames(ctx, state)
	if err != nil {
		return nil, err
	}
	var missing []string
	for name := range required {
		if _, ok := state.Uploads[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing requirements: "+strings.Join(missing, ", "))
	}

	if err := wizard.Reduce(state, wizard.EventAdvance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance wizard")
	}
	if err := s.states.Save(ctx, state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save wizard state")
	}
	return s.buildResponse(ctx, state, nil)
}

// SetPreferredContact records the notification channel and advances to the
// summary.
func (s *WizardService) SetPreferredContact(ctx context.Context, studentID string, req dto.PreferredContactRequest) (*dto.WizardStateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact payload")
	}
	if !models.ValidContactMethod(req.Method) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported contact method %q", req.Method))
	}
	state, err := s.loadExisting(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if state.Step != models.StepPreferredContact {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("contact cannot be set in step %s", state.Step))
	}

	state.PreferredContact = req.Method
	state.Remarks = strings.TrimSpace(req.Remarks)
	if err := wizard.Reduce(state, wizard.EventAdvance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance wizard")
	}
	if err := s.states.Save(ctx, state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save wizard state")
	}
	return s.buildResponse(ctx, state, nil)
}

// Submit finalizes the request. Payment must be settled when the selection
// demands it. On success the aggregate and the payment snapshot are cleared,
// every session is revoked, and a pre-signed claim stub URL is returned so
// the stub stays reachable after the session ends.
func (s *WizardService) Submit(ctx context.Context, studentID string) (*dto.SubmitResponse, error) {
	state, err := s.loadExisting(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if state.Step != models.StepSummary {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("submission is not available in step %s", state.Step))
	}
	if len(state.SelectedDocs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no documents selected")
	}
	if state.RequiresPayment() && !state.PaymentCompleted {
		return nil, appErrors.Clone(appErrors.ErrPaymentRequired, "payment must be completed before submitting")
	}
	if state.PreferredContact == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "preferred contact is required")
	}

	requirements, err := s.collectRequirements(ctx, state)
	if err != nil {
		return nil, err
	}

	var remarks *string
	if state.Remarks != "" {
		remarks = &state.Remarks
	}
	request := &models.DocumentRequest{
		StudentID:        studentID,
		Status:           models.RequestStatusPending,
		PaymentStatus:    state.PaymentCompleted,
		PreferredContact: state.PreferredContact,
		TotalPrice:       state.TotalPrice,
		Remarks:          remarks,
	}

	docs := make([]models.RequestDocument, 0, len(state.SelectedDocs))
	for _, pick := range state.SelectedDocs {
		line := models.RequestDocument{
			Name:                 pick.DocName,
			Cost:                 pick.Cost,
			Quantity:             pick.Quantity,
			IsCustom:             pick.IsCustom,
			RequiresPaymentFirst: pick.RequiresPaymentFirst,
			Paid:                 state.PaymentCompleted && !pick.IsCustom,
		}
		if !pick.IsCustom {
			id := pick.DocID
			line.DocID = &id
		}
		docs = append(docs, line)
	}

	if err := s.requests.Create(ctx, request, docs, requirements); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &studentID,
			Action:     models.AuditActionRequestSubmit,
			Resource:   "request",
			ResourceID: &request.ID,
			NewValues:  []byte(fmt.Sprintf(`{"documents":%d,"total":%.2f}`, len(docs), state.TotalPrice)),
		}); err != nil {
			s.logger.Warn("failed to record submit audit log", zap.Error(err))
		}
	}

	if err := s.states.Clear(ctx, studentID); err != nil {
		s.logger.Warn("failed to clear wizard state after submit", zap.Error(err))
	}
	if err := s.states.ClearPreserved(ctx, studentID); err != nil {
		s.logger.Warn("failed to clear payment snapshot after submit", zap.Error(err))
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeAllSessions(ctx, studentID); err != nil {
			s.logger.Warn("failed to revoke sessions after submit", zap.Error(err))
		}
	}

	claimStubURL := ""
	if s.signer != nil {
		token, _, err := s.signer.Generate(request.ID, "claim-stub")
		if err != nil {
			s.logger.Warn("failed to sign claim stub url", zap.Error(err))
		} else {
			claimStubURL = fmt.Sprintf("%s/requests/%s/claim-stub?token=%s", strings.TrimRight(s.apiPrefix, "/"), request.ID, token)
		}
	}

	return &dto.SubmitResponse{TrackingID: request.ID, ClaimStubURL: claimStubURL}, nil
}

// Abandon drops the in-flight submission, removing any stored uploads.
func (s *WizardService) Abandon(ctx context.Context, studentID string) error {
	state, err := s.states.Load(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load wizard state")
	}
	if state == nil {
		return nil
	}
	for _, path := range state.Uploads {
		s.uploads.Remove(path)
	}
	if err := s.states.Clear(ctx, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear wizard state")
	}
	if err := s.states.ClearPreserved(ctx, studentID); err != nil {
		s.logger.Warn("failed to clear payment snapshot on abandon", zap.Error(err))
	}
	return nil
}

func (s *WizardService) loadExisting(ctx context.Context, studentID string) (*models.WizardState, error) {
	state, err := s.states.Load(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load wizard state")
	}
	if state == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no submission in progress")
	}
	return state, nil
}

// requiredRequirementNames returns the union of requirement names referenced
// by the selected catalog documents. Custom documents carry none.
func (s *WizardService) requiredRequirementNames(ctx context.Context, state *models.WizardState) (map[string]struct{}, error) {
	offered, err := s.catalog.ListOffered(ctx)
	if err != nil {
		return nil, err
	}
	selected := make(map[string]struct{}, len(state.SelectedDocs))
	for _, pick := range state.SelectedDocs {
		if !pick.IsCustom {
			selected[pick.DocID] = struct{}{}
		}
	}
	required := make(map[string]struct{})
	for _, doc := range offered {
		if _, ok := selected[doc.ID]; !ok {
			continue
		}
		for _, name := range doc.RequirementNames {
			required[name] = struct{}{}
		}
	}
	return required, nil
}

// pruneObsoleteUploads removes uploads whose requirement no longer belongs to
// the selection. Pruning happens here, in sequence with the selection change,
// so a slow save can never race a cleanup pass.
func (s *WizardService) pruneObsoleteUploads(ctx context.Context, state *models.WizardState, offered []models.Document) {
	selected := make(map[string]struct{}, len(state.SelectedDocs))
	for _, pick := range state.SelectedDocs {
		if !pick.IsCustom {
			selected[pick.DocID] = struct{}{}
		}
	}
	required := make(map[string]struct{})
	for _, doc := range offered {
		if _, ok := selected[doc.ID]; !ok {
			continue
		}
		for _, name := range doc.RequirementNames {
			required[name] = struct{}{}
		}
	}
	for name, path := range state.Uploads {
		if _, still := required[name]; !still {
			s.uploads.Remove(path)
			delete(state.Uploads, name)
		}
	}
}

// collectRequirements resolves the uploaded files into persistable rows with
// requirement catalog identities.
func (s *WizardService) collectRequirements(ctx context.Context, state *models.WizardState) ([]models.RequestRequirement, error) {
	if len(state.Uploads) == 0 {
		return nil, nil
	}
	offered, err := s.catalog.ListOffered(ctx)
	if err != nil {
		return nil, err
	}
	selectedDocs := make([]models.Document, 0)
	selected := make(map[string]struct{}, len(state.SelectedDocs))
	for _, pick := range state.SelectedDocs {
		if !pick.IsCustom {
			selected[pick.DocID] = struct{}{}
		}
	}
	for _, doc := range offered {
		if _, ok := selected[doc.ID]; ok {
			selectedDocs = append(selectedDocs, doc)
		}
	}
	resolved, err := s.catalog.ResolveRequirements(ctx, selectedDocs)
	if err != nil {
		return nil, err
	}
	idByName := make(map[string]string, len(resolved))
	for _, req := range resolved {
		idByName[req.Name] = req.ID
	}

	names := make([]string, 0, len(state.Uploads))
	for name := range state.Uploads {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]models.RequestRequirement, 0, len(names))
	for _, name := range names {
		rows = append(rows, models.RequestRequirement{
			RequirementID:   idByName[name],
			RequirementName: name,
			FilePath:        state.Uploads[name],
		})
	}
	return rows, nil
}

func (s *WizardService) buildResponse(ctx context.Context, state *models.WizardState, active []models.DocumentRequest) (*dto.WizardStateResponse, error) {
	resp := &dto.WizardStateResponse{
		Step:             state.Step,
		SelectedDocs:     state.SelectedDocs,
		Uploads:          state.Uploads,
		PreferredContact: state.PreferredContact,
		TotalPrice:       state.TotalPrice,
		RequiresPayment:  state.RequiresPayment(),
		PaymentCompleted: state.PaymentCompleted,
	}

	if len(state.SelectedDocs) > 0 {
		required, err := s.requiredRequirementNames(ctx, state)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(required))
		for name := range required {
			names = append(names, name)
		}
		sort.Strings(names)
		resp.Requirements = names
	}

	if state.Step == models.StepPendingRequests {
		if active == nil {
			loaded, err := s.requests.ListActiveByStudent(ctx, state.StudentID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active requests")
			}
			active = loaded
		}
		for _, req := range active {
			resp.ActiveRequests = append(resp.ActiveRequests, dto.ActiveRequestSummary{
				TrackingID:    req.ID,
				DisplayStatus: models.ToDisplayStatus(req.Status, req.PaymentStatus),
				RequestedAt:   req.CreatedAt.Format(time.RFC3339),
			})
		}
	}
	return resp, nil
}
