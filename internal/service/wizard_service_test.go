package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/registrar-docs-api/internal/dto"
	"github.com/noah-isme/registrar-docs-api/internal/models"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
)

type stubStateStore struct {
	states    map[string]*models.WizardState
	preserved map[string]*models.PreservedPaymentData
}

func newStubStateStore() *stubStateStore {
	return &stubStateStore{
		states:    map[string]*models.WizardState{},
		preserved: map[string]*models.PreservedPaymentData{},
	}
}

func (s *stubStateStore) Load(_ context.Context, studentID string) (*models.WizardState, error) {
	state, ok := s.states[studentID]
	if !ok {
		return nil, nil
	}
	copied := *state
	return &copied, nil
}

func (s *stubStateStore) Save(_ context.Context, state *models.WizardState) error {
	copied := *state
	s.states[state.StudentID] = &copied
	return nil
}

func (s *stubStateStore) Clear(_ context.Context, studentID string) error {
	delete(s.states, studentID)
	return nil
}

func (s *stubStateStore) SavePreserved(_ context.Context, studentID string, data *models.PreservedPaymentData) error {
	copied := *data
	s.preserved[studentID] = &copied
	return nil
}

func (s *stubStateStore) LoadPreserved(_ context.Context, studentID string) (*models.PreservedPaymentData, error) {
	data, ok := s.preserved[studentID]
	if !ok {
		return nil, nil
	}
	copied := *data
	return &copied, nil
}

func (s *stubStateStore) ClearPreserved(_ context.Context, studentID string) error {
	delete(s.preserved, studentID)
	return nil
}

type stubRequestStore struct {
	active  []models.DocumentRequest
	created *models.DocumentRequest
	docs    []models.RequestDocument
	reqs    []models.RequestRequirement
}

func (s *stubRequestStore) ListActiveByStudent(_ context.Context, _ string) ([]models.DocumentRequest, error) {
	return s.active, nil
}

func (s *stubRequestStore) Create(_ context.Context, req *models.DocumentRequest, docs []models.RequestDocument, reqs []models.RequestRequirement) error {
	req.ID = "req-created"
	s.created = req
	s.docs = docs
	s.reqs = reqs
	return nil
}

type stubCatalog struct {
	docs []models.Document
}

func (s *stubCatalog) ListOffered(_ context.Context) ([]models.Document, error) {
	return s.docs, nil
}

func (s *stubCatalog) ResolveRequirements(_ context.Context, docs []models.Document) ([]models.Requirement, error) {
	seen := map[string]struct{}{}
	var out []models.Requirement
	for _, doc := range docs {
		for _, name := range doc.RequirementNames {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, models.Requirement{ID: "id-" + name, Name: name})
		}
	}
	return out, nil
}

type stubUploader struct {
	stored  []string
	removed []string
}

func (s *stubUploader) Store(upload RequirementUpload) (string, error) {
	path := "uploads/" + upload.Requirement
	s.stored = append(s.stored, path)
	return path, nil
}

func (s *stubUploader) Remove(path string) {
	s.removed = append(s.removed, path)
}

type stubRevoker struct {
	revoked []string
}

func (s *stubRevoker) RevokeAllSessions(_ context.Context, userID string) error {
	s.revoked = append(s.revoked, userID)
	return nil
}

type stubSigner struct{}

func (stubSigner) Generate(requestID, relPath string) (string, time.Time, error) {
	return "signed-" + requestID, time.Now().Add(time.Hour), nil
}

type stubAudit struct {
	logs []models.AuditLog
}

func (s *stubAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, *log)
	return nil
}

func catalogFixture() []models.Document {
	return []models.Document{
		{ID: "doc-tor", Name: "Transcript of Records", Cost: 200, RequiresPaymentFirst: true, RequirementNames: []string{"Clearance Form", "Request Letter"}, Active: true},
		{ID: "doc-gmc", Name: "Good Moral Certificate", Cost: 50, RequirementNames: []string{"Request Letter"}, Active: true},
	}
}

type wizardFixture struct {
	svc      *WizardService
	states   *stubStateStore
	requests *stubRequestStore
	uploader *stubUploader
	revoker  *stubRevoker
	audit    *stubAudit
}

func newWizardFixture(active []models.DocumentRequest) *wizardFixture {
	f := &wizardFixture{
		states:   newStubStateStore(),
		requests: &stubRequestStore{active: active},
		uploader: &stubUploader{},
		revoker:  &stubRevoker{},
		audit:    &stubAudit{},
	}
	f.svc = NewWizardService(
		f.states,
		f.requests,
		&stubCatalog{docs: catalogFixture()},
		f.uploader,
		f.revoker,
		stubSigner{},
		f.audit,
		nil,
		nil,
		"/api/v1",
	)
	return f
}

func TestStartWithoutActiveRequests(t *testing.T) {
	f := newWizardFixture(nil)

	resp, err := f.svc.Start(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.StepDocuments, resp.Step)
	assert.Empty(t, resp.ActiveRequests)
}

func TestStartGuardRoutesToPendingBranch(t *testing.T) {
	f := newWizardFixture([]models.DocumentRequest{
		{ID: "req-1", Status: models.RequestStatusDocReady, PaymentStatus: false, CreatedAt: time.Now()},
	})

	resp, err := f.svc.Start(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.StepPendingRequests, resp.Step)
	require.Len(t, resp.ActiveRequests, 1)
	assert.Equal(t, "Unpaid", resp.ActiveRequests[0].DisplayStatus)

	// escape hatch into a fresh submission
	resp, err = f.svc.Navigate(context.Background(), "student-1", dto.NavigateRequest{Event: "createNewAnyway"})
	require.NoError(t, err)
	assert.Equal(t, models.StepDocuments, resp.Step)
}

func TestStartResumesExistingState(t *testing.T) {
	f := newWizardFixture(nil)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "student-1")
	require.NoError(t, err)
	_, err = f.svc.SelectDocuments(ctx, "student-1", dto.SelectDocumentsRequest{
		Documents: []dto.SelectedDocumentInput{{DocID: "doc-gmc", Quantity: 1}},
	})
	require.NoError(t, err)

	resp, err := f.svc.Start(ctx, "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.StepRequestList, resp.Step)
	require.Len(t, resp.SelectedDocs, 1)
}

func TestSelectDocumentsComputesTotalAndRequirements(t *testing.T) {
	f := newWizardFixture(nil)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "student-1")
	require.NoError(t, err)

	resp, err := f.svc.SelectDocuments(ctx, "student-1", dto.SelectDocumentsRequest{
		Documents: []dto.SelectedDocumentInput{
			{DocID: "doc-tor", Quantity: 2},
			{Name: "Barangay Certificate", Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StepRequestList, resp.Step)
	assert.Equal(t, float64(400), resp.TotalPrice, "custom documents are excluded from the total")
	assert.True(t, resp.RequiresPayment)
	assert.Equal(t, []string{"Clearance Form", "Request Letter"}, resp.Requirements)
}

func TestEmptySelectionBlocksAdvance(t *testing.T) {
	f := newWizardFixture(nil)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "student-1")
	require.NoError(t, err)

	_, err = f.svc.SelectDocuments(ctx, "student-1", dto.SelectDocumentsRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	resp, err := f.svc.State(ctx, "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.StepDocuments, resp.Step, "rejected selection must not move the cursor")
	assert.Empty(t, resp.SelectedDocs)
}

func TestSelectUnknownDocumentRejected(t *testing.T) {
	f := newWizardFixture(nil)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "student-1")
	require.NoError(t, err)

	_, err = f.svc.SelectDocuments(ctx, "student-1", dto.SelectDocumentsRequest{
		Documents: []dto.SelectedDocumentInput{{DocID: "doc-nope", Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestShrinkingSelectionPrunesUploads(t *testing.T) {
	f := newWizardFixture(nil)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "student-1")
	require.NoError(t, err)
	_, err = f.svc.SelectDocuments(ctx, "student-1", dto.SelectDocumentsRequest{
		Documents: []dto.SelectedDocumentInput{{DocID: "doc-tor", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.svc.Navigate(ctx, "student-1", dto.NavigateRequest{Event: "advance"})
	require.NoError(t, err)

	_, err = f.svc.UploadRequirement(ctx, "student-1", RequirementUpload{
		Requirement: "Clearance Form", Filename: "c.pdf", Size: 10, MimeType: "application/pdf", Content: bytes.NewReader([]byte("pdf")),
	})
	require.NoError(t, err)
	_, err = f.svc.UploadRequirement(ctx, "student-1", RequirementUpload{
		Requirement: "Request Letter", Filename: "l.pdf", Size: 10, MimeType: "application/pdf", Content: bytes.NewReader([]byte("pdf")),
	})
	require.NoError(t, err)

	// back to the picker, drop the transcript for the cheaper certificate
	_, err = f.svc.Navigate(ctx, "student-1", dto.NavigateRequest{Event: "back"})
	require.NoError(t, err)
	resp, err := f.svc.SelectDocuments(ctx, "student-1", dto.SelectDocumentsRequest{
		Documents: []dto.SelectedDocumentInput{{DocID: "doc-gmc", Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Contains(t, f.uploader.removed, "uploads/Clearance Form")
	assert.NotContains(t, resp.Uploads, "Clearance Form")
	assert.Contains(t, resp.Uploads, "Request Letter", "shared requirement survives the shrink")
}

func TestUploadReplacesPreviousFile(t *testing.T) {
	f := newWizardFixture(nil)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "student-1")
	require.NoError(t, err)
	_, err = f.svc.SelectDocuments(ctx, "student-1", dto.SelectDocumentsRequest{
		Documents: []dto.SelectedDocumentInput{{DocID: "doc-gmc", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.svc.Navigate(ctx, "student-1", dto.NavigateRequest{Event: "advance"})
	require.NoError(t, err)

	upload := RequirementUpload{Requirement: "Request Letter", Filename: "l.pdf", Size: 10, MimeType: "application/pdf", Content: bytes.NewReader([]byte("pdf"))}
	_, err = f.svc.UploadRequirement(ctx, "student-1", upload)
	require.NoError(t, err)
	_, err = f.svc.UploadRequirement(ctx, "student-1", upload)
	require.NoError(t, err)

	assert.Len(t, f.uploader.stored, 2)
}

func TestRemoveUploadDiscardsStoredFile(t *testing.T) {
	f := newWizardFixture(nil)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "student-1")
	require.NoError(t, err)
	_, err = f.svc.SelectDocuments(ctx, "student-1", dto.SelectDocumentsRequest{
		Documents: []dto.SelectedDocumentInput{{DocID: "doc-gmc", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.svc.Navigate(ctx, "student-1", dto.NavigateRequest{Event: "advance"})
	require.NoError(t, err)

	_, err = f.svc.UploadRequirement(ctx, "student-1", RequirementUpload{
		Requirement: "Request Letter", Filename: "l.pdf", Size: 10, MimeType: "application/pdf", Content: bytes.NewReader([]byte("pdf")),
	})
	require.NoError(t, err)

	resp, err := f.svc.RemoveUpload(ctx, "student-1", "Request Letter")
	require.NoError(t, err)
	assert.NotContains(t, resp.Uploads, "Request Letter")
	assert.Contains(t, f.uploader.removed, "uploads/Request Letter")

	_, err = f.svc.RemoveUpload(ctx, "student-1", "Request Letter")
	require.Error(t, err)
}

func TestUploadUnneededRequirementRejected(t *testing.T) {
	f := newWizardFixture(nil)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "student-1")
	require.NoError(t, err)
	_, err = f.svc.SelectDocuments(ctx, "student-1", dto.SelectDocumentsRequest{
		Documents: []dto.SelectedDocumentInput{{DocID: "doc-gmc", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.svc.Navigate(ctx, "student-1", dto.NavigateRequest{Event: "advance"})
	require.NoError(t, err)

	_, err = f.svc.UploadRequirement(ctx, "student-1", RequirementUpload{
		Requirement: "Clearance Form", Filename: "c.pdf", Size: 10, MimeType: "application/pdf", Content: bytes.NewReader([]byte("pdf")),
	})
	require.Error(t, err)
}

func TestCompleteUploadsListsMissing(t *testing.T) {
	f := newWizardFixture(nil)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "student-1")
	require.NoError(t, err)
	_, err = f.svc.SelectDocuments(ctx, "student-1", dto.SelectDocumentsRequest{
		Documents: []dto.SelectedDocumentInput{{DocID: "doc-tor", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.svc.Navigate(ctx, "student-1", dto.NavigateRequest{Event: "advance"})
	require.NoError(t, err)

	_, err = f.svc.CompleteUploads(ctx, "student-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Clearance Form")
	assert.Contains(t, err.Error(), "Request Letter")
}

func advanceToSummary(t *testing.T, f *wizardFixture, docID string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Start(ctx, "student-1")
	require.NoError(t, err)
	_, err = f.svc.SelectDocuments(ctx, "student-1", dto.SelectDocumentsRequest{
		Documents: []dto.SelectedDocumentInput{{DocID: docID, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.svc.Navigate(ctx, "student-1", dto.NavigateRequest{Event: "advance"})
	require.NoError(t, err)

	doc := catalogFixture()[0]
	if docID == "doc-gmc" {
		doc = catalogFixture()[1]
	}
	for _, name := range doc.RequirementNames {
		_, err = f.svc.UploadRequirement(ctx, "student-1", RequirementUpload{
			Requirement: name, Filename: "f.pdf", Size: 10, MimeType: "application/pdf", Content: bytes.NewReader([]byte("pdf")),
		})
		require.NoError(t, err)
	}
	_, err = f.svc.CompleteUploads(ctx, "student-1")
	require.NoError(t, err)
	resp, err := f.svc.SetPreferredContact(ctx, "student-1", dto.PreferredContactRequest{Method: models.ContactEmail})
	require.NoError(t, err)
	require.Equal(t, models.StepSummary, resp.Step)
}

func TestSubmitBlockedUntilPaid(t *testing.T) {
	f := newWizardFixture(nil)
	advanceToSummary(t, f, "doc-tor")

	_, err := f.svc.Submit(context.Background(), "student-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPaymentRequired.Code, appErrors.FromError(err).Code)
}

func TestSubmitCreatesRequestAndEndsSession(t *testing.T) {
	f := newWizardFixture(nil)
	advanceToSummary(t, f, "doc-gmc")
	ctx := context.Background()

	resp, err := f.svc.Submit(ctx, "student-1")
	require.NoError(t, err)
	assert.Equal(t, "req-created", resp.TrackingID)
	assert.Contains(t, resp.ClaimStubURL, "/api/v1/requests/req-created/claim-stub?token=signed-req-created")

	require.NotNil(t, f.requests.created)
	assert.Equal(t, models.RequestStatusPending, f.requests.created.Status)
	assert.Equal(t, models.ContactEmail, f.requests.created.PreferredContact)
	require.Len(t, f.requests.docs, 1)
	require.Len(t, f.requests.reqs, 1)
	assert.Equal(t, "id-Request Letter", f.requests.reqs[0].RequirementID)

	assert.Contains(t, f.revoker.revoked, "student-1")
	state, err := f.states.Load(ctx, "student-1")
	require.NoError(t, err)
	assert.Nil(t, state, "wizard state cleared after submit")

	var actions []string
	for _, log := range f.audit.logs {
		actions = append(actions, log.Action)
	}
	assert.Contains(t, actions, models.AuditActionRequestSubmit)
}

func TestSubmitWithPaymentCompleted(t *testing.T) {
	f := newWizardFixture(nil)
	advanceToSummary(t, f, "doc-tor")
	ctx := context.Background()

	state, err := f.states.Load(ctx, "student-1")
	require.NoError(t, err)
	state.PaymentCompleted = true
	require.NoError(t, f.states.Save(ctx, state))

	_, err = f.svc.Submit(ctx, "student-1")
	require.NoError(t, err)
	assert.True(t, f.requests.created.PaymentStatus)
	require.Len(t, f.requests.docs, 1)
	assert.True(t, f.requests.docs[0].Paid)
}

func TestAbandonRemovesUploads(t *testing.T) {
	f := newWizardFixture(nil)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "student-1")
	require.NoError(t, err)
	_, err = f.svc.SelectDocuments(ctx, "student-1", dto.SelectDocumentsRequest{
		Documents: []dto.SelectedDocumentInput{{DocID: "doc-gmc", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.svc.Navigate(ctx, "student-1", dto.NavigateRequest{Event: "advance"})
	require.NoError(t, err)
	_, err = f.svc.UploadRequirement(ctx, "student-1", RequirementUpload{
		Requirement: "Request Letter", Filename: "l.pdf", Size: 10, MimeType: "application/pdf", Content: bytes.NewReader([]byte("pdf")),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Abandon(ctx, "student-1"))
	assert.Contains(t, f.uploader.removed, "uploads/Request Letter")

	state, err := f.states.Load(ctx, "student-1")
	require.NoError(t, err)
	assert.Nil(t, state)
}
