package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/registrar-docs-api/internal/dto"
	"github.com/noah-isme/registrar-docs-api/internal/models"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
)

type stubAdminRequestStore struct {
	requests map[string]*models.DocumentRequest
	docs     map[string][]models.RequestDocument
	reqs     map[string][]models.RequestRequirement
	statuses   map[string]models.RequestStatus
	assigned   map[string]string
	toggled    [][3]interface{}
	lastFilter models.RequestFilter
}

func newStubAdminRequestStore() *stubAdminRequestStore {
	return &stubAdminRequestStore{
		requests: map[string]*models.DocumentRequest{},
		docs:     map[string][]models.RequestDocument{},
		reqs:     map[string][]models.RequestRequirement{},
		statuses: map[string]models.RequestStatus{},
		assigned: map[string]string{},
	}
}

func (s *stubAdminRequestStore) FindByID(_ context.Context, id string) (*models.DocumentRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return req, nil
}

func (s *stubAdminRequestStore) Documents(_ context.Context, id string) ([]models.RequestDocument, error) {
	return s.docs[id], nil
}

func (s *stubAdminRequestStore) Requirements(_ context.Context, id string) ([]models.RequestRequirement, error) {
	return s.reqs[id], nil
}

func (s *stubAdminRequestStore) Snapshot(_ context.Context, id string) (*models.RequestSnapshot, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	snap := &models.RequestSnapshot{
		Status:          req.Status,
		PaymentStatus:   req.PaymentStatus,
		AssignedAdminID: req.AssignedAdminID,
	}
	for _, doc := range s.docs[id] {
		entry := models.SnapshotDocument{Name: doc.Name, IsDone: doc.IsDone}
		if doc.IsCustom {
			snap.OthersDocuments = append(snap.OthersDocuments, entry)
		} else {
			snap.Documents = append(snap.Documents, entry)
		}
	}
	return snap, nil
}

func (s *stubAdminRequestStore) List(_ context.Context, filter models.RequestFilter) ([]models.DocumentRequest, int, error) {
	s.lastFilter = filter
	var out []models.DocumentRequest
	for _, req := range s.requests {
		if len(filter.Status) > 0 && req.Status != filter.Status[0] {
			continue
		}
		out = append(out, *req)
	}
	return out, len(out), nil
}

func (s *stubAdminRequestStore) ListActiveByStudent(_ context.Context, studentID string) ([]models.DocumentRequest, error) {
	var out []models.DocumentRequest
	for _, req := range s.requests {
		if req.StudentID == studentID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (s *stubAdminRequestStore) UpdateStatus(_ context.Context, id string, status models.RequestStatus) error {
	req, ok := s.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	req.Status = status
	s.statuses[id] = status
	return nil
}

func (s *stubAdminRequestStore) Assign(_ context.Context, id, adminID string) error {
	req, ok := s.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	req.AssignedAdminID = &adminID
	s.assigned[id] = adminID
	return nil
}

func (s *stubAdminRequestStore) ToggleDocument(_ context.Context, requestID, documentID string, done bool) error {
	if _, ok := s.requests[requestID]; !ok {
		return sql.ErrNoRows
	}
	s.toggled = append(s.toggled, [3]interface{}{requestID, documentID, done})
	return nil
}

type stubUserStore struct {
	users map[string]*models.User
}

func (s *stubUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func adminActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func seededRequest(store *stubAdminRequestStore, status models.RequestStatus, paid bool, assigned bool) {
	req := &models.DocumentRequest{
		ID:               "req-1",
		StudentID:        "student-1",
		Status:           status,
		PaymentStatus:    paid,
		PreferredContact: models.ContactEmail,
		TotalPrice:       200,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	if assigned {
		adminID := "admin-1"
		req.AssignedAdminID = &adminID
	}
	store.requests["req-1"] = req
	store.docs["req-1"] = []models.RequestDocument{
		{ID: "d1", RequestID: "req-1", Name: "Transcript of Records", Quantity: 1, Cost: 200, IsDone: true},
	}
}

func requestFixture() (*RequestService, *stubAdminRequestStore, *stubAudit) {
	store := newStubAdminRequestStore()
	users := &stubUserStore{users: map[string]*models.User{
		"admin-1":   {ID: "admin-1", Role: models.RoleAdmin},
		"student-1": {ID: "student-1", FullName: "Maria Santos", Role: models.RoleStudent},
		"student-9": {ID: "student-9", Role: models.RoleStudent},
	}}
	audit := &stubAudit{}
	return NewRequestService(store, users, audit, nil), store, audit
}

func TestUpdateStatusValidTransition(t *testing.T) {
	svc, store, audit := requestFixture()
	seededRequest(store, models.RequestStatusPending, false, true)

	result, err := svc.UpdateStatus(context.Background(), "req-1", dto.UpdateStatusRequest{DisplayStatus: "Processing"}, adminActor())
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, models.RequestStatusInProgress, store.statuses["req-1"])

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionStatusChange, audit.logs[0].Action)
}

func TestUpdateStatusBlockedReturnsRestriction(t *testing.T) {
	svc, store, _ := requestFixture()
	seededRequest(store, models.RequestStatusDocReady, false, true)

	result, err := svc.UpdateStatus(context.Background(), "req-1", dto.UpdateStatusRequest{DisplayStatus: "Done"}, adminActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTransitionBlocked.Code, appErrors.FromError(err).Code)
	require.NotNil(t, result)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Reason, "unpaid")
	assert.NotEmpty(t, result.NextSteps)
	assert.Empty(t, store.statuses, "blocked transition must not persist")
}

func TestUpdateStatusUnassignedBlocked(t *testing.T) {
	svc, store, _ := requestFixture()
	seededRequest(store, models.RequestStatusPending, false, false)

	result, err := svc.UpdateStatus(context.Background(), "req-1", dto.UpdateStatusRequest{DisplayStatus: "Processing"}, adminActor())
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.Reason, "assigned")
}

func TestUpdateStatusUnknownRequest(t *testing.T) {
	svc, _, _ := requestFixture()

	_, err := svc.UpdateStatus(context.Background(), "missing", dto.UpdateStatusRequest{DisplayStatus: "Processing"}, adminActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListSplitsUnpaidFromReady(t *testing.T) {
	svc, store, _ := requestFixture()
	seededRequest(store, models.RequestStatusDocReady, false, true)

	unpaid, _, err := svc.List(context.Background(), dto.RequestFilter{DisplayStatus: "Unpaid", Limit: 10})
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, "Unpaid", unpaid[0].DisplayStatus)

	ready, _, err := svc.List(context.Background(), dto.RequestFilter{DisplayStatus: "Ready", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, ready, "unpaid requests are not Ready")
}

func TestListForwardsSearchToRepository(t *testing.T) {
	svc, store, _ := requestFixture()
	seededRequest(store, models.RequestStatusPending, false, true)

	_, _, err := svc.List(context.Background(), dto.RequestFilter{Search: "maria", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "maria", store.lastFilter.Search)
}

func TestListResolvesStudentName(t *testing.T) {
	svc, store, _ := requestFixture()
	seededRequest(store, models.RequestStatusPending, false, true)

	items, _, err := svc.List(context.Background(), dto.RequestFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Maria Santos", items[0].StudentName)

	view, err := svc.Get(context.Background(), "req-1", adminActor())
	require.NoError(t, err)
	assert.Equal(t, "Maria Santos", view.StudentName)
}

func TestAssignValidatesAdminRole(t *testing.T) {
	svc, store, _ := requestFixture()
	seededRequest(store, models.RequestStatusPending, false, false)

	err := svc.Assign(context.Background(), "req-1", dto.AssignRequest{AdminID: "student-9"}, adminActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = svc.Assign(context.Background(), "req-1", dto.AssignRequest{AdminID: "admin-1"}, adminActor())
	require.NoError(t, err)
	assert.Equal(t, "admin-1", store.assigned["req-1"])
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, store, _ := requestFixture()
	seededRequest(store, models.RequestStatusPending, false, false)

	_, err := svc.Get(context.Background(), "req-1", &models.JWTClaims{UserID: "student-2", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	view, err := svc.Get(context.Background(), "req-1", &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, "Pending", view.DisplayStatus)
	require.Len(t, view.Documents, 1)
}
