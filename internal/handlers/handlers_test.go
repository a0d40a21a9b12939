package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dmis/internal/common"
	"dmis/internal/models"
	"dmis/internal/services"
	"dmis/pkg/errclass"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNeedsListService struct {
	mock.Mock
}

func (m *MockNeedsListService) CreateDraft(ctx context.Context, list *models.NeedsList, actorID uuid.UUID) error {
	return m.Called(ctx, list, actorID).Error(0)
}

func (m *MockNeedsListService) Transition(ctx context.Context, req services.TransitionRequest) (*models.NeedsList, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*models.NeedsList), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNeedsListService) AdjustQuantity(ctx context.Context, req services.AdjustQuantityRequest) (*models.NeedsListItem, int, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*models.NeedsListItem), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *MockNeedsListService) Get(ctx context.Context, id uuid.UUID) (*models.NeedsList, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.NeedsList), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNeedsListService) List(ctx context.Context, filters *models.NeedsListFilters) ([]*models.NeedsList, error) {
	args := m.Called(ctx, filters)
	if v := args.Get(0); v != nil {
		return v.([]*models.NeedsList), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNeedsListService) History(ctx context.Context, id uuid.UUID, limit, offset int) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, id, limit, offset)
	if v := args.Get(0); v != nil {
		return v.([]*models.AuditEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockFreshnessService struct {
	services.FreshnessService
	mock.Mock
}

func (m *MockFreshnessService) TriggerRefresh(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type MockPlanningService struct {
	mock.Mock
}

func (m *MockPlanningService) Run(ctx context.Context, req services.PlanningRequest) (*services.PlanningResult, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*services.PlanningResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func newRequest(method, target, body string, actor uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if actor != uuid.Nil {
		req = req.WithContext(common.WithUserID(req.Context(), actor))
	}
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) common.ErrorResponse {
	t.Helper()
	var body common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestTransitionNeedsList(t *testing.T) {
	actor := uuid.New()
	listID := uuid.New()

	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"approved", `{"action":"approve","expected_version":3}`, nil, http.StatusOK, ""},
		{"permission denied", `{"action":"approve","expected_version":3}`, errclass.ErrPermissionDenied, http.StatusForbidden, "E_PERMISSION_DENIED"},
		{"stale version", `{"action":"approve","expected_version":3}`, errclass.ErrVersionConflict, http.StatusConflict, "E_VERSION_CONFLICT"},
		{"missing reason", `{"action":"reject","expected_version":3}`, errclass.ErrReasonRequired, http.StatusUnprocessableEntity, "E_REASON_REQUIRED"},
		{"unknown action", `{"action":"archive","expected_version":3}`, errclass.ErrUnknownAction, http.StatusBadRequest, "E_UNKNOWN_ACTION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockNeedsListService{}
			var action TransitionBody
			require.NoError(t, json.Unmarshal([]byte(tt.body), &action))
			if tt.err != nil {
				svc.On("Transition", mock.Anything, mock.Anything).Return(nil, tt.err).Once()
			} else {
				svc.On("Transition", mock.Anything, services.TransitionRequest{
					ListID: listID, Action: action.Action, ActorID: actor, ExpectedVersion: 3,
				}).Return(&models.NeedsList{ID: listID, Status: models.StatusApproved, Version: 4}, nil).Once()
			}

			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(newRequest(http.MethodPost, "/", tt.body, actor), rec)
			c.SetParamNames("id")
			c.SetParamValues(listID.String())

			require.NoError(t, NewNeedsListHandlers(svc, nil).TransitionNeedsList(c))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decodeError(t, rec).Error.Code)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestTransitionNeedsList_RequiresVersionAndActor(t *testing.T) {
	svc := &MockNeedsListService{}
	h := NewNeedsListHandlers(svc, nil)
	e := echo.New()
	listID := uuid.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodPost, "/", `{"action":"submit"}`, uuid.New()), rec)
	c.SetParamNames("id")
	c.SetParamValues(listID.String())
	require.NoError(t, h.TransitionNeedsList(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	c = e.NewContext(newRequest(http.MethodPost, "/", `{"action":"submit","expected_version":1}`, uuid.Nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(listID.String())
	require.NoError(t, h.TransitionNeedsList(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	svc.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything)
}

func TestAdjustItem_ParsesDecimalQuantity(t *testing.T) {
	actor := uuid.New()
	listID, lineID := uuid.New(), uuid.New()
	svc := &MockNeedsListService{}
	svc.On("AdjustQuantity", mock.Anything, mock.MatchedBy(func(r services.AdjustQuantityRequest) bool {
		return r.ListID == listID && r.LineID == lineID && r.Quantity.Equal(decimal.RequireFromString("1250.5")) && r.Reason == "road cut"
	})).Return(&models.NeedsListItem{ID: lineID}, 5, nil).Once()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodPatch, "/", `{"expected_version":4,"quantity":"1250.5","reason":"road cut"}`, actor), rec)
	c.SetParamNames("id", "itemId")
	c.SetParamValues(listID.String(), lineID.String())

	require.NoError(t, NewNeedsListHandlers(svc, nil).AdjustItem(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":5`)
	svc.AssertExpectations(t)
}

func TestGetNeedsList_NotFound(t *testing.T) {
	svc := &MockNeedsListService{}
	id := uuid.New()
	svc.On("Get", mock.Anything, id).Return(nil, errclass.ErrNotFound.WithMessage("needs list not found")).Once()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodGet, "/", "", uuid.New()), rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	require.NoError(t, NewNeedsListHandlers(svc, nil).GetNeedsList(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "needs list not found", decodeError(t, rec).Error.Message)
}

func TestListNeedsLists_RejectsUnknownStatus(t *testing.T) {
	svc := &MockNeedsListService{}
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodGet, "/?status=archived", "", uuid.New()), rec)

	require.NoError(t, NewNeedsListHandlers(svc, nil).ListNeedsLists(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestRefreshFreshness_Accepted(t *testing.T) {
	svc := &MockFreshnessService{}
	svc.On("TriggerRefresh", mock.Anything).Return(false, nil).Once()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodPost, "/", "", uuid.New()), rec)

	require.NoError(t, NewFreshnessHandlers(svc).RefreshFreshness(c))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"scheduled":false,"already_pending":true}`, rec.Body.String())
}

func TestCreatePlanningRun(t *testing.T) {
	actor, eventID := uuid.New(), uuid.New()
	svc := &MockPlanningService{}
	svc.On("Run", mock.Anything, services.PlanningRequest{
		EventID: eventID, ActorID: actor, Trigger: services.TriggerManual,
	}).Return(&services.PlanningResult{EventID: eventID, LinesPlanned: 2}, nil).Once()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodPost, "/", `{"event_id":"`+eventID.String()+`"}`, actor), rec)

	require.NoError(t, NewPlanningHandlers(svc).CreatePlanningRun(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestReadinessCheck(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	require.NoError(t, NewHealthHandlers(stubPinger{}, nil, "test").ReadinessCheck(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"disabled"`)

	rec = httptest.NewRecorder()
	require.NoError(t, NewHealthHandlers(stubPinger{}, stubPinger{err: context.DeadlineExceeded}, "test").ReadinessCheck(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
