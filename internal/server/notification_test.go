package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/resellhub/notify-engine/internal/config"
	notificationdomain "github.com/resellhub/notify-engine/internal/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotificationService struct {
	records map[string]*notificationdomain.Record

	updateErr error
}

func newFakeNotificationService() *fakeNotificationService {
	return &fakeNotificationService{records: map[string]*notificationdomain.Record{}}
}

func (f *fakeNotificationService) List(ctx context.Context, req notificationdomain.ListRequest) (notificationdomain.ListResponse, error) {
	resp := notificationdomain.ListResponse{Notifications: []*notificationdomain.Record{}}
	for _, record := range f.records {
		if req.Filter.Status != nil && record.Status != *req.Filter.Status {
			continue
		}
		resp.Notifications = append(resp.Notifications, record)
	}
	resp.PageInfo.TotalCount = int64(len(resp.Notifications))
	return resp, nil
}

func (f *fakeNotificationService) GetByID(ctx context.Context, id string) (*notificationdomain.Record, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, notificationdomain.ErrNotFound
	}
	return record, nil
}

func (f *fakeNotificationService) Update(ctx context.Context, id string, req notificationdomain.UpdateRequest) (*notificationdomain.Record, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	record, ok := f.records[id]
	if !ok {
		return nil, notificationdomain.ErrNotFound
	}
	if req.Subject != nil {
		record.Subject = *req.Subject
	}
	if req.Status != nil {
		record.Status = *req.Status
	}
	return record, nil
}

func (f *fakeNotificationService) Cancel(ctx context.Context, id string) (*notificationdomain.Record, error) {
	status := notificationdomain.StatusCancelled
	return f.Update(ctx, id, notificationdomain.UpdateRequest{Status: &status})
}

func (f *fakeNotificationService) Resume(ctx context.Context, id string) (*notificationdomain.Record, error) {
	status := notificationdomain.StatusPending
	return f.Update(ctx, id, notificationdomain.UpdateRequest{Status: &status})
}

func (f *fakeNotificationService) Delete(ctx context.Context, id string) error {
	if _, ok := f.records[id]; !ok {
		return notificationdomain.ErrNotFound
	}
	delete(f.records, id)
	return nil
}

func newTestServer(t *testing.T, svc notificationdomain.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := NewEngine(config.Config{})
	NewServer(ServerParams{
		Engine:          engine,
		Log:             zap.NewNop(),
		NotificationSvc: svc,
	})
	return engine
}

func TestGetNotification_NotFoundMapsTo404(t *testing.T) {
	engine := newTestServer(t, newFakeNotificationService())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/notifications/123", nil)
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.Error.Type)
}

func TestUpdateNotification_ImmutableMapsTo409(t *testing.T) {
	svc := newFakeNotificationService()
	svc.updateErr = notificationdomain.ErrImmutableRecord
	engine := newTestServer(t, svc)

	payload := bytes.NewBufferString(`{"subject":"late edit"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/v1/notifications/123", payload)
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateNotification_ConflictMapsTo409(t *testing.T) {
	svc := newFakeNotificationService()
	svc.updateErr = notificationdomain.ErrUpdateConflict
	engine := newTestServer(t, svc)

	payload := bytes.NewBufferString(`{"subject":"racing edit"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/v1/notifications/123", payload)
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "conflict", body.Error.Type)
}

func TestUpdateNotification_InvalidStatusMapsTo400(t *testing.T) {
	svc := newFakeNotificationService()
	svc.records["123"] = &notificationdomain.Record{Status: notificationdomain.StatusPending}
	engine := newTestServer(t, svc)

	payload := bytes.NewBufferString(`{"status":"NOT_A_STATUS"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/v1/notifications/123", payload)
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error.Type)
}

func TestCancelAndResumeNotification(t *testing.T) {
	svc := newFakeNotificationService()
	svc.records["123"] = &notificationdomain.Record{Status: notificationdomain.StatusPending}
	engine := newTestServer(t, svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications/123/cancel", nil)
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notificationdomain.StatusCancelled, svc.records["123"].Status)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/notifications/123/resume", nil)
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notificationdomain.StatusPending, svc.records["123"].Status)
}

func TestListNotifications_RejectsBadFilter(t *testing.T) {
	engine := newTestServer(t, newFakeNotificationService())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/notifications?status=BOGUS", nil)
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteNotification_Returns204(t *testing.T) {
	svc := newFakeNotificationService()
	svc.records["123"] = &notificationdomain.Record{Status: notificationdomain.StatusSent}
	engine := newTestServer(t, svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/notifications/123", nil)
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, svc.records)
}

func TestHealthEndpoint(t *testing.T) {
	engine := newTestServer(t, newFakeNotificationService())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
