package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MS259/animal-report/internal/config"
	"github.com/MS259/animal-report/internal/models"
	"github.com/MS259/animal-report/internal/service"
	"github.com/MS259/animal-report/internal/service/mocks"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestHandler создает новый экземпляр Handler с мокированными сервисами
func newTestHandler(t *testing.T) (*mocks.MockReportService, *mocks.MockIncidentService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	reportService := mocks.NewMockReportService(ctrl)
	incidentService := mocks.NewMockIncidentService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		APIKeys:                []string{"test-api-key"},
		StatsTimeWindowMinutes: 60,
	}

	handler := NewHandler(reportService, incidentService, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return reportService, incidentService, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func f64(v float64) *float64 {
	return &v
}

func validReportRequest() CreateReportRequest {
	return CreateReportRequest{
		Type:      "dead",
		Latitude:  f64(51.5005),
		Longitude: f64(-0.1005),
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreateReport_Accepted(t *testing.T) {
	reportService, _, router := newTestHandler(t)
	reqBody := validReportRequest()
	incidentID := uuid.New()
	expectedReport := &models.Report{
		ID:             1,
		Type:           models.ReportTypeDead,
		Latitude:       *reqBody.Latitude,
		Longitude:      *reqBody.Longitude,
		EventTimestamp: reqBody.Timestamp,
		ReceivedAt:     time.Now(),
		Accepted:       true,
		IncidentID:     &incidentID,
	}
	expectedIncident := &models.Incident{
		ID:          incidentID,
		Type:        models.ReportTypeDead,
		Status:      models.IncidentStatusPending,
		CentroidLat: *reqBody.Latitude,
		CentroidLon: *reqBody.Longitude,
		ReportCount: 1,
	}

	reportService.EXPECT().
		Ingest(gomock.Any(), service.ReportInput{
			Type:           models.ReportTypeDead,
			Latitude:       *reqBody.Latitude,
			Longitude:      *reqBody.Longitude,
			EventTimestamp: reqBody.Timestamp,
		}, gomock.Any()).
		Return(expectedReport, expectedIncident, nil).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp IngestResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Report)
	assert.True(t, resp.Report.Accepted)
	require.NotNil(t, resp.Incident)
	assert.Equal(t, incidentID, resp.Incident.ID)
}

func TestCreateReport_Rejected(t *testing.T) {
	reportService, _, router := newTestHandler(t)
	reqBody := validReportRequest()
	rejectedReport := &models.Report{
		ID:           2,
		Type:         models.ReportTypeDead,
		Latitude:     *reqBody.Latitude,
		Longitude:    *reqBody.Longitude,
		Accepted:     false,
		RejectReason: models.RejectReasonThrottle,
	}

	reportService.EXPECT().
		Ingest(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(rejectedReport, nil, nil).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes))

	// Отклонение спам-фильтром - не ошибка, сообщение сохранено
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp IngestResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.False(t, resp.Report.Accepted)
	assert.Equal(t, "throttle", resp.Report.RejectReason)
	assert.Nil(t, resp.Incident)
}

func TestCreateReport_InvalidJSON(t *testing.T) {
	reportService, _, router := newTestHandler(t)

	reportService.EXPECT().Ingest(gomock.Any(), gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBufferString(`{"type": "dead"`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestCreateReport_ValidationError(t *testing.T) {
	reportService, _, router := newTestHandler(t)
	reqBody := validReportRequest()
	reqBody.Type = "lost" // Недопустимый тип

	reportService.EXPECT().Ingest(gomock.Any(), gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'Type' failed on the 'oneof' tag")
}

func TestCreateReport_ZeroCoordinatesAccepted(t *testing.T) {
	reportService, _, router := newTestHandler(t)
	reqBody := validReportRequest()
	reqBody.Latitude = f64(0)  // Экватор
	reqBody.Longitude = f64(0) // Нулевой меридиан

	reportService.EXPECT().
		Ingest(gomock.Any(), service.ReportInput{
			Type:           models.ReportTypeDead,
			Latitude:       0,
			Longitude:      0,
			EventTimestamp: reqBody.Timestamp,
		}, gomock.Any()).
		Return(&models.Report{ID: 3, Type: models.ReportTypeDead, Accepted: true}, &models.Incident{ID: uuid.New()}, nil).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateReport_MissingLatitude(t *testing.T) {
	reportService, _, router := newTestHandler(t)
	reqBody := validReportRequest()
	reqBody.Latitude = nil

	reportService.EXPECT().Ingest(gomock.Any(), gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'Latitude' failed on the 'required' tag")
}

func TestCreateReport_StoreUnavailable(t *testing.T) {
	reportService, _, router := newTestHandler(t)
	reqBody := validReportRequest()

	reportService.EXPECT().
		Ingest(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil, fmt.Errorf("%w: connection refused", service.ErrStoreUnavailable)).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "storage temporarily unavailable")
}

func TestListReports_Success(t *testing.T) {
	reportService, _, router := newTestHandler(t)
	expectedReports := []*models.Report{
		{ID: 1, Type: models.ReportTypeDead, Accepted: true},
		{ID: 2, Type: models.ReportTypeInjured, Accepted: false, RejectReason: models.RejectReasonDuplicateNearby},
	}

	reportService.EXPECT().ListReports(gomock.Any(), 50).Return(expectedReports, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/reports?limit=50", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []ReportResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Len(t, resp, 2)
	assert.Equal(t, "dead", resp[0].Type)
}

func TestListReports_ServiceError(t *testing.T) {
	reportService, _, router := newTestHandler(t)
	serviceError := errors.New("failed to list reports")

	reportService.EXPECT().ListReports(gomock.Any(), 100).Return(nil, serviceError).Times(1)

	w := makeRequest(router, "GET", "/api/v1/reports", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestGetIncident_Success(t *testing.T) {
	_, incidentService, router := newTestHandler(t)
	incidentID := uuid.New()
	expectedIncident := &models.Incident{
		ID:          incidentID,
		Type:        models.ReportTypeInjured,
		Status:      models.IncidentStatusConfirmed,
		CentroidLat: 51.5,
		CentroidLon: -0.1,
		ReportCount: 7,
	}

	incidentService.EXPECT().GetIncident(gomock.Any(), incidentID).Return(expectedIncident, nil).Times(1)

	w := makeRequest(router, "GET", fmt.Sprintf("/api/v1/incidents/%s", incidentID.String()), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, "confirmed", resp.Status)
	assert.Equal(t, 7, resp.ReportCount)
}

func TestGetIncident_InvalidID(t *testing.T) {
	_, incidentService, router := newTestHandler(t)

	incidentService.EXPECT().GetIncident(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "GET", "/api/v1/incidents/invalid-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid incident ID")
}

func TestGetIncident_NotFound(t *testing.T) {
	_, incidentService, router := newTestHandler(t)
	incidentID := uuid.New()

	incidentService.EXPECT().GetIncident(gomock.Any(), incidentID).Return(nil, service.ErrIncidentNotFound).Times(1)

	w := makeRequest(router, "GET", fmt.Sprintf("/api/v1/incidents/%s", incidentID.String()), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "incident not found")
}

func TestListIncidents_Success(t *testing.T) {
	_, incidentService, router := newTestHandler(t)
	expectedIncidents := []*models.Incident{
		{ID: uuid.New(), Type: models.ReportTypeDead, Status: models.IncidentStatusPending},
		{ID: uuid.New(), Type: models.ReportTypeInjured, Status: models.IncidentStatusConfirmed},
	}

	incidentService.EXPECT().ListIncidents(gomock.Any(), 1, 10).Return(expectedIncidents, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents?page=1&pageSize=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Len(t, resp, 2)
	assert.Equal(t, "pending", resp[0].Status)
}

func TestCloseIncident_Success(t *testing.T) {
	_, incidentService, router := newTestHandler(t)
	incidentID := uuid.New()

	incidentService.EXPECT().CloseIncident(gomock.Any(), incidentID).Return(nil).Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/incidents/%s/close", incidentID.String()), nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCloseIncident_Unauthorized(t *testing.T) {
	_, incidentService, router := newTestHandler(t)
	incidentID := uuid.New()

	incidentService.EXPECT().CloseIncident(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/incidents/%s/close", incidentID.String()), nil) // Нет API ключа

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "API key required")
}

func TestCloseIncident_AlreadyClosed(t *testing.T) {
	_, incidentService, router := newTestHandler(t)
	incidentID := uuid.New()

	incidentService.EXPECT().CloseIncident(gomock.Any(), incidentID).Return(service.ErrIncidentClosed).Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/incidents/%s/close", incidentID.String()), nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "incident already closed")
}

func TestCloseIncident_NotFound(t *testing.T) {
	_, incidentService, router := newTestHandler(t)
	incidentID := uuid.New()

	incidentService.EXPECT().CloseIncident(gomock.Any(), incidentID).Return(service.ErrIncidentNotFound).Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/incidents/%s/close", incidentID.String()), nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "incident not found")
}

func TestGetStats_Success(t *testing.T) {
	_, incidentService, router := newTestHandler(t)
	expectedStats := &service.Stats{
		WindowMinutes:       60,
		ReportCount:         42,
		UniqueReporterCount: 17,
		IncidentsByStatus: map[models.IncidentStatus]int{
			models.IncidentStatusPending:   3,
			models.IncidentStatusConfirmed: 2,
		},
	}

	incidentService.EXPECT().GetStats(gomock.Any()).Return(expectedStats, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/stats", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp StatsResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, 42, resp.ReportCount)
	assert.Equal(t, 17, resp.UniqueReporterCount)
	assert.Equal(t, 3, resp.IncidentsByStatus["pending"])
}

func TestGetStats_Unauthorized(t *testing.T) {
	_, incidentService, router := newTestHandler(t)

	incidentService.EXPECT().GetStats(gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/stats", nil, map[string]string{"X-API-Key": "wrong-key"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")
}

func TestHealthCheck_Success(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAPIKeyAuthMiddleware_BearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"Authorization": "Bearer valid-key"})
	assert.Equal(t, http.StatusOK, w.Code)
}
