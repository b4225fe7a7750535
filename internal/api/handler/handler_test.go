package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/service"
	pkgerrors "maint-engine/backend/pkg/errors"
	"maint-engine/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult *dto.TokenResponse
	loginErr    error
	logoutErr   error

	loggedOutJTI string
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Logout(_ context.Context, jti string, _ time.Time) error {
	m.loggedOutJTI = jti
	return m.logoutErr
}
func (m *mockAuthService) EnsureBootstrapAdmin(_ context.Context) error { return nil }

// ── Mock TechnicianService ──

type mockTechnicianService struct {
	getResult *dto.TechnicianResponse
	getErr    error
}

func (m *mockTechnicianService) Create(_ context.Context, _ service.Viewer, _ *dto.CreateTechnicianRequest) (*dto.TechnicianResponse, error) {
	return nil, nil
}
func (m *mockTechnicianService) Get(_ context.Context, _ string) (*dto.TechnicianResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockTechnicianService) List(_ context.Context) ([]dto.TechnicianResponse, error) {
	return nil, nil
}
func (m *mockTechnicianService) Update(_ context.Context, _ service.Viewer, _ string, _ *dto.UpdateTechnicianRequest) (*dto.TechnicianResponse, error) {
	return nil, nil
}
func (m *mockTechnicianService) Delete(_ context.Context, _ service.Viewer, _ string) error {
	return nil
}

// ── Mock WorkOrderService ──

type mockWorkOrderService struct {
	result *dto.WorkOrderResponse
	err    error

	gotViewer service.Viewer
	gotID     string
	gotStart  *dto.StartWorkOrderRequest
	gotSave   *dto.SaveWorkOrderRequest
}

func (m *mockWorkOrderService) record(v service.Viewer, id string) (*dto.WorkOrderResponse, error) {
	m.gotViewer, m.gotID = v, id
	return m.result, m.err
}

func (m *mockWorkOrderService) NextID(_ context.Context) (*dto.NextIDResponse, error) {
	return &dto.NextIDResponse{OrderID: "MA-25-0001"}, m.err
}
func (m *mockWorkOrderService) Create(_ context.Context, v service.Viewer, req *dto.SaveWorkOrderRequest) (*dto.WorkOrderResponse, error) {
	m.gotSave = req
	return m.record(v, req.OrderID)
}
func (m *mockWorkOrderService) Update(_ context.Context, v service.Viewer, id string, req *dto.SaveWorkOrderRequest) (*dto.WorkOrderResponse, error) {
	m.gotSave = req
	return m.record(v, id)
}
func (m *mockWorkOrderService) Get(_ context.Context, v service.Viewer, id string) (*dto.WorkOrderResponse, error) {
	return m.record(v, id)
}
func (m *mockWorkOrderService) List(_ context.Context, v service.Viewer, _ *dto.WorkOrderListRequest) (*dto.PageResponse[dto.WorkOrderResponse], error) {
	m.gotViewer = v
	return &dto.PageResponse[dto.WorkOrderResponse]{}, m.err
}
func (m *mockWorkOrderService) Delete(_ context.Context, v service.Viewer, id string) error {
	_, err := m.record(v, id)
	return err
}
func (m *mockWorkOrderService) Start(_ context.Context, v service.Viewer, id string, req *dto.StartWorkOrderRequest) (*dto.WorkOrderResponse, error) {
	m.gotStart = req
	return m.record(v, id)
}
func (m *mockWorkOrderService) Pause(_ context.Context, v service.Viewer, id string) (*dto.WorkOrderResponse, error) {
	return m.record(v, id)
}
func (m *mockWorkOrderService) Resume(_ context.Context, v service.Viewer, id string, req *dto.StartWorkOrderRequest) (*dto.WorkOrderResponse, error) {
	m.gotStart = req
	return m.record(v, id)
}
func (m *mockWorkOrderService) Complete(_ context.Context, v service.Viewer, id string) (*dto.WorkOrderResponse, error) {
	return m.record(v, id)
}
func (m *mockWorkOrderService) Cancel(_ context.Context, v service.Viewer, id string) (*dto.WorkOrderResponse, error) {
	return m.record(v, id)
}
func (m *mockWorkOrderService) UpdatePartsUsed(_ context.Context, v service.Viewer, id string, _ *dto.UpdatePartsUsedRequest) (*dto.WorkOrderResponse, error) {
	return m.record(v, id)
}
func (m *mockWorkOrderService) Board(_ context.Context, v service.Viewer) (*dto.BoardResponse, error) {
	m.gotViewer = v
	return &dto.BoardResponse{}, m.err
}
func (m *mockWorkOrderService) Assigned(_ context.Context, v service.Viewer) ([]dto.WorkOrderResponse, error) {
	m.gotViewer = v
	return nil, m.err
}

// ── Mock RequestService ──

type mockRequestService struct {
	convertResult *dto.WorkOrderResponse
	err           error
}

func (m *mockRequestService) Submit(_ context.Context, _ service.Viewer, _ *dto.SubmitServiceRequest) (*dto.ServiceRequestResponse, error) {
	return &dto.ServiceRequestResponse{RequestID: "SOL-0001"}, m.err
}
func (m *mockRequestService) Get(_ context.Context, _ service.Viewer, _ string) (*dto.ServiceRequestResponse, error) {
	return nil, m.err
}
func (m *mockRequestService) List(_ context.Context, _ service.Viewer) ([]dto.ServiceRequestResponse, error) {
	return nil, m.err
}
func (m *mockRequestService) Reject(_ context.Context, _ service.Viewer, _ string) (*dto.ServiceRequestResponse, error) {
	return nil, m.err
}
func (m *mockRequestService) Cancel(_ context.Context, _ service.Viewer, _ string) (*dto.ServiceRequestResponse, error) {
	return nil, m.err
}
func (m *mockRequestService) Convert(_ context.Context, _ service.Viewer, _ string, _ *dto.ConvertServiceRequest) (*dto.WorkOrderResponse, error) {
	return m.convertResult, m.err
}

// ── Mock ExportService / CalendarService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportCosts(_ context.Context, _ service.Viewer, _ *dto.PeriodRequest) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

type mockCalendarService struct {
	body string
	err  error
}

func (m *mockCalendarService) Export(_ context.Context, _ service.Viewer, _ *dto.PeriodRequest) (string, error) {
	return m.body, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func testViewer(username, role string) service.Viewer {
	return service.Viewer{Username: username, Role: role}
}

func setAuth(c *gin.Context) {
	c.Set("username", "ana")
	c.Set("role", model.RoleTechnician)
	c.Set("token_jti", "test-jti")
	c.Set("token_exp", time.Now().Add(15*time.Minute))
}

func withAuth(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func workOrderRouter(mock *mockWorkOrderService) *gin.Engine {
	h := NewWorkOrderHandler(mock, testViewer)
	r := gin.New()
	r.GET("/work-orders/:id", withAuth(h.Get))
	r.POST("/work-orders", withAuth(h.Create))
	r.POST("/work-orders/:id/start", withAuth(h.Start))
	r.POST("/work-orders/:id/complete", withAuth(h.Complete))
	r.POST("/work-orders/:id/pause", withAuth(h.Pause))
	r.GET("/work-orders/board", h.Board)
	return r
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{AccessToken: "test-access-token", ExpiresIn: 3600},
	}
	h := NewAuthHandler(mock, &mockTechnicianService{})

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := serve(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{Username: "ana", Password: "secret"}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockTechnicianService{})

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := serve(r, "POST", "/auth/login", strings.NewReader("invalid json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials}, &mockTechnicianService{})

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := serve(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{Username: "ana", Password: "wrong"}))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != codeInvalidCredential {
		t.Errorf("expected error code %d, got %d", codeInvalidCredential, resp.Code)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock, &mockTechnicianService{})

	r := gin.New()
	r.POST("/auth/logout", withAuth(h.Logout))
	r.POST("/anon/logout", h.Logout)

	if w := serve(r, "POST", "/auth/logout", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.loggedOutJTI != "test-jti" {
		t.Errorf("expected jti test-jti, got %q", mock.loggedOutJTI)
	}
	if w := serve(r, "POST", "/anon/logout", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	tech := &mockTechnicianService{getResult: &dto.TechnicianResponse{Username: "ana", Role: model.RoleTechnician}}
	h := NewAuthHandler(&mockAuthService{}, tech)

	r := gin.New()
	r.GET("/auth/me", withAuth(h.Me))
	r.GET("/anon/me", h.Me)

	if w := serve(r, "GET", "/auth/me", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w := serve(r, "GET", "/anon/me", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// WorkOrderHandler Tests
// ═══════════════════════════════════════════════════════════

func TestWorkOrderHandler_Start_PassesViewerAndManualStart(t *testing.T) {
	mock := &mockWorkOrderService{result: &dto.WorkOrderResponse{OrderID: "MA-25-0001", Status: model.WorkOrderStatusInProgress}}
	r := workOrderRouter(mock)

	manual := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	w := serve(r, "POST", "/work-orders/MA-25-0001/start", jsonBody(dto.StartWorkOrderRequest{ManualStart: &manual}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if mock.gotID != "MA-25-0001" || mock.gotViewer.Username != "ana" || mock.gotViewer.Role != model.RoleTechnician {
		t.Errorf("unexpected call: id=%s viewer=%+v", mock.gotID, mock.gotViewer)
	}
	if mock.gotStart == nil || mock.gotStart.ManualStart == nil || !mock.gotStart.ManualStart.Equal(manual) {
		t.Errorf("manual_start not forwarded: %+v", mock.gotStart)
	}
}

func TestWorkOrderHandler_Start_EmptyBody(t *testing.T) {
	mock := &mockWorkOrderService{result: &dto.WorkOrderResponse{OrderID: "MA-25-0001"}}
	r := workOrderRouter(mock)

	w := serve(r, "POST", "/work-orders/MA-25-0001/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.gotStart == nil || mock.gotStart.ManualStart != nil {
		t.Errorf("expected empty start request, got %+v", mock.gotStart)
	}
}

func TestWorkOrderHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		err        error
		wantStatus int
		wantCode   int
		wantDetail string
	}{
		{
			name: "库存不足", method: "POST", path: "/work-orders/MA-25-0001/complete",
			err:        &pkgerrors.InsufficientStockError{PartID: "P1", Stock: 1, Required: 3},
			wantStatus: http.StatusConflict, wantCode: codeInsufficientStock, wantDetail: "缺口 2",
		},
		{
			name: "状态不允许", method: "POST", path: "/work-orders/MA-25-0001/pause",
			err:        service.ErrInvalidTransition,
			wantStatus: http.StatusConflict, wantCode: codeInvalidTransition,
		},
		{
			name: "工单不存在", method: "GET", path: "/work-orders/MA-25-0404",
			err:        service.ErrWorkOrderNotFound,
			wantStatus: http.StatusNotFound, wantCode: codeNotFound,
		},
		{
			name: "引用不存在", method: "GET", path: "/work-orders/MA-25-0001",
			err:        pkgerrors.NewNotFound("machine", "M9"),
			wantStatus: http.StatusNotFound, wantCode: codeNotFound,
		},
		{
			name: "校验失败", method: "POST", path: "/work-orders/MA-25-0001/start",
			err:        pkgerrors.NewValidation("lead_technician", "开始作业前必须指定负责人"),
			wantStatus: http.StatusBadRequest, wantCode: codeValidation, wantDetail: "lead_technician",
		},
		{
			name: "未知错误", method: "GET", path: "/work-orders/MA-25-0001",
			err:        errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError, wantCode: 50000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := workOrderRouter(&mockWorkOrderService{err: tt.err})
			w := serve(r, tt.method, tt.path, nil)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			resp := parseResponse(w)
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
			if tt.wantDetail != "" && !strings.Contains(resp.Details, tt.wantDetail) {
				t.Errorf("expected details to contain %q, got %q", tt.wantDetail, resp.Details)
			}
		})
	}
}

func TestWorkOrderHandler_Create(t *testing.T) {
	mock := &mockWorkOrderService{result: &dto.WorkOrderResponse{OrderID: "MA-25-0002"}}
	r := workOrderRouter(mock)

	w := serve(r, "POST", "/work-orders", jsonBody(dto.SaveWorkOrderRequest{
		OrderID:   "MA-25-0002",
		MachineID: "M1",
		Type:      model.WorkOrderTypePreventive,
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if mock.gotSave == nil || mock.gotSave.MachineID != "M1" {
		t.Errorf("request not forwarded: %+v", mock.gotSave)
	}
}

func TestWorkOrderHandler_Create_BindingFailure(t *testing.T) {
	mock := &mockWorkOrderService{}
	r := workOrderRouter(mock)

	w := serve(r, "POST", "/work-orders", jsonBody(map[string]string{"order_id": "MA-25-0002", "type": "Emergency"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if mock.gotSave != nil {
		t.Error("service should not be called when binding fails")
	}
}

func TestWorkOrderHandler_Unauthenticated(t *testing.T) {
	r := workOrderRouter(&mockWorkOrderService{})
	if w := serve(r, "GET", "/work-orders/board", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// RequestHandler Tests
// ═══════════════════════════════════════════════════════════

func TestRequestHandler_Convert(t *testing.T) {
	body := dto.ConvertServiceRequest{LeadTechnician: "ana", FailureType: "Eléctrica"}

	t.Run("成功", func(t *testing.T) {
		h := NewRequestHandler(&mockRequestService{convertResult: &dto.WorkOrderResponse{OrderID: "MA-25-0005"}}, testViewer)
		r := gin.New()
		r.POST("/requests/:id/convert", withAuth(h.Convert))

		w := serve(r, "POST", "/requests/SOL-0001/convert", jsonBody(body))
		if w.Code != http.StatusCreated {
			t.Errorf("expected 201, got %d", w.Code)
		}
	})

	t.Run("已处理", func(t *testing.T) {
		h := NewRequestHandler(&mockRequestService{err: service.ErrRequestNotPending}, testViewer)
		r := gin.New()
		r.POST("/requests/:id/convert", withAuth(h.Convert))

		w := serve(r, "POST", "/requests/SOL-0001/convert", jsonBody(body))
		if w.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", w.Code)
		}
		if resp := parseResponse(w); resp.Code != codeRequestNotPending {
			t.Errorf("expected code %d, got %d", codeRequestNotPending, resp.Code)
		}
	})

	t.Run("缺少负责人", func(t *testing.T) {
		h := NewRequestHandler(&mockRequestService{}, testViewer)
		r := gin.New()
		r.POST("/requests/:id/convert", withAuth(h.Convert))

		w := serve(r, "POST", "/requests/SOL-0001/convert", jsonBody(map[string]string{"failure_type": "x"}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestRequestHandler_CancelForbidden(t *testing.T) {
	h := NewRequestHandler(&mockRequestService{err: service.ErrRequestForbidden}, testViewer)
	r := gin.New()
	r.POST("/requests/:id/cancel", withAuth(h.Cancel))

	if w := serve(r, "POST", "/requests/SOL-0001/cancel", nil); w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportCosts(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("xlsx-bytes"), filename: "costos-2025-03.xlsx"}
	h := NewExportHandler(mock, &mockCalendarService{}, testViewer)

	r := gin.New()
	r.GET("/export/costs", withAuth(h.ExportCosts))
	w := serve(r, "GET", "/export/costs?period=month&year=2025&month=3", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "costos-2025-03.xlsx") {
		t.Errorf("unexpected content disposition %q", cd)
	}
	if w.Body.String() != "xlsx-bytes" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestExportHandler_ExportCosts_Errors(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoOrders}, &mockCalendarService{}, testViewer)
	r := gin.New()
	r.GET("/export/costs", withAuth(h.ExportCosts))

	if w := serve(r, "GET", "/export/costs", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if w := serve(r, "GET", "/export/costs?period=decade", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid period, got %d", w.Code)
	}
}

func TestExportHandler_ExportCalendar(t *testing.T) {
	cal := &mockCalendarService{body: "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"}
	h := NewExportHandler(&mockExportService{}, cal, testViewer)

	r := gin.New()
	r.GET("/export/calendar.ics", withAuth(h.ExportCalendar))
	w := serve(r, "GET", "/export/calendar.ics?period=year&year=2025", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "maintenance-year.ics") {
		t.Errorf("unexpected content disposition %q", cd)
	}
}
