package callsHandler

import (
	"ProjectIVR/internal/api/calls"
	"ProjectIVR/internal/entity"
	"ProjectIVR/internal/exporter"
	"ProjectIVR/internal/middleware"
	jwtPkg "ProjectIVR/pkg/jwt"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

type fakeCallsService struct {
	calls       map[string]calls.CallResponse
	lastQuery   calls.ListCallsQuery
	updated     string
	statsErr    error
	updateCalls int
}

func (f *fakeCallsService) ListCalls(_ context.Context, q calls.ListCallsQuery) (calls.ListCallsResponse, error) {
	f.lastQuery = q
	res := calls.ListCallsResponse{Page: q.Page, Limit: q.Limit}
	for _, c := range f.calls {
		res.Calls = append(res.Calls, c)
	}
	res.Total = len(res.Calls)
	return res, nil
}

func (f *fakeCallsService) GetCall(_ context.Context, id string) (calls.CallResponse, error) {
	c, ok := f.calls[id]
	if !ok {
		return calls.CallResponse{}, calls.ErrCallRecordNotFound
	}
	return c, nil
}

func (f *fakeCallsService) UpdateStatus(_ context.Context, id string, req calls.UpdateStatusRequest) (calls.UpdateStatusResponse, error) {
	f.updateCalls++
	if _, ok := f.calls[id]; !ok {
		return calls.UpdateStatusResponse{}, calls.ErrCallRecordNotFound
	}
	f.updated = req.Status
	return calls.UpdateStatusResponse{ID: id, Status: req.Status}, nil
}

func (f *fakeCallsService) GetStats(context.Context) (entity.CallStats, error) {
	if f.statsErr != nil {
		return entity.CallStats{}, f.statsErr
	}
	return entity.CallStats{Total: len(f.calls)}, nil
}

func (f *fakeCallsService) SaveCall(context.Context, entity.CallRecord) error { return nil }

func (f *fakeCallsService) ExportableConsents(context.Context) ([]entity.ConsentRecord, error) {
	return nil, nil
}

type fakeExporter struct {
	result exporter.Result
	err    error
}

func (f fakeExporter) Run(context.Context) (exporter.Result, error) {
	return f.result, f.err
}

func newTestApp(t *testing.T, svc *fakeCallsService, exp ExportRunner) *fiber.App {
	t.Helper()
	t.Setenv(jwtPkg.AccessTokenSecret, "")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := fiber.New(fiber.Config{StrictRouting: true, CaseSensitive: true})
	h := New(logger, validator.New(), middleware.New(logger), svc, exp, nil)
	h.Start(app.Group("/api/v1"))
	return app
}

func seeded() *fakeCallsService {
	return &fakeCallsService{calls: map[string]calls.CallResponse{
		"01HZX": {ID: "01HZX", CallSid: "CA1", Priority: "High", Status: "new"},
	}}
}

func TestGetCall(t *testing.T) {
	app := newTestApp(t, seeded(), nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/calls/01HZX", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got calls.CallResponse
	if err := jsoniter.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CallSid != "CA1" || got.Priority != "High" {
		t.Fatalf("got %+v", got)
	}
}

func TestGetCallNotFound(t *testing.T) {
	app := newTestApp(t, seeded(), nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/calls/missing", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListCallsValidatesLimit(t *testing.T) {
	svc := seeded()
	app := newTestApp(t, svc, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/calls?limit=500", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/calls?page=2&limit=10", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if svc.lastQuery.Page != 2 || svc.lastQuery.Limit != 10 {
		t.Fatalf("query = %+v", svc.lastQuery)
	}
}

func TestUpdateStatus(t *testing.T) {
	svc := seeded()
	app := newTestApp(t, svc, nil)

	req := httptest.NewRequest("PUT", "/api/v1/calls/01HZX/status", strings.NewReader(`{"status":"resolved"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK || svc.updated != "resolved" {
		t.Fatalf("status = %d, updated = %q", resp.StatusCode, svc.updated)
	}
}

func TestUpdateStatusRejectsMissingStatus(t *testing.T) {
	svc := seeded()
	app := newTestApp(t, svc, nil)

	req := httptest.NewRequest("PUT", "/api/v1/calls/01HZX/status", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if svc.updateCalls != 0 {
		t.Fatalf("service called %d times", svc.updateCalls)
	}
}

func TestGetStatsUnexpectedError(t *testing.T) {
	svc := seeded()
	svc.statsErr = errors.New("connection reset")
	app := newTestApp(t, svc, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/calls/stats", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestRunExport(t *testing.T) {
	tests := []struct {
		name   string
		exp    ExportRunner
		status int
	}{
		{"written", fakeExporter{result: exporter.Result{Path: "/tmp/consent_data_20240309_140506.txt", Records: 2}}, fiber.StatusCreated},
		{"nothing eligible", fakeExporter{}, fiber.StatusNoContent},
		{"not configured", nil, fiber.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, seeded(), tt.exp)

			resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/calls/exports", nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}
