package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bizledger/internal/adapter/http/dto"
	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/usecase"
)

func TestPlanHandler_Get(t *testing.T) {
	h := NewPlanHandler(&ledgerStub{
		getPlanFn: func(ctx context.Context, userID, planID string) ([]*domain.Entry, error) {
			if planID != "plan-1" {
				return nil, domain.ErrPlanNotFound
			}
			return []*domain.Entry{sampleEntry("dp"), sampleEntry("i1")}, nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/plans/plan-1", nil), "user-1", map[string]string{"planId": "plan-1"})
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = asUser(httptest.NewRequest(http.MethodGet, "/api/v1/plans/nope", nil), "user-1", map[string]string{"planId": "nope"})
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlanHandler_Edit(t *testing.T) {
	var captured usecase.EditPlanInput
	h := NewPlanHandler(&ledgerStub{
		editPlanFn: func(ctx context.Context, input usecase.EditPlanInput) ([]*domain.Entry, error) {
			captured = input
			return []*domain.Entry{sampleEntry("i1")}, nil
		},
	})

	body := `{"total_amount":"900","down_payment":"0","installment_count":3,"start_date":"2024-02-01"}`
	req := asUser(httptest.NewRequest(http.MethodPut, "/api/v1/plans/plan-1", bytes.NewBufferString(body)), "user-1", map[string]string{"planId": "plan-1"})
	rec := httptest.NewRecorder()
	h.Edit(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "plan-1", captured.PlanID)
	assert.Equal(t, "user-1", captured.UserID)
	assert.Equal(t, 3, captured.InstallmentCount)
	assert.True(t, captured.TotalAmount.Equal(decimal.NewFromInt(900)))
}

func TestPlanHandler_EditRejectsMissingCount(t *testing.T) {
	h := NewPlanHandler(&ledgerStub{})

	req := asUser(httptest.NewRequest(http.MethodPut, "/api/v1/plans/plan-1", bytes.NewBufferString(`{"start_date":"2024-02-01"}`)), "user-1", map[string]string{"planId": "plan-1"})
	rec := httptest.NewRecorder()
	h.Edit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanHandler_EditRejectsMissingTotal(t *testing.T) {
	h := NewPlanHandler(&ledgerStub{})

	body := `{"down_payment":"0","installment_count":3,"start_date":"2024-02-01"}`
	req := asUser(httptest.NewRequest(http.MethodPut, "/api/v1/plans/plan-1", bytes.NewBufferString(body)), "user-1", map[string]string{"planId": "plan-1"})
	rec := httptest.NewRecorder()
	h.Edit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandler_Summary(t *testing.T) {
	h := NewReportHandler(&ledgerStub{
		summaryFn: func(ctx context.Context, userID string, filter domain.EntryFilter) (domain.Summary, error) {
			assert.Equal(t, "2024", filter.Year)
			return domain.Summary{
				TotalIncome:   decimal.NewFromInt(1000),
				TotalExpense:  decimal.NewFromInt(300),
				PendingIncome: decimal.NewFromInt(500),
				NetBalance:    decimal.NewFromInt(700),
			}, nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/summary?year=2024", nil), "user-1", nil)
	rec := httptest.NewRecorder()
	h.Summary(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.NetBalance.Equal(decimal.NewFromInt(700)))
	assert.True(t, resp.PendingIncome.Equal(decimal.NewFromInt(500)))
}

func TestReportHandler_Growth(t *testing.T) {
	var gotAt time.Time
	h := NewReportHandler(&ledgerStub{
		growthFn: func(ctx context.Context, userID string, at time.Time) (domain.Growth, error) {
			gotAt = at
			return domain.Growth{Current: decimal.NewFromInt(450), MonthlyPercentage: decimal.NewFromInt(100)}, nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/growth?at=2024-03-15", nil), "user-1", nil)
	rec := httptest.NewRecorder()
	h.Growth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.March, gotAt.Month())
	var resp dto.GrowthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2024-03", resp.Period)
	assert.True(t, resp.MonthlyPercentage.Equal(decimal.NewFromInt(100)))

	req = asUser(httptest.NewRequest(http.MethodGet, "/api/v1/growth?at=march", nil), "user-1", nil)
	rec = httptest.NewRecorder()
	h.Growth(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandler_GrowthDefaultsToNow(t *testing.T) {
	var gotAt time.Time
	h := NewReportHandler(&ledgerStub{
		growthFn: func(ctx context.Context, userID string, at time.Time) (domain.Growth, error) {
			gotAt = at
			return domain.Growth{}, nil
		},
	})
	fixed := time.Date(2025, 7, 4, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	rec := httptest.NewRecorder()
	h.Growth(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/growth", nil), "user-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotAt.Equal(fixed))
}

func TestReportHandler_Report(t *testing.T) {
	h := NewReportHandler(&ledgerStub{
		reportFn: func(ctx context.Context, userID string, filter domain.EntryFilter) (*usecase.Report, error) {
			return &usecase.Report{
				Entries:     []*domain.Entry{sampleEntry("e1")},
				Summary:     domain.Summary{TotalIncome: decimal.NewFromInt(150), NetBalance: decimal.NewFromInt(150)},
				PeriodLabel: "Fevereiro de 2024",
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Report(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/report?month=1&year=2024", nil), "user-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.ReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Fevereiro de 2024", resp.PeriodLabel)
	assert.Len(t, resp.Entries, 1)
}

func TestReportHandler_SessionNotOpen(t *testing.T) {
	h := NewReportHandler(&ledgerStub{
		summaryFn: func(ctx context.Context, userID string, filter domain.EntryFilter) (domain.Summary, error) {
			return domain.Summary{}, domain.ErrSessionNotFound
		},
	})

	rec := httptest.NewRecorder()
	h.Summary(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil), "user-1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReportHandler_Categories(t *testing.T) {
	h := NewReportHandler(&ledgerStub{})

	rec := httptest.NewRecorder()
	h.Categories(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.CategoriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Income, "Serviço")
	assert.Contains(t, resp.Expense, "Aluguel")
}

type closerStub struct {
	closed []string
	err    error
}

func (c *closerStub) Close(_ context.Context, userID string) error {
	c.closed = append(c.closed, userID)
	return c.err
}

func TestSessionHandler(t *testing.T) {
	closer := &closerStub{}
	h := NewSessionHandler(&ledgerStub{
		failuresFn: func(ctx context.Context, userID string) ([]usecase.WriteFailure, error) {
			return nil, nil
		},
	}, closer)

	rec := httptest.NewRecorder()
	h.Failures(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/session/failures", nil), "user-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"failures":[]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Close(rec, asUser(httptest.NewRequest(http.MethodDelete, "/api/v1/session", nil), "user-1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"user-1"}, closer.closed)
}

func TestHealthHandler(t *testing.T) {
	healthy := NewHealthHandler(map[string]Pinger{
		"postgres": PingFunc(func(ctx context.Context) error { return nil }),
	})
	rec := httptest.NewRecorder()
	healthy.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	unhealthy := NewHealthHandler(map[string]Pinger{
		"redis": PingFunc(func(ctx context.Context) error { return errors.New("down") }),
	})
	rec = httptest.NewRecorder()
	unhealthy.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	unhealthy.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
