package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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

func sampleEntry(id string) *domain.Entry {
	return &domain.Entry{
		ID:          id,
		OwnerID:     "user-1",
		Kind:        domain.KindIncome,
		Category:    "Serviço",
		Description: "Consulta",
		Amount:      decimal.NewFromInt(150),
		Date:        time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		Status:      domain.StatusSettled,
		ClientID:    "c1",
		ClientName:  "Ana",
	}
}

func TestEntryHandler_Create_Single(t *testing.T) {
	var captured usecase.CreateEntryInput
	h := NewEntryHandler(&ledgerStub{
		createFn: func(ctx context.Context, input usecase.CreateEntryInput) ([]*domain.Entry, error) {
			captured = input
			return []*domain.Entry{sampleEntry("e1")}, nil
		},
	})

	body := `{"transaction_type":"income","category":"Serviço","description":"Consulta","amount":"150","date":"2024-02-10","status":"settled","client_id":"c1"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/entries", bytes.NewBufferString(body)), "user-1", nil)
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "user-1", captured.UserID)
	assert.Nil(t, captured.Plan)
	require.NotNil(t, captured.Amount)
	assert.True(t, captured.Amount.Equal(decimal.NewFromInt(150)))

	var resp dto.EntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "e1", resp.ID)
	assert.Equal(t, "2024-02-10", resp.Date)
}

func TestEntryHandler_Create_Plan(t *testing.T) {
	plan := []*domain.Entry{sampleEntry("dp"), sampleEntry("i1")}
	for _, e := range plan {
		e.PlanID = "plan-1"
	}
	h := NewEntryHandler(&ledgerStub{
		createFn: func(ctx context.Context, input usecase.CreateEntryInput) ([]*domain.Entry, error) {
			require.NotNil(t, input.Plan)
			assert.Equal(t, 1, input.Plan.InstallmentCount)
			return plan, nil
		},
	})

	body := `{"transaction_type":"income","category":"Pacote","description":"Pacote","amount":"300","date":"2024-02-10","client_id":"c1","installments":{"down_payment":"150","installment_count":1}}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/entries", bytes.NewBufferString(body)), "user-1", nil)
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp dto.PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "plan-1", resp.PlanID)
	assert.Len(t, resp.Entries, 2)
}

func TestEntryHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "malformed json", body: `{`, status: http.StatusBadRequest},
		{name: "bad kind", body: `{"transaction_type":"gift"}`, status: http.StatusBadRequest},
		{name: "domain validation", body: `{"transaction_type":"income"}`, err: fmt.Errorf("%w: amount", domain.ErrMissingField), status: http.StatusBadRequest},
		{name: "unknown client", body: `{"transaction_type":"income"}`, err: domain.ErrClientNotFound, status: http.StatusNotFound},
		{name: "backlog", body: `{"transaction_type":"expense"}`, err: domain.ErrWriteBacklog, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEntryHandler(&ledgerStub{
				createFn: func(ctx context.Context, input usecase.CreateEntryInput) ([]*domain.Entry, error) {
					return nil, tt.err
				},
			})
			req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/entries", bytes.NewBufferString(tt.body)), "user-1", nil)
			rec := httptest.NewRecorder()

			h.Create(rec, req)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestEntryHandler_List_PaginatesAndFilters(t *testing.T) {
	var gotFilter domain.EntryFilter
	h := NewEntryHandler(&ledgerStub{
		listFn: func(ctx context.Context, userID string, filter domain.EntryFilter) ([]*domain.Entry, error) {
			gotFilter = filter
			return []*domain.Entry{sampleEntry("a"), sampleEntry("b"), sampleEntry("c")}, nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/entries?status=pending&month=1&limit=2&offset=1", nil), "user-1", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", gotFilter.Status)
	assert.Equal(t, "1", gotFilter.Month)

	var resp dto.ListEntriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "b", resp.Entries[0].ID)
}

func TestEntryHandler_List_OffsetPastEnd(t *testing.T) {
	h := NewEntryHandler(&ledgerStub{
		listFn: func(ctx context.Context, userID string, filter domain.EntryFilter) ([]*domain.Entry, error) {
			return []*domain.Entry{sampleEntry("a")}, nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/entries?offset=10", nil), "user-1", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.ListEntriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Entries)
	assert.Equal(t, 1, resp.Total)
}

func TestEntryHandler_List_DateRangeWithBadBound(t *testing.T) {
	var gotFilter domain.EntryFilter
	h := NewEntryHandler(&ledgerStub{
		listFn: func(ctx context.Context, userID string, filter domain.EntryFilter) ([]*domain.Entry, error) {
			gotFilter = filter
			return []*domain.Entry{sampleEntry("a")}, nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/entries?date_range=true&start_date=yesterday&end_date=2024-03-31&month=1", nil), "user-1", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotFilter.UseDateRange)
	assert.Nil(t, gotFilter.StartDate, "unparsable start is an open bound")
	require.NotNil(t, gotFilter.EndDate)
	assert.Equal(t, time.March, gotFilter.EndDate.Month())
}

func TestEntryHandler_List_DatesIgnoredWithoutRangeFlag(t *testing.T) {
	var gotFilter domain.EntryFilter
	h := NewEntryHandler(&ledgerStub{
		listFn: func(ctx context.Context, userID string, filter domain.EntryFilter) ([]*domain.Entry, error) {
			gotFilter = filter
			return nil, nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/entries?start_date=2024-01-01&month=2", nil), "user-1", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gotFilter.UseDateRange)
	assert.Equal(t, "2", gotFilter.Month)
}

func TestEntryHandler_Update(t *testing.T) {
	var captured usecase.UpdateEntryInput
	h := NewEntryHandler(&ledgerStub{
		updateFn: func(ctx context.Context, input usecase.UpdateEntryInput) (*domain.Entry, error) {
			captured = input
			return sampleEntry(input.ID), nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodPatch, "/api/v1/entries/e1", bytes.NewBufferString(`{"description":"Retorno"}`)), "user-1", map[string]string{"id": "e1"})
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "e1", captured.ID)
	require.NotNil(t, captured.Patch.Description)
	assert.Equal(t, "Retorno", *captured.Patch.Description)
	assert.Nil(t, captured.Patch.Amount)
}

func TestEntryHandler_SetStatus(t *testing.T) {
	var got domain.SettlementStatus
	h := NewEntryHandler(&ledgerStub{
		statusFn: func(ctx context.Context, userID, id string, status domain.SettlementStatus) (*domain.Entry, error) {
			got = status
			e := sampleEntry(id)
			e.Status = status
			return e, nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodPut, "/api/v1/entries/e1/status", bytes.NewBufferString(`{"status":"pending"}`)), "user-1", map[string]string{"id": "e1"})
	rec := httptest.NewRecorder()
	h.SetStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusPending, got)

	req = asUser(httptest.NewRequest(http.MethodPut, "/api/v1/entries/e1/status", bytes.NewBufferString(`{"status":"paid"}`)), "user-1", map[string]string{"id": "e1"})
	rec = httptest.NewRecorder()
	h.SetStatus(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntryHandler_Delete(t *testing.T) {
	h := NewEntryHandler(&ledgerStub{
		removeFn: func(ctx context.Context, userID, id string) error {
			if id == "missing" {
				return domain.ErrEntryNotFound
			}
			return nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodDelete, "/api/v1/entries/e1", nil), "user-1", map[string]string{"id": "e1"})
	rec := httptest.NewRecorder()
	h.Delete(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = asUser(httptest.NewRequest(http.MethodDelete, "/api/v1/entries/missing", nil), "user-1", map[string]string{"id": "missing"})
	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEntryHandler_Pending(t *testing.T) {
	h := NewEntryHandler(&ledgerStub{
		pendingFn: func(ctx context.Context, userID, id string) ([]usecase.PendingWrite, error) {
			return []usecase.PendingWrite{{Seq: 7, EntryID: id, Op: usecase.WriteUpdate}}, nil
		},
	})

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/entries/e1/pending", nil), "user-1", map[string]string{"id": "e1"})
	rec := httptest.NewRecorder()
	h.Pending(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.PendingWritesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Pending, 1)
	assert.Equal(t, uint64(7), resp.Pending[0].Seq)
	assert.Equal(t, "update", resp.Pending[0].Op)
}
