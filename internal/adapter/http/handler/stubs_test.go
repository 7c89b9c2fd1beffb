package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bizledger/internal/adapter/http/middleware"
	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/usecase"
)

// ledgerStub implements every service interface the handlers need.
type ledgerStub struct {
	createFn   func(ctx context.Context, input usecase.CreateEntryInput) ([]*domain.Entry, error)
	updateFn   func(ctx context.Context, input usecase.UpdateEntryInput) (*domain.Entry, error)
	statusFn   func(ctx context.Context, userID, id string, status domain.SettlementStatus) (*domain.Entry, error)
	removeFn   func(ctx context.Context, userID, id string) error
	getFn      func(ctx context.Context, userID, id string) (*domain.Entry, error)
	listFn     func(ctx context.Context, userID string, filter domain.EntryFilter) ([]*domain.Entry, error)
	pendingFn  func(ctx context.Context, userID, id string) ([]usecase.PendingWrite, error)
	getPlanFn  func(ctx context.Context, userID, planID string) ([]*domain.Entry, error)
	editPlanFn func(ctx context.Context, input usecase.EditPlanInput) ([]*domain.Entry, error)
	summaryFn  func(ctx context.Context, userID string, filter domain.EntryFilter) (domain.Summary, error)
	growthFn   func(ctx context.Context, userID string, at time.Time) (domain.Growth, error)
	reportFn   func(ctx context.Context, userID string, filter domain.EntryFilter) (*usecase.Report, error)
	failuresFn func(ctx context.Context, userID string) ([]usecase.WriteFailure, error)
}

func (s *ledgerStub) CreateEntry(ctx context.Context, input usecase.CreateEntryInput) ([]*domain.Entry, error) {
	return s.createFn(ctx, input)
}

func (s *ledgerStub) UpdateEntry(ctx context.Context, input usecase.UpdateEntryInput) (*domain.Entry, error) {
	return s.updateFn(ctx, input)
}

func (s *ledgerStub) SetStatus(ctx context.Context, userID, id string, status domain.SettlementStatus) (*domain.Entry, error) {
	return s.statusFn(ctx, userID, id, status)
}

func (s *ledgerStub) RemoveEntry(ctx context.Context, userID, id string) error {
	return s.removeFn(ctx, userID, id)
}

func (s *ledgerStub) GetEntry(ctx context.Context, userID, id string) (*domain.Entry, error) {
	return s.getFn(ctx, userID, id)
}

func (s *ledgerStub) ListEntries(ctx context.Context, userID string, filter domain.EntryFilter) ([]*domain.Entry, error) {
	return s.listFn(ctx, userID, filter)
}

func (s *ledgerStub) PendingWrites(ctx context.Context, userID, id string) ([]usecase.PendingWrite, error) {
	return s.pendingFn(ctx, userID, id)
}

func (s *ledgerStub) GetPlan(ctx context.Context, userID, planID string) ([]*domain.Entry, error) {
	return s.getPlanFn(ctx, userID, planID)
}

func (s *ledgerStub) EditPlan(ctx context.Context, input usecase.EditPlanInput) ([]*domain.Entry, error) {
	return s.editPlanFn(ctx, input)
}

func (s *ledgerStub) Summary(ctx context.Context, userID string, filter domain.EntryFilter) (domain.Summary, error) {
	return s.summaryFn(ctx, userID, filter)
}

func (s *ledgerStub) Growth(ctx context.Context, userID string, at time.Time) (domain.Growth, error) {
	return s.growthFn(ctx, userID, at)
}

func (s *ledgerStub) Report(ctx context.Context, userID string, filter domain.EntryFilter) (*usecase.Report, error) {
	return s.reportFn(ctx, userID, filter)
}

func (s *ledgerStub) WriteFailures(ctx context.Context, userID string) ([]usecase.WriteFailure, error) {
	return s.failuresFn(ctx, userID)
}

// asUser attaches the session owner and chi URL params to r.
func asUser(r *http.Request, userID string, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(middleware.WithUserID(ctx, userID))
}
