package usecase_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/usecase"
	"github.com/iho/bizledger/internal/usecase/mocks"
)

func sequentialIDs(ctrl *gomock.Controller, prefix string) *mocks.MockIDGenerator {
	var n atomic.Int64
	idGen := mocks.NewMockIDGenerator(ctrl)
	idGen.EXPECT().Generate().DoAndReturn(func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}).AnyTimes()
	return idGen
}

type sessionFixture struct {
	manager *usecase.SessionManager
	repo    *mocks.MockEntryRepository
}

func newSessionFixture(t *testing.T, ctrl *gomock.Controller, policy usecase.ReconcilePolicy, retrier usecase.Retrier) *sessionFixture {
	t.Helper()

	repo := mocks.NewMockEntryRepository(ctrl)
	manager := usecase.NewSessionManager(usecase.SessionManagerConfig{
		Repo:         repo,
		Retrier:      retrier,
		IDGen:        sequentialIDs(ctrl, "id"),
		Policy:       policy,
		DrainTimeout: 5 * time.Second,
		Logger:       zerolog.Nop(),
	})
	t.Cleanup(func() {
		_ = manager.CloseAll(context.Background())
	})

	return &sessionFixture{manager: manager, repo: repo}
}

func (f *sessionFixture) open(t *testing.T, userID string, entries ...*domain.Entry) *usecase.Session {
	t.Helper()

	f.repo.EXPECT().ListByOwner(gomock.Any(), userID).Return(entries, nil)
	s, err := f.manager.Open(context.Background(), userID)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s
}

func drain(t *testing.T, s *usecase.Session) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Queue.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for signal")
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func storedEntry(id string, kind domain.Kind, value int64, status domain.SettlementStatus, date time.Time) *domain.Entry {
	return &domain.Entry{
		ID:            id,
		OwnerID:       "user-1",
		Kind:          kind,
		Category:      "Serviço",
		Description:   "entry " + id,
		Amount:        decimal.NewFromInt(value),
		Date:          date,
		Status:        status,
		PaymentMethod: "pix",
	}
}
