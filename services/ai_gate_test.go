package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Baltarist/Perscrum-sub000/models"
	"go.uber.org/zap"
)

// fakeUsageStore mimics the conditional-UPDATE semantics of the real store.
type fakeUsageStore struct {
	count    int
	consumes int
	releases int
	failWith error
}

func (s *fakeUsageStore) TryConsume(ctx context.Context, userID uint) (bool, error) {
	if s.failWith != nil {
		return false, s.failWith
	}
	if s.count >= FreeTierAIQuota {
		return false, nil
	}
	s.count++
	s.consumes++
	return true, nil
}

func (s *fakeUsageStore) Release(ctx context.Context, userID uint) error {
	if s.count > 0 {
		s.count--
	}
	s.releases++
	return nil
}

func newTestGate(store UsageStore) *AIGate {
	return NewAIGate(store, zap.NewNop())
}

func freeUser() *models.User {
	return &models.User{ID: 1, SubscriptionTier: models.TierFree}
}

func TestGateIncrementsOncePerSuccessfulCall(t *testing.T) {
	store := &fakeUsageStore{count: 3}
	gate := newTestGate(store)

	for i := 0; i < 4; i++ {
		result, exceeded, err := GuardAICall(context.Background(), gate, freeUser(), []string(nil),
			func(ctx context.Context) ([]string, error) {
				return []string{"task"}, nil
			})
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if exceeded {
			t.Fatalf("call %d flagged exceeded below quota", i)
		}
		if len(result) != 1 {
			t.Fatalf("call %d lost the result", i)
		}
	}

	if store.count != 7 {
		t.Fatalf("usage count = %d, want 7 (one increment per call)", store.count)
	}
}

func TestGateDeniesAtQuota(t *testing.T) {
	store := &fakeUsageStore{count: FreeTierAIQuota}
	gate := newTestGate(store)

	invoked := false
	result, exceeded, err := GuardAICall(context.Background(), gate, freeUser(), []string(nil),
		func(ctx context.Context) ([]string, error) {
			invoked = true
			return []string{"task"}, nil
		})
	if err != nil {
		t.Fatalf("denied call returned error: %v", err)
	}
	if !exceeded {
		t.Fatalf("expected quota exceeded flag")
	}
	if invoked {
		t.Fatalf("operation must not run once quota is spent")
	}
	if result != nil {
		t.Fatalf("expected fallback empty result, got %v", result)
	}
	if store.count != FreeTierAIQuota {
		t.Fatalf("denied call mutated the counter: %d", store.count)
	}
}

func TestGatePaidTiersBypassCounter(t *testing.T) {
	for _, tier := range []models.SubscriptionTier{models.TierPro, models.TierEnterprise} {
		store := &fakeUsageStore{count: FreeTierAIQuota + 5}
		gate := newTestGate(store)
		user := &models.User{ID: 2, SubscriptionTier: tier, AIUsageCount: 99}

		result, exceeded, err := GuardAICall(context.Background(), gate, user, []string(nil),
			func(ctx context.Context) ([]string, error) {
				return []string{"task"}, nil
			})
		if err != nil {
			t.Fatalf("%s call failed: %v", tier, err)
		}
		if exceeded {
			t.Fatalf("%s tier was blocked by the counter", tier)
		}
		if len(result) != 1 {
			t.Fatalf("%s tier lost the result", tier)
		}
		if store.consumes != 0 {
			t.Fatalf("%s tier consumed a free-tier slot", tier)
		}
	}
}

func TestGateFailedCallCountsByDefault(t *testing.T) {
	store := &fakeUsageStore{}
	gate := newTestGate(store)

	opErr := errors.New("model overloaded")
	_, exceeded, err := GuardAICall(context.Background(), gate, freeUser(), []string(nil),
		func(ctx context.Context) ([]string, error) {
			return nil, opErr
		})
	if !errors.Is(err, opErr) {
		t.Fatalf("expected op error, got %v", err)
	}
	if exceeded {
		t.Fatalf("failure must not be reported as quota exhaustion")
	}
	if store.count != 1 || store.releases != 0 {
		t.Fatalf("default policy must keep the consumed slot: count=%d releases=%d", store.count, store.releases)
	}
}

func TestGateRefundsFailedCallWhenConfigured(t *testing.T) {
	store := &fakeUsageStore{}
	gate := newTestGate(store)
	gate.CountFailedCalls = false

	_, _, err := GuardAICall(context.Background(), gate, freeUser(), []string(nil),
		func(ctx context.Context) ([]string, error) {
			return nil, errors.New("model overloaded")
		})
	if err == nil {
		t.Fatalf("expected op error")
	}
	if store.count != 0 || store.releases != 1 {
		t.Fatalf("refund policy must release the slot: count=%d releases=%d", store.count, store.releases)
	}
}

func TestGateCancellationDoesNotConsume(t *testing.T) {
	store := &fakeUsageStore{}
	gate := newTestGate(store)

	ctx, cancel := context.WithCancel(context.Background())
	_, _, err := GuardAICall(ctx, gate, freeUser(), []string(nil),
		func(ctx context.Context) ([]string, error) {
			cancel()
			return nil, ctx.Err()
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if store.count != 0 {
		t.Fatalf("cancelled call consumed quota: %d", store.count)
	}
}

func TestGateStoreErrorSurfaces(t *testing.T) {
	storeErr := errors.New("db down")
	gate := newTestGate(&fakeUsageStore{failWith: storeErr})

	_, exceeded, err := GuardAICall(context.Background(), gate, freeUser(), []string(nil),
		func(ctx context.Context) ([]string, error) {
			t.Fatalf("operation must not run when the store fails")
			return nil, nil
		})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	if exceeded {
		t.Fatalf("store failure must not masquerade as quota exhaustion")
	}
}

func TestGateNilFallbackForSingleObjectCalls(t *testing.T) {
	store := &fakeUsageStore{count: FreeTierAIQuota}
	gate := newTestGate(store)

	result, exceeded, err := GuardAICall(context.Background(), gate, freeUser(), (*models.Task)(nil),
		func(ctx context.Context) (*models.Task, error) {
			return &models.Task{Title: "never"}, nil
		})
	if err != nil || !exceeded {
		t.Fatalf("expected clean denial, got err=%v exceeded=%v", err, exceeded)
	}
	if result != nil {
		t.Fatalf("single-object fallback must be nil, got %v", result)
	}
}
