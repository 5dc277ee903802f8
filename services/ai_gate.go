package services

import (
	"context"
	"errors"

	"github.com/Baltarist/Perscrum-sub000/models"
	"github.com/Baltarist/Perscrum-sub000/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FreeTierAIQuota is the lifetime AI call cap for free-tier users. Paid tiers
// are never blocked by the counter.
const FreeTierAIQuota = 10

// UsageStore serializes the quota check-and-increment so two in-flight calls
// for the same user cannot both pass the check.
type UsageStore interface {
	// TryConsume atomically reserves one AI call slot for a free-tier user.
	// It returns false, without mutating anything, when the quota is spent.
	TryConsume(ctx context.Context, userID uint) (bool, error)
	// Release hands a reserved slot back, used when the wrapped call was
	// cancelled before producing a result.
	Release(ctx context.Context, userID uint) error
}

// GormUsageStore implements UsageStore with a conditional UPDATE, so the
// check and the increment are one statement on the database side.
type GormUsageStore struct {
	DB *gorm.DB
}

func (s *GormUsageStore) TryConsume(ctx context.Context, userID uint) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND subscription_tier = ? AND ai_usage_count < ?", userID, models.TierFree, FreeTierAIQuota).
		Update("ai_usage_count", gorm.Expr("ai_usage_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormUsageStore) Release(ctx context.Context, userID uint) error {
	return s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND ai_usage_count > 0", userID).
		Update("ai_usage_count", gorm.Expr("ai_usage_count - 1")).Error
}

// AIGate wraps AI-backed operations with tier-based quota enforcement.
// A denied call performs zero mutations and returns the caller-supplied
// fallback, with the exceeded flag set so the UI can prompt an upgrade.
type AIGate struct {
	Store UsageStore
	// CountFailedCalls keeps the consumed slot when the wrapped call returns
	// an error other than cancellation. This matches the historical behavior;
	// set false to refund failed calls.
	CountFailedCalls bool
	Logger           *zap.Logger
}

func NewAIGate(store UsageStore, logger *zap.Logger) *AIGate {
	return &AIGate{Store: store, CountFailedCalls: true, Logger: logger}
}

// GuardAICall runs op under g's quota policy for the given user. Each call
// site supplies its own typed fallback (empty slice, nil pointer) returned
// verbatim on denial. The second result reports quota exhaustion; it is
// normal control flow, not an error.
func GuardAICall[T any](ctx context.Context, g *AIGate, user *models.User, fallback T, op func(context.Context) (T, error)) (T, bool, error) {
	if user.SubscriptionTier != models.TierFree {
		utils.AICallsTotal.WithLabelValues(string(user.SubscriptionTier), "allowed").Inc()
		result, err := op(ctx)
		if err != nil {
			return fallback, false, err
		}
		return result, false, nil
	}

	allowed, err := g.Store.TryConsume(ctx, user.ID)
	if err != nil {
		return fallback, false, err
	}
	if !allowed {
		utils.AICallsTotal.WithLabelValues(string(models.TierFree), "denied").Inc()
		g.Logger.Info("ai_quota_exceeded",
			zap.Uint("user_id", user.ID),
			zap.Int("quota", FreeTierAIQuota),
		)
		return fallback, true, nil
	}
	utils.AICallsTotal.WithLabelValues(string(models.TierFree), "allowed").Inc()

	result, err := op(ctx)
	if err != nil {
		// Only a returned result counts as used on cancellation; other
		// failures follow the configured policy.
		cancelled := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		if cancelled || !g.CountFailedCalls {
			if relErr := g.Store.Release(context.WithoutCancel(ctx), user.ID); relErr != nil {
				g.Logger.Error("ai_quota_release_failed",
					zap.Uint("user_id", user.ID),
					zap.Error(relErr),
				)
			}
		}
		return fallback, false, err
	}
	return result, false, nil
}
