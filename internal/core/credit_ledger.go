package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/luxemuse/luxe-muse-backend/internal/db"
	"github.com/luxemuse/luxe-muse-backend/internal/models"
)

// CreditLedgerOptions configures NewCreditLedger.
type CreditLedgerOptions struct {
	Profiles db.ProfileRepository
	OwnerUID string
	Logger   *zap.Logger
}

type creditLedger struct {
	profiles db.ProfileRepository
	ownerUID string
	logger   *zap.Logger
}

// NewCreditLedger creates a CreditLedger backed by the profile store's guarded increment.
func NewCreditLedger(opts CreditLedgerOptions) CreditLedger {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &creditLedger{profiles: opts.Profiles, ownerUID: opts.OwnerUID, logger: opts.Logger}
}

func (l *creditLedger) Consume(ctx context.Context, session AccountSession, cost int) error {
	if cost < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCost, cost)
	}
	profile, err := session.Current()
	if err != nil {
		return err
	}

	if profile.IsOwner() {
		l.refresh(ctx, session, profile.UID)
		return nil
	}
	if cost == 0 {
		return nil
	}
	if profile.Credits < cost {
		return fmt.Errorf("%w: balance %d, cost %d", ErrInsufficientCredits, profile.Credits, cost)
	}

	balance, err := l.profiles.AdjustCredits(ctx, profile.UID, -cost)
	if err != nil {
		if errors.Is(err, db.ErrBelowFloor) {
			// Another session spent the credits first; pick up the real balance.
			l.refresh(ctx, session, profile.UID)
			return fmt.Errorf("%w: cost %d", ErrInsufficientCredits, cost)
		}
		l.logger.Error("Failed to consume credits", zap.String("uid", profile.UID), zap.Int("cost", cost), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrLedgerWrite, err)
	}
	l.logger.Info("Credits consumed", zap.String("uid", profile.UID), zap.Int("cost", cost), zap.Int("balance", balance))

	l.refresh(ctx, session, profile.UID)
	return nil
}

func (l *creditLedger) refresh(ctx context.Context, session AccountSession, uid string) {
	if err := session.RefreshProfile(ctx); err != nil {
		l.logger.Warn("Failed to refresh profile after consume", zap.String("uid", uid), zap.Error(err))
	}
}

func (l *creditLedger) Refund(ctx context.Context, uid string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if l.ownerUID != "" && uid == l.ownerUID {
		return models.OwnerCredits, nil
	}
	balance, err := l.profiles.AdjustCredits(ctx, uid, amount)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrProfileNotFound, uid)
		}
		return 0, fmt.Errorf("%w: %w", ErrLedgerWrite, err)
	}
	l.logger.Info("Credits refunded", zap.String("uid", uid), zap.Int("amount", amount), zap.Int("balance", balance))
	return balance, nil
}
