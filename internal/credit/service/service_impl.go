package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/kilomet/kilomet/internal/config"
	creditdomain "github.com/kilomet/kilomet/internal/credit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Cfg  config.Config
	Repo creditdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       creditdomain.Repository
	maxRetries int
}

func New(p Params) creditdomain.Service {
	maxRetries := p.Cfg.Credit.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("credit.service"),
		repo:       p.Repo,
		maxRetries: maxRetries,
	}
}

func (s *Service) Consume(ctx context.Context, accountID string, amount int64) error {
	if amount <= 0 {
		return creditdomain.ErrInvalidAmount
	}
	id, err := parseID(accountID)
	if err != nil {
		return creditdomain.ErrProfileNotFound
	}

	// The conditional update retries a bounded number of times. One retry
	// tolerates exactly one concurrent racer; unbounded retry under
	// contention is the worse failure mode for this workload.
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		profile, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			return err
		}
		if profile == nil {
			return creditdomain.ErrProfileNotFound
		}
		if profile.Balance < amount {
			return creditdomain.ErrInsufficientCredits
		}

		swapped, err := s.repo.DecrementIf(ctx, s.db, id, profile.Balance, amount)
		if err != nil {
			return err
		}
		if swapped {
			return nil
		}

		s.log.Debug("credit balance changed under us, retrying",
			zap.String("account_id", accountID),
			zap.Int("attempt", attempt+1),
		)
	}

	return creditdomain.ErrConcurrencyExhausted
}

func (s *Service) Balance(ctx context.Context, accountID string) (int64, error) {
	id, err := parseID(accountID)
	if err != nil {
		return 0, creditdomain.ErrProfileNotFound
	}
	profile, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return 0, err
	}
	if profile == nil {
		return 0, creditdomain.ErrProfileNotFound
	}
	return profile.Balance, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
