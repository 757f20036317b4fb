package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/kilomet/kilomet/internal/client/domain"
	"github.com/kilomet/kilomet/internal/clock"
	"github.com/kilomet/kilomet/internal/config"
	creditdomain "github.com/kilomet/kilomet/internal/credit/domain"
	legdomain "github.com/kilomet/kilomet/internal/leg/domain"
	"github.com/kilomet/kilomet/internal/observability/metrics"
	processingdomain "github.com/kilomet/kilomet/internal/processing/domain"
	"github.com/kilomet/kilomet/internal/processing/lease"
	routecachedomain "github.com/kilomet/kilomet/internal/routecache/domain"
	uploaddomain "github.com/kilomet/kilomet/internal/upload/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// leaseGrace keeps the lease alive slightly past the watchdog so the expiry
// handler always finds it held.
const leaseGrace = 30 * time.Second

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	GenID      *snowflake.Node
	Clock      clock.Clock
	UploadRepo uploaddomain.Repository
	RowRepo    uploaddomain.RowRepository
	ClientRepo clientdomain.Repository
	LegRepo    legdomain.Repository
	Resolver   routecachedomain.Resolver
	Credits    creditdomain.Service
	Lease      lease.Lease
	Pipeline   *metrics.Pipeline `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        config.ProcessingConfig
	genID      *snowflake.Node
	clock      clock.Clock
	uploadRepo uploaddomain.Repository
	rowRepo    uploaddomain.RowRepository
	clientRepo clientdomain.Repository
	legRepo    legdomain.Repository
	resolver   routecachedomain.Resolver
	credits    creditdomain.Service
	lease      lease.Lease
	pipeline   *metrics.Pipeline
}

func New(p Params) processingdomain.Service {
	cfg := p.Cfg.Processing
	if cfg.Watchdog <= 0 {
		cfg.Watchdog = 10 * time.Minute
	}
	if cfg.ProviderDelay < 0 {
		cfg.ProviderDelay = 200 * time.Millisecond
	}
	if cfg.LegChunkSize <= 0 {
		cfg.LegChunkSize = 200
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("processing.service"),
		cfg:        cfg,
		genID:      p.GenID,
		clock:      p.Clock,
		uploadRepo: p.UploadRepo,
		rowRepo:    p.RowRepo,
		clientRepo: p.ClientRepo,
		legRepo:    p.LegRepo,
		resolver:   p.Resolver,
		credits:    p.Credits,
		lease:      p.Lease,
		pipeline:   p.Pipeline,
	}
}

func (s *Service) Start(ctx context.Context, uploadID, accountID string) (*processingdomain.StartResult, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(uploadID))
	if err != nil {
		return nil, uploaddomain.ErrInvalidID
	}

	upload, err := s.uploadRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, uploaddomain.ErrNotFound
	}

	invalidRows, err := s.rowRepo.CountInvalid(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	decision, err := uploaddomain.DecideStart(upload.Status, invalidRows)
	if err != nil {
		return nil, err
	}
	switch {
	case decision.AlreadyRunning:
		return &processingdomain.StartResult{AlreadyRunning: true}, nil
	case decision.AlreadyDone:
		return &processingdomain.StartResult{AlreadyDone: true}, nil
	case decision.InvalidRows > 0:
		return &processingdomain.StartResult{InvalidRows: decision.InvalidRows}, nil
	}

	rows, err := s.rowRepo.ListByUpload(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	token, acquired, err := s.lease.Acquire(ctx, leaseKey(id), s.cfg.Watchdog+leaseGrace)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return &processingdomain.StartResult{AlreadyRunning: true}, nil
	}

	// One credit per row; an empty upload costs nothing.
	if len(rows) > 0 {
		if err := s.credits.Consume(ctx, accountID, int64(len(rows))); err != nil {
			_ = s.lease.Release(ctx, leaseKey(id), token)
			return nil, err
		}
	}

	if err := s.uploadRepo.UpdateStatus(ctx, s.db, id, uploaddomain.StatusProcessing); err != nil {
		_ = s.lease.Release(ctx, leaseKey(id), token)
		return nil, err
	}

	go s.run(id, rows, token)

	return &processingdomain.StartResult{Accepted: true}, nil
}

// run executes one background processing run under the watchdog. The
// triggering request has already returned.
func (s *Service) run(uploadID snowflake.ID, rows []uploaddomain.Row, token string) {
	start := time.Now()
	log := s.log.With(zap.String("upload_id", uploadID.String()))

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchdog := time.AfterFunc(s.cfg.Watchdog, func() {
		log.Error("watchdog expired, forcing upload to failed",
			zap.Duration("watchdog", s.cfg.Watchdog),
		)
		s.forceFailed(uploadID, token)
		cancel()
	})

	err := s.process(runCtx, uploadID, rows)

	if !watchdog.Stop() {
		// The watchdog already failed the upload and released the lease;
		// whatever the run produced after that point stays overwritable.
		s.observeRun("watchdog", start)
		return
	}

	if err != nil {
		log.Error("processing run failed", zap.Error(err))
		s.forceFailed(uploadID, token)
		s.observeRun("failed", start)
		return
	}

	if err := s.lease.Release(context.Background(), leaseKey(uploadID), token); err != nil {
		log.Warn("lease release failed", zap.Error(err))
	}
	log.Info("processing run completed",
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(start)),
	)
	s.observeRun("completed", start)
}

func (s *Service) process(ctx context.Context, uploadID snowflake.ID, rows []uploaddomain.Row) error {
	groups := groupRows(rows)

	clients := make([]clientdomain.Client, 0, len(groups))
	now := s.clock.Now()
	for _, group := range groups {
		clients = append(clients, clientdomain.Client{
			ID:        s.genID.Generate(),
			UploadID:  uploadID,
			Name:      group.name,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := s.clientRepo.UpsertBatch(ctx, s.db, clients); err != nil {
		return fmt.Errorf("upsert clients: %w", err)
	}

	// Reload to pick up IDs of clients that survived from a prior run.
	stored, err := s.clientRepo.ListByUpload(ctx, s.db, uploadID)
	if err != nil {
		return fmt.Errorf("reload clients: %w", err)
	}
	clientIDs := make(map[string]snowflake.ID, len(stored))
	for _, c := range stored {
		clientIDs[c.Name] = c.ID
	}

	legs, err := s.resolveLegs(ctx, uploadID, groups, clientIDs)
	if err != nil {
		return err
	}

	if err := s.replaceLegs(ctx, uploadID, legs); err != nil {
		return err
	}

	counts := make(map[snowflake.ID]int, len(clientIDs))
	for _, l := range legs {
		counts[l.ClientID]++
	}
	for clientID, count := range counts {
		if err := s.clientRepo.UpdateLegCount(ctx, s.db, clientID, count); err != nil {
			return fmt.Errorf("update client leg count: %w", err)
		}
	}

	if err := s.uploadRepo.UpdateTotals(ctx, s.db, uploadID, uploaddomain.StatusDistancesDone, len(legs), len(counts)); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// resolveLegs walks every row strictly sequentially so the provider
// rate-limit delay is honored. Cache hits are not delayed.
func (s *Service) resolveLegs(
	ctx context.Context,
	uploadID snowflake.ID,
	groups []rowGroup,
	clientIDs map[string]snowflake.ID,
) ([]legdomain.Leg, error) {
	var legs []legdomain.Leg
	now := s.clock.Now()

	for _, group := range groups {
		clientID := clientIDs[group.name]
		for _, row := range group.rows {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			res, resolveErr := s.resolver.Resolve(ctx, row.PickupAddress, row.DropoffAddress)
			if errors.Is(resolveErr, routecachedomain.ErrMissingCredential) {
				return nil, resolveErr
			}

			leg := legdomain.Leg{
				ID:             s.genID.Generate(),
				UploadID:       uploadID,
				ClientID:       clientID,
				PickupAddress:  row.PickupAddress,
				DropoffAddress: row.DropoffAddress,
				RawDate:        row.RawDate,
				Status:         classify(resolveErr),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if resolveErr == nil {
				km := res.Km
				leg.DistanceKm = &km
			}
			legs = append(legs, leg)
			if s.pipeline != nil {
				s.pipeline.LegsProcessed.Inc()
			}

			providerCalled := !res.FromCache && !errors.Is(resolveErr, routecachedomain.ErrInvalidInput)
			if providerCalled {
				if err := sleepCtx(ctx, s.cfg.ProviderDelay); err != nil {
					return nil, err
				}
			}
		}
	}
	return legs, nil
}

// replaceLegs deletes the prior run's legs and inserts the new set in chunks.
// Reprocessing replaces, never appends.
func (s *Service) replaceLegs(ctx context.Context, uploadID snowflake.ID, legs []legdomain.Leg) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.legRepo.DeleteByUpload(ctx, tx, uploadID); err != nil {
			return fmt.Errorf("delete prior legs: %w", err)
		}
		for start := 0; start < len(legs); start += s.cfg.LegChunkSize {
			end := start + s.cfg.LegChunkSize
			if end > len(legs) {
				end = len(legs)
			}
			if err := s.legRepo.InsertBatch(ctx, tx, legs[start:end]); err != nil {
				return fmt.Errorf("insert legs: %w", err)
			}
		}
		return nil
	})
}

func (s *Service) forceFailed(uploadID snowflake.ID, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.uploadRepo.UpdateStatus(ctx, s.db, uploadID, uploaddomain.StatusFailed); err != nil {
		s.log.Error("failed to mark upload failed",
			zap.Error(err),
			zap.String("upload_id", uploadID.String()),
		)
	}
	if err := s.lease.Release(ctx, leaseKey(uploadID), token); err != nil {
		s.log.Warn("lease release failed", zap.Error(err))
	}
}

func (s *Service) observeRun(outcome string, start time.Time) {
	if s.pipeline == nil {
		return
	}
	s.pipeline.Runs.WithLabelValues(outcome).Inc()
	s.pipeline.RunDuration.Observe(time.Since(start).Seconds())
}

type rowGroup struct {
	name string
	rows []uploaddomain.Row
}

// groupRows buckets rows by trimmed, case-sensitive client name in first-seen
// order. Rows without a name land in the sentinel bucket.
func groupRows(rows []uploaddomain.Row) []rowGroup {
	index := make(map[string]int)
	var groups []rowGroup
	for _, row := range rows {
		name := strings.TrimSpace(row.ClientName)
		if name == "" {
			name = clientdomain.UnknownClientName
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, rowGroup{name: name})
		}
		groups[i].rows = append(groups[i].rows, row)
	}
	return groups
}

func classify(err error) legdomain.LegStatus {
	switch {
	case err == nil:
		return legdomain.StatusDistanceOK
	case errors.Is(err, routecachedomain.ErrInvalidInput),
		errors.Is(err, routecachedomain.ErrNoRoute):
		return legdomain.StatusAddressNotFound
	default:
		return legdomain.StatusCalculationError
	}
}

func leaseKey(uploadID snowflake.ID) string {
	return "processing:upload:" + uploadID.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
