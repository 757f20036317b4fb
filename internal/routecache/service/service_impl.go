package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilomet/kilomet/internal/config"
	"github.com/kilomet/kilomet/internal/observability/metrics"
	"github.com/kilomet/kilomet/internal/providers/routing"
	routecachedomain "github.com/kilomet/kilomet/internal/routecache/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const metadataCodeKey = "code"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	Repo     routecachedomain.Repository
	Provider routing.Provider
	Pipeline *metrics.Pipeline `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         routecachedomain.Repository
	provider     routing.Provider
	pipeline     *metrics.Pipeline
	cacheTimeout time.Duration
}

func New(p Params) routecachedomain.Resolver {
	cacheTimeout := p.Cfg.Processing.CacheTimeout
	if cacheTimeout <= 0 {
		cacheTimeout = 2 * time.Second
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("routecache.service"),
		repo:         p.Repo,
		provider:     p.Provider,
		pipeline:     p.Pipeline,
		cacheTimeout: cacheTimeout,
	}
}

func (s *Service) Resolve(ctx context.Context, origin, destination string) (routecachedomain.Resolution, error) {
	origin = routecachedomain.NormalizeAddress(origin)
	destination = routecachedomain.NormalizeAddress(destination)
	if origin == "" || destination == "" {
		return routecachedomain.Resolution{}, routecachedomain.ErrInvalidInput
	}

	if entry := s.lookup(ctx, origin, destination); entry != nil {
		if entry.Status == routecachedomain.EntryStatusOK {
			if s.pipeline != nil {
				s.pipeline.CacheHits.Inc()
			}
			return routecachedomain.Resolution{
				Km:        float64(entry.Meters) / 1000,
				FromCache: true,
			}, nil
		}
		if s.pipeline != nil {
			s.pipeline.NegativeCacheHits.Inc()
		}
		// FromCache is set on the failure too: the caller owes no provider
		// rate-limit delay for a negative-cache replay.
		if cachedCode(entry) == "no_route" {
			return routecachedomain.Resolution{FromCache: true}, fmt.Errorf("%w: %s", routecachedomain.ErrNoRoute, entry.ErrMessage)
		}
		return routecachedomain.Resolution{FromCache: true}, fmt.Errorf("%w: %s", routecachedomain.ErrResolutionFailed, entry.ErrMessage)
	}

	if s.pipeline != nil {
		s.pipeline.ProviderCalls.Inc()
	}
	route, err := s.provider.Distance(ctx, origin, destination)
	if err != nil {
		return routecachedomain.Resolution{}, s.providerFailure(ctx, origin, destination, err)
	}
	if route.Meters <= 0 {
		err := fmt.Errorf("%w: provider returned distance %dm", routecachedomain.ErrNoRoute, route.Meters)
		s.storeError(ctx, origin, destination, "no_route", err.Error())
		return routecachedomain.Resolution{}, err
	}

	s.storeOK(ctx, origin, destination, route)

	return routecachedomain.Resolution{Km: float64(route.Meters) / 1000}, nil
}

// lookup reads the cache under a bounded timeout. A slow or failing cache is
// treated as a miss so an outage never blocks resolution.
func (s *Service) lookup(ctx context.Context, origin, destination string) *routecachedomain.Entry {
	lookupCtx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()

	entry, err := s.repo.Find(lookupCtx, s.db, origin, destination)
	if err != nil {
		s.log.Warn("route cache lookup failed, treating as miss",
			zap.Error(err),
			zap.String("origin", origin),
			zap.String("destination", destination),
		)
		return nil
	}
	return entry
}

func (s *Service) providerFailure(ctx context.Context, origin, destination string, err error) error {
	if errors.Is(err, routing.ErrMissingCredential) {
		return routecachedomain.ErrMissingCredential
	}

	if s.pipeline != nil {
		s.pipeline.ProviderFailures.Inc()
	}
	if errors.Is(err, routing.ErrNoRoute) {
		wrapped := fmt.Errorf("%w: %v", routecachedomain.ErrNoRoute, err)
		s.storeError(ctx, origin, destination, "no_route", err.Error())
		return wrapped
	}

	wrapped := fmt.Errorf("%w: %v", routecachedomain.ErrResolutionFailed, err)
	s.storeError(ctx, origin, destination, "provider_error", err.Error())
	return wrapped
}

func (s *Service) storeOK(ctx context.Context, origin, destination string, route routing.Route) {
	now := time.Now().UTC()
	entry := &routecachedomain.Entry{
		NormalizedOrigin:      origin,
		NormalizedDestination: destination,
		Meters:                route.Meters,
		Seconds:               route.Seconds,
		Status:                routecachedomain.EntryStatusOK,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.repo.Upsert(ctx, s.db, entry); err != nil {
		s.log.Warn("route cache write failed", zap.Error(err))
	}
}

// storeError records a negative cache entry. Failures here are swallowed: the
// cache is an optimization, never a correctness requirement.
func (s *Service) storeError(ctx context.Context, origin, destination, code, message string) {
	now := time.Now().UTC()
	entry := &routecachedomain.Entry{
		NormalizedOrigin:      origin,
		NormalizedDestination: destination,
		Status:                routecachedomain.EntryStatusError,
		ErrMessage:            message,
		Metadata:              datatypes.JSONMap{metadataCodeKey: code},
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.repo.Upsert(ctx, s.db, entry); err != nil {
		s.log.Warn("negative cache write failed", zap.Error(err))
	}
}

func cachedCode(entry *routecachedomain.Entry) string {
	if entry.Metadata == nil {
		return ""
	}
	code, _ := entry.Metadata[metadataCodeKey].(string)
	return code
}
