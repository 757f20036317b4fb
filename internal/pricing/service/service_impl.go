package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/kilomet/kilomet/internal/client/domain"
	"github.com/kilomet/kilomet/internal/config"
	legdomain "github.com/kilomet/kilomet/internal/leg/domain"
	pricingdomain "github.com/kilomet/kilomet/internal/pricing/domain"
	uploaddomain "github.com/kilomet/kilomet/internal/upload/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       pricingdomain.Repository
	LegRepo    legdomain.Repository
	ClientRepo clientdomain.Repository
	UploadRepo uploaddomain.Repository
	Defaults   *config.PricingDefaultsHolder `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       pricingdomain.Repository
	legRepo    legdomain.Repository
	clientRepo clientdomain.Repository
	uploadRepo uploaddomain.Repository
	defaults   *config.PricingDefaultsHolder
}

func New(p Params) pricingdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("pricing.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		legRepo:    p.LegRepo,
		clientRepo: p.ClientRepo,
		uploadRepo: p.UploadRepo,
		defaults:   p.Defaults,
	}
}

func (s *Service) Apply(ctx context.Context, uploadID string, inputs []pricingdomain.TierInput) (*pricingdomain.Summary, error) {
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

	tiers, err := s.buildTiers(id, inputs)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Replace(ctx, s.db, id, tiers); err != nil {
		return nil, fmt.Errorf("replace tier list: %w", err)
	}

	legs, err := s.legRepo.ListByUpload(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	summary := &pricingdomain.Summary{}
	for _, leg := range legs {
		if leg.DistanceKm == nil {
			// Unresolved legs stay unpriced and are counted separately.
			if err := s.legRepo.UpdatePrice(ctx, s.db, leg.ID, nil, nil, nil); err != nil {
				return nil, err
			}
			summary.NonPriced++
			continue
		}

		tier := matchTier(tiers, *leg.DistanceKm)
		ht := pricingdomain.Round2(tier.UnitPriceHT)
		tax := pricingdomain.Round2(ht * tier.TaxRate / 100)
		ttc := pricingdomain.Round2(ht + tax)
		label := tier.Label

		if err := s.legRepo.UpdatePrice(ctx, s.db, leg.ID, &ht, &ttc, &label); err != nil {
			return nil, err
		}
		summary.PricedLegs++
	}

	// Aggregates are recomputed from the legs table, not incrementally,
	// so repeated applies cannot drift.
	aggregates, err := s.legRepo.AggregateByClient(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	for _, agg := range aggregates {
		totalHT := pricingdomain.Round2(agg.TotalHT)
		totalTTC := pricingdomain.Round2(agg.TotalTTC)
		if err := s.clientRepo.UpdateTotals(ctx, s.db, agg.ClientID, agg.LegCount, totalHT, totalTTC); err != nil {
			return nil, err
		}
		summary.TotalHT += totalHT
		summary.TotalTTC += totalTTC
	}
	summary.Clients = len(aggregates)
	summary.TotalHT = pricingdomain.Round2(summary.TotalHT)
	summary.TotalTTC = pricingdomain.Round2(summary.TotalTTC)

	if err := s.uploadRepo.UpdateTotalAmount(ctx, s.db, id, summary.TotalTTC); err != nil {
		return nil, err
	}

	s.log.Info("pricing applied",
		zap.String("upload_id", uploadID),
		zap.Int("priced_legs", summary.PricedLegs),
		zap.Int("non_priced", summary.NonPriced),
		zap.Float64("total_ttc", summary.TotalTTC),
	)
	return summary, nil
}

func (s *Service) GetConfig(ctx context.Context, uploadID string) ([]pricingdomain.TierResponse, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(uploadID))
	if err != nil {
		return nil, uploaddomain.ErrInvalidID
	}

	tiers, err := s.repo.ListByUpload(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	if len(tiers) == 0 && s.defaults != nil {
		// No stored configuration yet: fall back to the configured defaults.
		defaults := s.defaults.Get()
		resp := make([]pricingdomain.TierResponse, 0, len(defaults.Tiers))
		for _, t := range defaults.Tiers {
			resp = append(resp, pricingdomain.TierResponse{
				StartKm:     t.StartKm,
				EndKm:       t.EndKm,
				UnitPriceHT: t.UnitPriceHT,
				TaxRate:     t.TaxRate,
				Label:       pricingdomain.TierLabel(t.StartKm, t.EndKm),
			})
		}
		return resp, nil
	}

	resp := make([]pricingdomain.TierResponse, 0, len(tiers))
	for _, t := range tiers {
		resp = append(resp, pricingdomain.TierResponse{
			StartKm:     t.StartKm,
			EndKm:       t.EndKm,
			UnitPriceHT: t.UnitPriceHT,
			TaxRate:     t.TaxRate,
			Label:       t.Label,
		})
	}
	return resp, nil
}

// buildTiers validates and materializes the tier list. The list must be
// sortable into ascending, non-overlapping closed-open ranges with at most
// one open-ended tier, in last position.
func (s *Service) buildTiers(uploadID snowflake.ID, inputs []pricingdomain.TierInput) ([]pricingdomain.Tier, error) {
	if len(inputs) == 0 {
		return nil, pricingdomain.ErrInvalidTierList
	}

	sorted := make([]pricingdomain.TierInput, len(inputs))
	copy(sorted, inputs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartKm < sorted[j].StartKm
	})

	for i, in := range sorted {
		if in.StartKm < 0 || in.UnitPriceHT < 0 || in.TaxRate < 0 {
			return nil, pricingdomain.ErrInvalidTierList
		}
		if in.EndKm != nil && *in.EndKm <= in.StartKm {
			return nil, pricingdomain.ErrInvalidTierList
		}
		if in.EndKm == nil && i != len(sorted)-1 {
			return nil, pricingdomain.ErrInvalidTierList
		}
		if i > 0 {
			prev := sorted[i-1]
			if prev.StartKm == in.StartKm {
				return nil, pricingdomain.ErrInvalidTierList
			}
			if prev.EndKm != nil && *prev.EndKm > in.StartKm {
				return nil, pricingdomain.ErrInvalidTierList
			}
		}
	}

	now := time.Now().UTC()
	tiers := make([]pricingdomain.Tier, 0, len(sorted))
	for _, in := range sorted {
		tiers = append(tiers, pricingdomain.Tier{
			ID:          s.genID.Generate(),
			UploadID:    uploadID,
			StartKm:     in.StartKm,
			EndKm:       in.EndKm,
			UnitPriceHT: in.UnitPriceHT,
			TaxRate:     in.TaxRate,
			Label:       pricingdomain.TierLabel(in.StartKm, in.EndKm),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return tiers, nil
}

// matchTier selects the first tier containing km. When nothing matches
// (a gap below the first tier's start), the lowest tier is applied rather
// than leaving the leg unpriced.
func matchTier(tiers []pricingdomain.Tier, km float64) pricingdomain.Tier {
	for _, t := range tiers {
		if t.Matches(km) {
			return t
		}
	}
	return tiers[0]
}
