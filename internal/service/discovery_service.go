package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"supply-service/internal/geo"
	"supply-service/internal/models"
	"supply-service/internal/util"

	"go.uber.org/zap"
)

// DiscoveryOptions tune the search pipeline defaults.
type DiscoveryOptions struct {
	DefaultMaxDistanceKm float64
	DefaultMinRating     float64

	// VerifiedFallback, when set, makes an empty verified candidate set
	// fall back to the unfiltered set instead of returning no results.
	// Off by default: silently defeating the caller's verified_only
	// filter is surprising, so it has to be opted into.
	VerifiedFallback bool
}

// DiscoveryService ranks suppliers for a vendor's search. Read-only and
// lock-free; it tolerates slightly stale ratings and availability.
type DiscoveryService struct {
	store  DiscoveryStore
	cache  RatingCache
	opts   DiscoveryOptions
	logger *zap.Logger
}

// NewDiscoveryService creates a new discovery service
func NewDiscoveryService(store DiscoveryStore, cache RatingCache, opts DiscoveryOptions) *DiscoveryService {
	if opts.DefaultMaxDistanceKm <= 0 {
		opts.DefaultMaxDistanceKm = 50
	}
	return &DiscoveryService{
		store:  store,
		cache:  cache,
		opts:   opts,
		logger: util.GetLogger(),
	}
}

// SearchParams is one vendor search. Query arrives already normalized by
// the upstream text collaborator; empty means "any available item".
type SearchParams struct {
	VendorID      string
	Query         string
	MaxDistanceKm float64
	MinRating     float64
	VerifiedOnly  bool
}

// RankedSupplier is one search hit with its ranking annotations.
type RankedSupplier struct {
	Supplier     models.Supplier   `json:"supplier"`
	DistanceKm   float64           `json:"distance_km"`
	Score        float64           `json:"score"`
	MatchedItems []models.Material `json:"matched_items"`
}

// StageCounts is the diagnostic breakdown of candidates surviving each
// pipeline stage, for search-quality observability.
type StageCounts struct {
	Total        int `json:"total"`
	Verified     int `json:"verified"`
	ProductMatch int `json:"product_match"`
	Geo          int `json:"geo"`
	Rating       int `json:"rating"`
}

// SearchResult is the ranked list plus diagnostics.
type SearchResult struct {
	Suppliers               []RankedSupplier `json:"suppliers"`
	Stages                  StageCounts      `json:"stages"`
	VerifiedFallbackApplied bool             `json:"verified_fallback_applied"`
}

type candidate struct {
	supplier models.Supplier
	matched  []models.Material
	distance float64
	score    float64
}

// Search runs the filter/score pipeline: verification, product match,
// distance, rating, then scoring and ranking. Stage order matters for
// the diagnostic counts.
func (s *DiscoveryService) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	ctx, span := util.StartSpan(ctx, "DiscoveryService.Search")
	defer span.End()

	util.SearchesTotal.Inc()
	start := time.Now()
	defer func() {
		util.SearchLatency.Observe(time.Since(start).Seconds())
	}()

	vendor, err := s.store.GetVendorByID(ctx, params.VendorID)
	if err != nil {
		return nil, err
	}
	if !vendor.HasLocation() {
		return nil, models.ErrVendorLocationMissing
	}

	if params.MaxDistanceKm <= 0 {
		params.MaxDistanceKm = s.opts.DefaultMaxDistanceKm
	}
	if params.MinRating <= 0 {
		params.MinRating = s.opts.DefaultMinRating
	}

	suppliers, err := s.store.GetSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	itemsBySupplier, err := s.store.GetAvailableMaterials(ctx)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Stages: StageCounts{Total: len(suppliers)}}

	// Stage 1: verification.
	pool := suppliers
	if params.VerifiedOnly {
		verified := make([]models.Supplier, 0, len(pool))
		for _, sup := range pool {
			if sup.IsVerified {
				verified = append(verified, sup)
			}
		}
		if len(verified) == 0 && s.opts.VerifiedFallback {
			util.SearchVerifiedFallbacks.Inc()
			result.VerifiedFallbackApplied = true
		} else {
			pool = verified
		}
	}
	result.Stages.Verified = len(pool)

	// Stage 2: product match.
	term := strings.ToLower(strings.TrimSpace(params.Query))
	candidates := make([]candidate, 0, len(pool))
	for _, sup := range pool {
		matched := matchItems(itemsBySupplier[sup.ID], term)
		if len(matched) == 0 {
			continue
		}
		candidates = append(candidates, candidate{supplier: sup, matched: matched})
	}
	result.Stages.ProductMatch = len(candidates)

	// Stage 3: distance.
	within := candidates[:0]
	for _, c := range candidates {
		if !c.supplier.HasLocation() {
			continue
		}
		d := geo.DistanceKm(vendor.Lat.Float64, vendor.Lng.Float64,
			c.supplier.Lat.Float64, c.supplier.Lng.Float64)
		if d > params.MaxDistanceKm {
			continue
		}
		c.distance = d
		within = append(within, c)
	}
	candidates = within
	result.Stages.Geo = len(candidates)

	// Stage 4: rating. Cache-first; a stale snapshot is acceptable here.
	rated := candidates[:0]
	for _, c := range candidates {
		avg := s.ratingFor(ctx, &c.supplier)
		if avg < params.MinRating {
			continue
		}
		c.supplier.RatingAverage = avg
		rated = append(rated, c)
	}
	candidates = rated
	result.Stages.Rating = len(candidates)

	// Stages 5 and 6: score and rank.
	for i := range candidates {
		c := &candidates[i]
		c.score = geo.ProximityScore(c.distance) +
			c.supplier.RatingAverage*2 +
			float64(len(c.matched))*3
		if c.supplier.IsVerified {
			c.score += 5
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].distance < candidates[j].distance
	})

	result.Suppliers = make([]RankedSupplier, len(candidates))
	for i, c := range candidates {
		result.Suppliers[i] = RankedSupplier{
			Supplier:     c.supplier,
			DistanceKm:   c.distance,
			Score:        c.score,
			MatchedItems: c.matched,
		}
	}

	util.SearchResults.Observe(float64(len(result.Suppliers)))
	s.logger.Debug("Search completed",
		zap.String("vendor_id", params.VendorID),
		zap.String("query", params.Query),
		zap.Int("results", len(result.Suppliers)))

	return result, nil
}

// matchItems returns the available items matching the normalized term.
// An empty term matches every available item.
func matchItems(items []models.Material, term string) []models.Material {
	var matched []models.Material
	for _, item := range items {
		if !item.IsAvailable {
			continue
		}
		if term == "" || itemMatches(&item, term) {
			matched = append(matched, item)
		}
	}
	return matched
}

// itemMatches tests name, description, and category against the term:
// exact, containment either direction, or trailing-s singular/plural.
func itemMatches(item *models.Material, term string) bool {
	for _, field := range []string{item.Name, item.Description, item.Category} {
		if fieldMatches(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func fieldMatches(field, term string) bool {
	if field == "" {
		return false
	}
	if strings.Contains(field, term) || strings.Contains(term, field) {
		return true
	}

	singular := strings.TrimSuffix(term, "s")
	plural := term + "s"
	return strings.Contains(field, plural) ||
		(singular != term && strings.Contains(field, singular))
}

// ratingFor reads the supplier's rating cache-first, falling back to the
// value loaded with the supplier row.
func (s *DiscoveryService) ratingFor(ctx context.Context, supplier *models.Supplier) float64 {
	avg, _, found, err := s.cache.GetSupplierRating(ctx, supplier.ID)
	if err != nil {
		s.logger.Warn("Rating cache read failed",
			zap.String("supplier_id", supplier.ID), zap.Error(err))
		return supplier.RatingAverage
	}
	if !found {
		return supplier.RatingAverage
	}
	return avg
}
