package matching

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nirojbhetuwal/lostbuddy/internal/metrics"
	"github.com/nirojbhetuwal/lostbuddy/internal/model"
	"github.com/nirojbhetuwal/lostbuddy/internal/notify"
)

// ItemRepository is the persistence the Finder needs. Lookups of missing
// records return an error wrapping model.ErrNotFound.
type ItemRepository interface {
	FindItem(ctx context.Context, id string) (*model.Item, error)
	// FindCandidates returns items of the given type, status and category,
	// excluding excludeID, in a stable order.
	FindCandidates(ctx context.Context, itemType, status, category, excludeID string) ([]*model.Item, error)
	ListItemsByReporter(ctx context.Context, reporterID string) ([]*model.Item, error)
	// RaiseMatchScore sets the item's score to max(current, score).
	RaiseMatchScore(ctx context.Context, id string, score float64) error
	// LinkMatch moves both items to matched and points them at each other,
	// provided neither status changed since the items were read. Otherwise
	// it applies nothing and returns an error wrapping model.ErrConflict.
	LinkMatch(ctx context.Context, lost, found *model.Item) error
}

// Authorizer decides whether a user may act on an item as its owner.
type Authorizer interface {
	IsOwnerOrAdmin(ctx context.Context, userID string, item *model.Item) (bool, error)
}

// SuggestionCache stores computed suggestion lists per user. Lists are
// filed under a generation; advancing it retires every stored list, since
// any item change can alter anyone's suggestions.
type SuggestionCache interface {
	Generation(ctx context.Context) (int64, error)
	GetSuggestions(ctx context.Context, gen int64, userID string) ([]Suggestion, bool, error)
	SetSuggestions(ctx context.Context, gen int64, userID string, s []Suggestion) error
	InvalidateAll(ctx context.Context) error
}

// Config tunes the Finder.
type Config struct {
	AutoThreshold    float64
	AutoLimit        int
	SuggestThreshold float64
	SuggestPerItem   int
	SuggestLimit     int
	// Workers bounds how many candidates are scored concurrently.
	Workers int
}

// DefaultConfig returns the standard thresholds and limits.
func DefaultConfig() Config {
	return Config{
		AutoThreshold:    0.7,
		AutoLimit:        3,
		SuggestThreshold: 0.5,
		SuggestPerItem:   2,
		SuggestLimit:     5,
		Workers:          8,
	}
}

// Match is one ranked candidate.
type Match struct {
	Item      *model.Item `json:"item"`
	Score     float64     `json:"score"`
	Breakdown Breakdown   `json:"breakdown"`
}

// Suggestion pairs one of the user's open items with a likely match.
type Suggestion struct {
	UserItem  *model.Item `json:"user_item"`
	Item      *model.Item `json:"item"`
	Score     float64     `json:"score"`
	Breakdown Breakdown   `json:"breakdown"`
}

// AutoMatchResult summarises an auto-match run.
type AutoMatchResult struct {
	MatchesFound int    `json:"matches_found"`
	TopMatch     *Match `json:"top_match,omitempty"`
}

// Statistics summarises a user's match history.
type Statistics struct {
	TotalItems        int     `json:"total_items"`
	ItemsWithMatches  int     `json:"items_with_matches"`
	AverageMatchScore float64 `json:"average_match_score"`
	BestMatchScore    float64 `json:"best_match_score"`
	RecentMatches     int     `json:"recent_matches"`
}

// Finder ranks candidate matches and applies match decisions.
type Finder struct {
	repo    ItemRepository
	agg     *Aggregator
	auth    Authorizer
	sink    notify.Sink
	cache   SuggestionCache
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time
}

// Option configures optional Finder collaborators.
type Option func(*Finder)

// WithCache enables suggestion caching.
func WithCache(c SuggestionCache) Option {
	return func(f *Finder) { f.cache = c }
}

// WithMetrics records match runs.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Finder) { f.metrics = m }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Finder) { f.logger = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Finder) { f.now = now }
}

// NewFinder creates a Finder.
func NewFinder(repo ItemRepository, agg *Aggregator, auth Authorizer, sink notify.Sink, cfg Config, opts ...Option) (*Finder, error) {
	if err := validateThreshold(cfg.AutoThreshold); err != nil {
		return nil, err
	}
	if err := validateThreshold(cfg.SuggestThreshold); err != nil {
		return nil, err
	}
	if cfg.AutoLimit <= 0 || cfg.SuggestPerItem <= 0 || cfg.SuggestLimit <= 0 {
		return nil, fmt.Errorf("%w: match limits must be positive", model.ErrValidation)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	f := &Finder{
		repo:   repo,
		agg:    agg,
		auth:   auth,
		sink:   sink,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func validateThreshold(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("%w: threshold must be within [0, 1], got %v", model.ErrValidation, t)
	}
	return nil
}

// Config returns the thresholds and limits the Finder runs with.
func (f *Finder) Config() Config {
	return f.cfg
}

// FindMatches ranks open opposite-type items of the same category by score,
// keeping those at or above threshold.
func (f *Finder) FindMatches(ctx context.Context, itemID string, threshold float64) ([]Match, error) {
	item, err := f.repo.FindItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("finding item: %w", err)
	}
	return f.rank(ctx, item, threshold, metrics.ModeFind)
}

func (f *Finder) rank(ctx context.Context, item *model.Item, threshold float64, mode string) ([]Match, error) {
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	start := f.now()

	candidates, err := f.repo.FindCandidates(ctx,
		model.OppositeType(item.Type), model.ItemStatusOpen, item.Category, item.ID)
	if err != nil {
		return nil, fmt.Errorf("finding candidates: %w", err)
	}

	results := make([]Result, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Workers)
	for i, c := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = f.score(item, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring candidates: %w", err)
	}

	var matches []Match
	for i, r := range results {
		if r.Total < threshold {
			continue
		}
		matches = append(matches, Match{Item: candidates[i], Score: r.Total, Breakdown: r.Breakdown})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	f.metrics.ObserveMatch(mode, len(candidates), f.now().Sub(start))
	return matches, nil
}

// score always passes the lost item first.
func (f *Finder) score(item, candidate *model.Item) Result {
	if item.Type == model.ItemTypeLost {
		return f.agg.Score(item, candidate)
	}
	return f.agg.Score(candidate, item)
}

// AutoMatch runs on a newly reported item. The top matches above the
// auto-match threshold notify both reporters and raise both items' scores.
func (f *Finder) AutoMatch(ctx context.Context, itemID string) (*AutoMatchResult, error) {
	item, err := f.repo.FindItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("finding item: %w", err)
	}

	matches, err := f.rank(ctx, item, f.cfg.AutoThreshold, metrics.ModeAuto)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &AutoMatchResult{}, nil
	}

	top := matches
	if len(top) > f.cfg.AutoLimit {
		top = top[:f.cfg.AutoLimit]
	}

	for _, m := range top {
		if err := f.repo.RaiseMatchScore(ctx, item.ID, m.Score); err != nil {
			return nil, fmt.Errorf("raising match score: %w", err)
		}
		if err := f.repo.RaiseMatchScore(ctx, m.Item.ID, m.Score); err != nil {
			return nil, fmt.Errorf("raising match score: %w", err)
		}

		f.notify(ctx, matchFound(item, m.Item, m))
		f.notify(ctx, matchFound(m.Item, item, m))
	}
	f.ItemChanged(ctx)

	f.logger.Info("auto-match", "item", item.ID, "matches", len(matches), "top_score", matches[0].Score)

	first := matches[0]
	return &AutoMatchResult{MatchesFound: len(matches), TopMatch: &first}, nil
}

func matchFound(own, other *model.Item, m Match) model.Notification {
	return model.Notification{
		UserID:        own.ReporterID,
		Type:          model.NotificationMatchFound,
		Title:         "Potential Match Found!",
		Message:       fmt.Sprintf("We found a potential match for your %s item %q", own.Type, own.Title),
		RelatedItemID: own.ID,
		Metadata: map[string]any{
			"matchedItem":    other.ID,
			"matchScore":     m.Score,
			"matchBreakdown": m.Breakdown,
		},
	}
}

// Suggestions returns the best matches across the user's open items. It
// never changes any state.
func (f *Finder) Suggestions(ctx context.Context, userID string) ([]Suggestion, error) {
	// The generation is read before scoring so that a change made while
	// scoring leaves the result filed under the retired generation.
	cache := f.cache
	var gen int64
	if cache != nil {
		var err error
		if gen, err = cache.Generation(ctx); err != nil {
			f.logger.Warn("reading suggestion cache generation", "error", err)
			cache = nil
		}
	}
	if cache != nil {
		cached, ok, err := cache.GetSuggestions(ctx, gen, userID)
		if err != nil {
			f.logger.Warn("reading suggestion cache", "user", userID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	items, err := f.repo.ListItemsByReporter(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing user items: %w", err)
	}

	suggestions := []Suggestion{}
	for _, item := range items {
		if item.Status != model.ItemStatusOpen {
			continue
		}
		matches, err := f.rank(ctx, item, f.cfg.SuggestThreshold, metrics.ModeSuggest)
		if err != nil {
			return nil, err
		}
		if len(matches) > f.cfg.SuggestPerItem {
			matches = matches[:f.cfg.SuggestPerItem]
		}
		for _, m := range matches {
			suggestions = append(suggestions, Suggestion{
				UserItem:  item,
				Item:      m.Item,
				Score:     m.Score,
				Breakdown: m.Breakdown,
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > f.cfg.SuggestLimit {
		suggestions = suggestions[:f.cfg.SuggestLimit]
	}

	if cache != nil {
		if err := cache.SetSuggestions(ctx, gen, userID, suggestions); err != nil {
			f.logger.Warn("writing suggestion cache", "user", userID, "error", err)
		}
	}
	return suggestions, nil
}

// ConfirmMatch links a lost item with a found item. The actor must own one of
// the items or be an admin, and both items must be allowed to move to
// matched.
func (f *Finder) ConfirmMatch(ctx context.Context, actorID, lostID, foundID string) (lost, found *model.Item, err error) {
	lost, err = f.repo.FindItem(ctx, lostID)
	if err != nil {
		return nil, nil, fmt.Errorf("finding lost item: %w", err)
	}
	found, err = f.repo.FindItem(ctx, foundID)
	if err != nil {
		return nil, nil, fmt.Errorf("finding found item: %w", err)
	}

	ok, err := f.authorizedForEither(ctx, actorID, lost, found)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: only the reporters or an admin can confirm a match", model.ErrUnauthorized)
	}

	if lost.Type != model.ItemTypeLost || found.Type != model.ItemTypeFound {
		return nil, nil, fmt.Errorf("%w: items must be one lost and one found", model.ErrValidation)
	}
	for _, it := range []*model.Item{lost, found} {
		if !model.CanTransitionItem(it.Status, model.ItemStatusMatched) {
			return nil, nil, fmt.Errorf("%w: item %s is %s and cannot be matched", model.ErrInvalidState, it.ID, it.Status)
		}
	}

	if err := f.repo.LinkMatch(ctx, lost, found); err != nil {
		return nil, nil, fmt.Errorf("linking match: %w", err)
	}

	lost.Status, lost.MatchedWith = model.ItemStatusMatched, found.ID
	found.Status, found.MatchedWith = model.ItemStatusMatched, lost.ID

	f.notify(ctx, model.Notification{
		UserID:        lost.ReporterID,
		Type:          model.NotificationMatchConfirmed,
		Title:         "Match Confirmed!",
		Message:       fmt.Sprintf("Your lost item %q has been matched with a found item. Contact the finder to arrange return.", lost.Title),
		RelatedItemID: lost.ID,
		Metadata:      map[string]any{"matchedItem": found.ID, "contactInfo": found.ContactInfo},
	})
	f.notify(ctx, model.Notification{
		UserID:        found.ReporterID,
		Type:          model.NotificationMatchConfirmed,
		Title:         "Match Confirmed!",
		Message:       fmt.Sprintf("Your found item %q has been matched with a lost item. Contact the owner to arrange return.", found.Title),
		RelatedItemID: found.ID,
		Metadata:      map[string]any{"matchedItem": lost.ID, "contactInfo": lost.ContactInfo},
	})
	f.ItemChanged(ctx)

	f.logger.Info("match confirmed", "lost", lost.ID, "found", found.ID, "by", actorID)
	return lost, found, nil
}

func (f *Finder) authorizedForEither(ctx context.Context, actorID string, items ...*model.Item) (bool, error) {
	for _, it := range items {
		ok, err := f.auth.IsOwnerOrAdmin(ctx, actorID, it)
		if err != nil {
			return false, fmt.Errorf("checking authorization: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Statistics summarises the match scores recorded on the user's items.
func (f *Finder) Statistics(ctx context.Context, userID string) (*Statistics, error) {
	items, err := f.repo.ListItemsByReporter(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing user items: %w", err)
	}

	stats := &Statistics{TotalItems: len(items)}
	since := f.now().AddDate(0, 0, -30)
	var total float64
	for _, it := range items {
		if it.MatchScore > 0 {
			stats.ItemsWithMatches++
			total += it.MatchScore
			stats.BestMatchScore = max(stats.BestMatchScore, it.MatchScore)
		}
		if it.Status == model.ItemStatusMatched && !it.UpdatedAt.Before(since) {
			stats.RecentMatches++
		}
	}
	if stats.ItemsWithMatches > 0 {
		stats.AverageMatchScore = total / float64(stats.ItemsWithMatches)
	}
	return stats, nil
}

// ItemChanged retires every cached suggestion list. It is called after an
// item is reported, rescored or changes status.
func (f *Finder) ItemChanged(ctx context.Context) {
	if f.cache == nil {
		return
	}
	if err := f.cache.InvalidateAll(ctx); err != nil {
		f.logger.Warn("invalidating suggestion cache", "error", err)
	}
}

func (f *Finder) notify(ctx context.Context, n model.Notification) {
	if f.sink == nil {
		return
	}
	notify.Stamp(&n, f.now())
	if err := f.sink.Notify(ctx, n); err != nil {
		f.metrics.NotificationFailed()
		f.logger.Error("sending notification", "user", n.UserID, "type", n.Type, "error", err)
	}
}
