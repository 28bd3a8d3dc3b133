package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/leo2971998/DailyRoutine/internal/freebusy"
	"github.com/leo2971998/DailyRoutine/internal/planner"
	"github.com/leo2971998/DailyRoutine/internal/timerange"
)

const (
	StrategyFirstFit = "first_fit"

	DefaultBlockMinutes = 30
	MaxBlockMinutes     = 240
)

var (
	ErrInvalidWindow      = errors.New("invalid planning window")
	ErrUnknownStrategy    = errors.New("unknown planning strategy")
	ErrInvalidGranularity = planner.ErrInvalidGranularity
)

// BusySource reports the commitments of a user that intersect a window.
type BusySource interface {
	BusyRanges(ctx context.Context, userID string, window timerange.Range) ([]timerange.Range, error)
}

// Request describes one planning attempt.
type Request struct {
	UserID       string
	Window       timerange.Range
	Tasks        []planner.Task
	BlockMinutes int
	Strategy     string
}

// Service gathers busy time from its sources and runs the free-time
// calculator and the planner over one snapshot of it.
type Service struct {
	sources      []BusySource
	blockMinutes int
	logger       *slog.Logger
}

func NewService(logger *slog.Logger, blockMinutes int, sources ...BusySource) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if blockMinutes <= 0 {
		blockMinutes = DefaultBlockMinutes
	}
	return &Service{
		sources:      sources,
		blockMinutes: blockMinutes,
		logger:       logger,
	}
}

// Plan proposes blocks for req.Tasks. Nothing is persisted; applying the
// result is up to the caller.
func (s *Service) Plan(ctx context.Context, req Request) (*planner.Result, error) {
	if req.Strategy != "" && req.Strategy != StrategyFirstFit {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, req.Strategy)
	}
	blockMinutes, err := s.blockSize(req.BlockMinutes)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(req.Window); err != nil {
		return nil, err
	}

	if len(req.Tasks) == 0 {
		return planner.Plan(nil, nil, blockMinutes)
	}

	free, err := s.freeRanges(ctx, req.UserID, req.Window, blockMinutes)
	if err != nil {
		return nil, err
	}

	result, err := planner.Plan(free, req.Tasks, blockMinutes)
	if err != nil {
		return nil, fmt.Errorf("planning tasks: %w", err)
	}

	s.logger.Debug("plan computed",
		"user", req.UserID,
		"window", req.Window.String(),
		"block_minutes", blockMinutes,
		"free_ranges", len(free),
		"tasks", len(req.Tasks),
		"blocks", len(result.Blocks),
		"overflow", len(result.Overflow),
	)
	return result, nil
}

// FreeRanges returns the block-aligned free time of a user in window.
func (s *Service) FreeRanges(ctx context.Context, userID string, window timerange.Range, blockMinutes int) ([]timerange.Range, error) {
	blockMinutes, err := s.blockSize(blockMinutes)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	return s.freeRanges(ctx, userID, window, blockMinutes)
}

// Busy returns the merged busy time of a user in window across all sources.
func (s *Service) Busy(ctx context.Context, userID string, window timerange.Range) ([]timerange.Range, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	busy, err := s.collect(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	clipped := make([]timerange.Range, 0, len(busy))
	for _, b := range busy {
		if c, ok := b.UTC().Clip(window.UTC()); ok {
			clipped = append(clipped, c)
		}
	}
	return freebusy.Merge(clipped), nil
}

func (s *Service) freeRanges(ctx context.Context, userID string, window timerange.Range, blockMinutes int) ([]timerange.Range, error) {
	busy, err := s.collect(ctx, userID, window)
	if err != nil {
		return nil, err
	}
	free, err := freebusy.Calculate(window, busy, blockMinutes)
	if err != nil {
		return nil, fmt.Errorf("computing free time: %w", err)
	}
	return free, nil
}

// collect queries every source concurrently. Results keep source order so a
// given snapshot always produces the same input for the calculator.
func (s *Service) collect(ctx context.Context, userID string, window timerange.Range) ([]timerange.Range, error) {
	perSource := make([][]timerange.Range, len(s.sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		g.Go(func() error {
			busy, err := src.BusyRanges(ctx, userID, window)
			if err != nil {
				return fmt.Errorf("fetching busy ranges: %w", err)
			}
			perSource[i] = busy
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []timerange.Range
	for _, busy := range perSource {
		all = append(all, busy...)
	}
	s.logger.Debug("busy ranges collected", "user", userID, "sources", len(s.sources), "ranges", len(all))
	return all, nil
}

func (s *Service) blockSize(requested int) (int, error) {
	if requested == 0 {
		return s.blockMinutes, nil
	}
	if requested < 0 || requested > MaxBlockMinutes {
		return 0, fmt.Errorf("%w: %d is outside 1..%d", ErrInvalidGranularity, requested, MaxBlockMinutes)
	}
	return requested, nil
}

func validateWindow(w timerange.Range) error {
	if w.IsEmpty() {
		return fmt.Errorf("%w: end %s is not after start %s", ErrInvalidWindow, w.End, w.Start)
	}
	return nil
}
