package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
	"github.com/AntonStoeckl/library-catalog-go/catalog/postgresengine"
)

const (
	scenarioCirculation = "circulation"
	scenarioLending     = "lending"

	operationTimeout = 5 * time.Second
	statsInterval    = 10 * time.Second
	loanPeriodDays   = 21
)

var errEmptyCatalog = errors.New("the catalog has no editions or readers, run seed first")

type loadConfig struct {
	Rate            int
	ScenarioWeights [2]int
}

type loadStats struct {
	Requests   int64
	Errors     int64
	Rejections int64
	Elapsed    time.Duration
}

// loadGenerator fires one scenario per tick, each in its own goroutine.
type loadGenerator struct {
	editions *postgresengine.BookEditionRepository
	loans    *postgresengine.LoanRepository
	config   loadConfig

	editionIDs []int64
	cards      []string

	wg        sync.WaitGroup
	mu        sync.Mutex
	stats     loadStats
	startTime time.Time
}

func newLoadGenerator(ctx context.Context, engine *postgresengine.Engine, config loadConfig) (*loadGenerator, error) {
	g := &loadGenerator{
		editions: postgresengine.NewBookEditionRepository(engine),
		loans:    postgresengine.NewLoanRepository(engine),
		config:   config,
	}

	editions, err := g.editions.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	readers, err := postgresengine.NewReaderRepository(engine).GetAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, e := range editions {
		g.editionIDs = append(g.editionIDs, e.ID)
	}

	for _, r := range readers {
		g.cards = append(g.cards, r.LibraryCardNumber)
	}

	if len(g.editionIDs) == 0 || len(g.cards) == 0 {
		return nil, errEmptyCatalog
	}

	return g, nil
}

// Run blocks until ctx is done and all started scenarios have finished.
func (g *loadGenerator) Run(ctx context.Context) {
	g.mu.Lock()
	g.startTime = time.Now()
	g.mu.Unlock()

	ticker := time.NewTicker(time.Second / time.Duration(g.config.Rate))
	defer ticker.Stop()

	report := time.NewTicker(statsInterval)
	defer report.Stop()

	for {
		select {
		case <-ctx.Done():
			g.wg.Wait()
			return

		case <-report.C:
			g.logStats()

		case <-ticker.C:
			g.wg.Add(1)
			go g.executeScenario(ctx)
		}
	}
}

func (g *loadGenerator) Stats() loadStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	stats := g.stats
	stats.Elapsed = time.Since(g.startTime)

	return stats
}

func (g *loadGenerator) executeScenario(ctx context.Context) {
	defer g.wg.Done()

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), operationTimeout)
	defer cancel()

	scenario := selectScenario(g.config.ScenarioWeights, rand.IntN(100)) //nolint:gosec // load data only

	var err error
	switch scenario {
	case scenarioCirculation:
		err = g.runCirculationScenario(opCtx)
	default:
		err = g.runLendingScenario(opCtx)
	}

	g.record(scenario, err)
}

func (g *loadGenerator) record(scenario string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stats.Requests++

	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrCapacityExceeded):
		g.stats.Rejections++
	default:
		g.stats.Errors++
		slog.Warn("scenario failed", "scenario", scenario, "error", err)
	}
}

// selectScenario maps roll in [0, 100) onto the weights.
func selectScenario(weights [2]int, roll int) string {
	if roll < weights[0] {
		return scenarioCirculation
	}

	return scenarioLending
}

// runCirculationScenario adds or removes one copy of a random edition.
func (g *loadGenerator) runCirculationScenario(ctx context.Context) error {
	edition, err := g.editions.GetByID(ctx, g.randomEdition())
	if err != nil {
		return err
	}

	if edition == nil {
		return nil
	}

	if rand.IntN(2) == 0 || edition.TotalCopies == 0 { //nolint:gosec // load data only
		edition.TotalCopies++
	} else {
		edition.TotalCopies--
	}

	return g.editions.Update(ctx, *edition)
}

// runLendingScenario lends a random edition to a random reader, or returns one of the reader's loans.
func (g *loadGenerator) runLendingScenario(ctx context.Context) error {
	card := g.randomCard()
	today := time.Now().UTC().Truncate(24 * time.Hour)

	if rand.IntN(2) == 0 { //nolint:gosec // load data only
		return g.loans.Add(ctx, &catalog.Loan{
			BookEditionID:     g.randomEdition(),
			LibraryCardNumber: card,
			LoanDate:          today,
			DueDate:           today.AddDate(0, 0, loanPeriodDays),
		})
	}

	open, err := g.loans.GetOpenLoansByReader(ctx, card)
	if err != nil || len(open) == 0 {
		return err
	}

	return g.loans.Return(ctx, open[rand.IntN(len(open))].ID, today) //nolint:gosec // load data only
}

func (g *loadGenerator) randomEdition() int64 {
	return g.editionIDs[rand.IntN(len(g.editionIDs))] //nolint:gosec // load data only
}

func (g *loadGenerator) randomCard() string {
	return g.cards[rand.IntN(len(g.cards))] //nolint:gosec // load data only
}

func (g *loadGenerator) logStats() {
	stats := g.Stats()
	if stats.Elapsed <= 0 {
		return
	}

	slog.Info("load stats",
		"requests", stats.Requests,
		"requests_per_second", float64(stats.Requests)/stats.Elapsed.Seconds(),
		"errors", stats.Errors,
		"capacity_rejections", stats.Rejections,
	)
}
