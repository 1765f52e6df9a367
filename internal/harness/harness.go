package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/fetchplan/internal/compiler"
	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/resource"
	"github.com/roach88/fetchplan/internal/store"
	"github.com/roach88/fetchplan/internal/testutil"
)

// Harness runs scenarios with sequential query ids against a fresh store.
type Harness struct {
	store  *store.Store
	ids    *testutil.SequenceIDs
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Errors returned here
// mean the scenario could not run at all (bad catalog, bad seed, a fetch
// that fails to plan); failed assertions are reported on the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	specs, err := LoadCatalog(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		ids:    testutil.NewSequenceIDs("q"),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	if err := h.seed(ctx, scenario); err != nil {
		return nil, err
	}

	cat, err := resource.NewCatalog(specs, resource.WithIDGenerator(h.ids.Next))
	if err != nil {
		return nil, err
	}
	q, err := cat.Query(scenario.Resource, st)
	if err != nil {
		return nil, err
	}
	q = Apply(q, scenario)

	result := NewResult()
	if result.SQL, result.Params, err = q.SQL(); err != nil {
		return nil, fmt.Errorf("failed to plan fetch: %w", err)
	}
	if result.Params == nil {
		result.Params = []any{}
	}
	if result.Plan, err = q.Describe(); err != nil {
		return nil, fmt.Errorf("failed to describe plan: %w", err)
	}
	if result.Fingerprint, err = ir.PlanFingerprint(result.Plan); err != nil {
		return nil, err
	}

	if result.Records, err = q.All(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"query_id", q.ID(),
		"records", len(result.Records),
		"pass", result.Pass,
	)
	return result, nil
}

// Apply configures q from the fetch fields of a scenario.
func Apply(q *resource.Query, s *Scenario) *resource.Query {
	if len(s.Select) > 0 {
		q.Select(s.Select...)
	}
	if len(s.Where) > 0 {
		q.Where(s.Where)
	}
	if s.Finder != "" {
		q.Find(s.Finder)
	}
	if len(s.Order) > 0 {
		q.OrderBy(s.Order...)
	}
	if s.Limit > 0 {
		q.Limit(s.Limit)
	}
	if !s.Contain.IsZero() {
		q.Contain(s.Contain.Value)
	}
	for _, step := range s.Matching {
		fn := stepBuilder(step)
		switch step.Kind {
		case MatchInner:
			q.InnerJoinWith(step.Path, fn)
		case MatchLeft:
			q.LeftJoinWith(step.Path, fn)
		case MatchNot:
			q.NotMatching(step.Path, fn)
		default:
			q.Matching(step.Path, fn)
		}
	}
	return q
}

func stepBuilder(step MatchStep) resource.Builder {
	if len(step.Where) == 0 && len(step.Fields) == 0 {
		return nil
	}
	return func(q *resource.Query) *resource.Query {
		if len(step.Where) > 0 {
			q.Where(step.Where)
		}
		return q.Select(step.Fields...)
	}
}

// LoadCatalog compiles the catalog of a scenario.
func LoadCatalog(s *Scenario) ([]ir.ResourceSpec, error) {
	src, name := []byte(s.CatalogSource), "catalog_source"
	if s.Catalog != "" {
		data, err := os.ReadFile(s.Catalog)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
		src, name = data, s.Catalog
	}

	v := cuecontext.New().CompileBytes(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile catalog: %w", err)
	}
	specs, err := compiler.CompileCatalog(v)
	if err != nil {
		return nil, fmt.Errorf("failed to compile catalog: %w", err)
	}
	return specs, nil
}

func (h *Harness) seed(ctx context.Context, s *Scenario) error {
	if s.Seed != "" {
		data, err := os.ReadFile(s.Seed)
		if err != nil {
			return fmt.Errorf("failed to read seed: %w", err)
		}
		if err := h.store.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
	}
	if s.SeedSQL != "" {
		if err := h.store.Exec(ctx, s.SeedSQL); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
	}
	return nil
}
