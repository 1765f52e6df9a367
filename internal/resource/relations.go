package resource

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/fetchplan/internal/ir"
	"github.com/roach88/fetchplan/internal/plan"
	"github.com/roach88/fetchplan/internal/queryir"
)

// association holds what every relation kind shares.
type association struct {
	spec   ir.RelationSpec
	source *Resource
	target *Resource
}

func (a *association) Name() string                { return a.spec.Name }
func (a *association) Source() plan.Source         { return a.source }
func (a *association) Target() plan.Source         { return a.target }
func (a *association) Cardinality() ir.Cardinality { return a.spec.Kind.Cardinality() }
func (a *association) ForeignKey() []string        { return a.spec.ForeignKey }
func (a *association) BindingKey() []string        { return a.spec.BindingKey }

func (a *association) Property() string {
	if a.spec.Property == "" {
		return a.spec.Name
	}
	return a.spec.Property
}

// strategy resolves the loading strategy: node option, then catalog, then
// the kind default.
func (a *association) strategy(opts plan.Options, def ir.Strategy) ir.Strategy {
	if a.spec.Strategy != "" {
		def = a.spec.Strategy
	}
	return opts.StrategyOr(def)
}

func (a *association) joinKind(opts plan.Options) ir.JoinKind {
	def := ir.JoinLeft
	if a.spec.JoinType != "" {
		def = a.spec.JoinType
	}
	return opts.JoinTypeOr(def)
}

func (a *association) foreignKey(opts plan.Options) []string {
	if len(opts.ForeignKey) > 0 {
		return opts.ForeignKey
	}
	return a.spec.ForeignKey
}

// attachTarget joins the target table into the fetch being built. on
// correlates the target with whatever it hangs off. It reports whether
// target columns were projected.
//
// Columns are projected unless the node asked for none; a projection
// selected by the node's query builder is honored either way. Negated
// matches never project.
func (a *association) attachTarget(q *Query, sel *queryir.Select, cfg plan.JoinConfig, on queryir.Predicate) (bool, error) {
	alias := a.target.alias
	if sel.HasJoin(alias) {
		return false, nil
	}

	on = queryir.Conjoin(on, conditionsPredicate(alias, a.spec.Conditions))
	on = queryir.Conjoin(on, conditionsPredicate(alias, cfg.Conditions))
	fields := cfg.Fields
	requested := false

	if cfg.Finder != "" {
		finder, err := a.target.finder(cfg.Finder)
		if err != nil {
			return false, err
		}
		on = queryir.Conjoin(on, conditionsPredicate(alias, finder.Conditions))
		if !cfg.IsMatching() {
			for _, path := range finder.Contain {
				if err := q.loader.Contain(ir.JoinPath(cfg.AliasPath, path)); err != nil {
					return false, err
				}
			}
		}
	}

	if cfg.QueryBuilder != nil {
		scratch, err := applyBuilder(cfg.QueryBuilder, newQuery(a.target, q.exec))
		if err != nil {
			return false, err
		}
		on = queryir.Conjoin(on, scratch.filter)
		if len(scratch.fields) > 0 {
			fields = scratch.fields
			requested = true
		}
	}

	kind := a.joinKind(cfg.Options)
	if cfg.NegateMatch {
		kind = ir.JoinLeft
		sel.Where(queryir.IsNull{Alias: alias, Field: a.target.spec.PrimaryKey[0]})
	}
	sel.Joins = append(sel.Joins, queryir.Join{
		Kind:  kind,
		Table: a.target.spec.Table,
		Alias: alias,
		On:    on,
	})

	if !cfg.IncludeFields || cfg.NegateMatch || (cfg.NoFields && !requested) {
		return false, nil
	}
	if len(fields) == 0 {
		fields = a.target.spec.Columns
	}
	sel.AddColumns(alias, fields...)
	sel.AddColumns(alias, cfg.KeyFields...)
	return true, nil
}

// keyEquals correlates left and right column sets pairwise.
func keyEquals(leftAlias string, left []string, rightAlias string, right []string) queryir.Predicate {
	preds := make([]queryir.Predicate, 0, len(left))
	for i := range left {
		preds = append(preds, queryir.ColumnEquals{
			LeftAlias:  leftAlias,
			LeftField:  left[i],
			RightAlias: rightAlias,
			RightField: right[i],
		})
	}
	if len(preds) == 1 {
		return preds[0]
	}
	return queryir.And{Predicates: preds}
}

// BelongsTo is a many-to-one relation: the source holds the foreign key.
type BelongsTo struct {
	association
}

// CanBeJoined is true unless another strategy was chosen.
func (r *BelongsTo) CanBeJoined(opts plan.Options) bool {
	return r.strategy(opts, ir.StrategyJoin) == ir.StrategyJoin
}

// RequiresKeys is true for the select strategy.
func (r *BelongsTo) RequiresKeys(opts plan.Options) bool {
	return r.strategy(opts, ir.StrategyJoin) == ir.StrategySelect
}

// AttachTo joins the target on its binding key.
func (r *BelongsTo) AttachTo(f plan.Fetch, cfg plan.JoinConfig) error {
	q, sel, err := building(f)
	if err != nil {
		return err
	}
	on := keyEquals(r.target.alias, r.spec.BindingKey, r.source.alias, r.foreignKey(cfg.Options))
	_, err = r.attachTarget(q, sel, cfg, on)
	return err
}

// EagerLoader fetches the targets referenced by the collected foreign keys.
func (r *BelongsTo) EagerLoader(ctx context.Context, cfg plan.LoaderConfig) (plan.Transform, error) {
	return r.load(ctx, cfg, loadPlan{
		strategy:    r.strategy(cfg.Options, ir.StrategyJoin),
		filterAlias: r.target.alias,
		targetKey:   r.spec.BindingKey,
		sourceKey:   r.foreignKey(cfg.Options),
		single:      true,
	})
}

// HasOne is a one-to-one relation: the target holds the foreign key.
type HasOne struct {
	association
}

// CanBeJoined is true unless another strategy was chosen.
func (r *HasOne) CanBeJoined(opts plan.Options) bool {
	return r.strategy(opts, ir.StrategyJoin) == ir.StrategyJoin
}

// RequiresKeys is true for the select strategy.
func (r *HasOne) RequiresKeys(opts plan.Options) bool {
	return r.strategy(opts, ir.StrategyJoin) == ir.StrategySelect
}

// AttachTo joins the target on its foreign key.
func (r *HasOne) AttachTo(f plan.Fetch, cfg plan.JoinConfig) error {
	q, sel, err := building(f)
	if err != nil {
		return err
	}
	on := keyEquals(r.target.alias, r.foreignKey(cfg.Options), r.source.alias, r.spec.BindingKey)
	_, err = r.attachTarget(q, sel, cfg, on)
	return err
}

// EagerLoader fetches the target rows pointing at the collected keys.
func (r *HasOne) EagerLoader(ctx context.Context, cfg plan.LoaderConfig) (plan.Transform, error) {
	return r.load(ctx, cfg, loadPlan{
		strategy:    r.strategy(cfg.Options, ir.StrategyJoin),
		filterAlias: r.target.alias,
		targetKey:   r.foreignKey(cfg.Options),
		sourceKey:   r.spec.BindingKey,
		single:      true,
	})
}

// HasMany is a one-to-many relation. It is joined only for matching.
type HasMany struct {
	association
}

// CanBeJoined is true for matching nodes only.
func (r *HasMany) CanBeJoined(opts plan.Options) bool {
	return opts.IsMatching()
}

// RequiresKeys is false for matching nodes and the subquery strategy.
func (r *HasMany) RequiresKeys(opts plan.Options) bool {
	return !r.CanBeJoined(opts) && r.strategy(opts, ir.StrategySelect) != ir.StrategySubquery
}

// AttachTo joins the target on its foreign key, one row per target.
func (r *HasMany) AttachTo(f plan.Fetch, cfg plan.JoinConfig) error {
	q, sel, err := building(f)
	if err != nil {
		return err
	}
	on := keyEquals(r.target.alias, r.foreignKey(cfg.Options), r.source.alias, r.spec.BindingKey)
	_, err = r.attachTarget(q, sel, cfg, on)
	return err
}

// EagerLoader fetches the target rows pointing at the collected keys.
func (r *HasMany) EagerLoader(ctx context.Context, cfg plan.LoaderConfig) (plan.Transform, error) {
	return r.load(ctx, cfg, loadPlan{
		strategy:    r.strategy(cfg.Options, ir.StrategySelect),
		filterAlias: r.target.alias,
		targetKey:   r.foreignKey(cfg.Options),
		sourceKey:   r.spec.BindingKey,
	})
}

// BelongsToMany is a many-to-many relation through a pivot table. The
// pivot holds the foreign key to the source and TargetForeignKey to the
// target.
type BelongsToMany struct {
	association
}

// CanBeJoined is true for matching nodes only.
func (r *BelongsToMany) CanBeJoined(opts plan.Options) bool {
	return opts.IsMatching()
}

// RequiresKeys is false for matching nodes and the subquery strategy.
func (r *BelongsToMany) RequiresKeys(opts plan.Options) bool {
	return !r.CanBeJoined(opts) && r.strategy(opts, ir.StrategySelect) != ir.StrategySubquery
}

// PivotAlias is the alias of the pivot table: the camel-cased table name.
//
//	articles_tags -> ArticlesTags
func (r *BelongsToMany) PivotAlias() string {
	caser := cases.Title(language.Und)
	parts := strings.FieldsFunc(r.spec.Through, func(c rune) bool { return c == '_' || c == '-' })
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return strings.Join(parts, "")
}

// pivotColumns are the pivot columns carried as join data.
func (r *BelongsToMany) pivotColumns(opts plan.Options) []string {
	return append(append([]string(nil), r.foreignKey(opts)...), r.spec.TargetForeignKey...)
}

// AttachTo joins the pivot and then the target. A negated match is a
// NOT IN over the pivot instead: joining would keep source rows through
// their other pivot rows.
func (r *BelongsToMany) AttachTo(f plan.Fetch, cfg plan.JoinConfig) error {
	q, sel, err := building(f)
	if err != nil {
		return err
	}
	pivot := r.PivotAlias()
	fk := r.foreignKey(cfg.Options)

	if cfg.NegateMatch {
		return r.attachNegated(q, sel, cfg, pivot, fk)
	}

	newPivot := !sel.HasJoin(pivot)
	if newPivot {
		sel.Joins = append(sel.Joins, queryir.Join{
			Kind:  r.joinKind(cfg.Options),
			Table: r.spec.Through,
			Alias: pivot,
			On:    keyEquals(pivot, fk, r.source.alias, r.spec.BindingKey),
		})
	}

	on := keyEquals(r.target.alias, r.target.spec.PrimaryKey, pivot, r.spec.TargetForeignKey)
	projected, err := r.attachTarget(q, sel, cfg, on)
	if err != nil {
		return err
	}
	if newPivot && projected {
		sel.AddColumns(pivot, r.pivotColumns(cfg.Options)...)
		q.loader.AddToJoinsMap(pivot, r, true, "")
	}
	return nil
}

func (r *BelongsToMany) attachNegated(q *Query, sel *queryir.Select, cfg plan.JoinConfig, pivot string, fk []string) error {
	inner := queryir.Select{
		From:  r.spec.Through,
		Alias: pivot,
	}
	inner.AddColumns(pivot, fk...)

	matched := cfg
	matched.NegateMatch = false
	matched.NoFields = true
	matched.Options.JoinType = ir.JoinInner
	on := keyEquals(r.target.alias, r.target.spec.PrimaryKey, pivot, r.spec.TargetForeignKey)
	if _, err := r.attachTarget(q, &inner, matched, on); err != nil {
		return err
	}
	inner.Distinct = true

	sel.Where(queryir.SubqueryIn{
		Alias:  r.source.alias,
		Fields: r.spec.BindingKey,
		Query:  inner,
		Negate: true,
	})
	return nil
}

// EagerLoader fetches the targets through the pivot. Pivot columns are
// hydrated under the join data key of every target row.
func (r *BelongsToMany) EagerLoader(ctx context.Context, cfg plan.LoaderConfig) (plan.Transform, error) {
	pivot := r.PivotAlias()
	fk := r.foreignKey(cfg.Options)
	return r.load(ctx, cfg, loadPlan{
		strategy:    r.strategy(cfg.Options, ir.StrategySelect),
		filterAlias: pivot,
		targetKey:   fk,
		sourceKey:   r.spec.BindingKey,
		joinData:    true,
		prepare: func(q *Query) {
			q.prepare = append(q.prepare, func(sel *queryir.Select) {
				if sel.HasJoin(pivot) {
					return
				}
				sel.Joins = append(sel.Joins, queryir.Join{
					Kind:  ir.JoinInner,
					Table: r.spec.Through,
					Alias: pivot,
					On:    keyEquals(pivot, r.spec.TargetForeignKey, r.target.alias, r.target.spec.PrimaryKey),
				})
				sel.AddColumns(pivot, r.pivotColumns(cfg.Options)...)
			})
			q.loader.AddToJoinsMap(pivot, r, false, ir.JoinDataKey)
		},
	})
}

// building returns the query and select an AttachTo call works on.
func building(f plan.Fetch) (*Query, *queryir.Select, error) {
	q, ok := f.(*Query)
	if !ok {
		return nil, nil, fmt.Errorf("unsupported fetch type %T", f)
	}
	if q.building == nil {
		return nil, nil, fmt.Errorf("query on %s is not being built", q.source.alias)
	}
	return q, q.building, nil
}
