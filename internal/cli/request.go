package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/roach88/fetchplan/internal/plan"
	"github.com/roach88/fetchplan/internal/resource"
)

// FetchRequest holds the query flags shared by explain and fetch.
type FetchRequest struct {
	Select      []string
	Where       []string // field=value, value parsed as a YAML scalar
	Order       []string
	Limit       int
	Finder      string
	Contain     []string // dotted relation paths
	ContainFile string   // YAML containment document
	Matching    []string
	InnerJoin   []string
	LeftJoin    []string
	NotMatching []string
}

// AddFlags registers the request flags on fs.
func (r *FetchRequest) AddFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&r.Select, "select", nil, "fields of the base resource")
	fs.StringArrayVar(&r.Where, "where", nil, "condition as field=value (repeatable)")
	fs.StringSliceVar(&r.Order, "order", nil, "sort terms, e.g. title,id DESC")
	fs.IntVar(&r.Limit, "limit", 0, "maximum number of base records")
	fs.StringVar(&r.Finder, "finder", "", "named finder of the base resource")
	fs.StringSliceVar(&r.Contain, "contain", nil, "relation paths to eager load")
	fs.StringVar(&r.ContainFile, "contain-file", "", "YAML file describing the containment")
	fs.StringSliceVar(&r.Matching, "matching", nil, "relation paths base records must match")
	fs.StringSliceVar(&r.InnerJoin, "inner-join", nil, "relation paths to inner join without selecting")
	fs.StringSliceVar(&r.LeftJoin, "left-join", nil, "relation paths to left join without selecting")
	fs.StringSliceVar(&r.NotMatching, "not-matching", nil, "relation paths base records must not match")
}

// Apply configures q from the request.
func (r *FetchRequest) Apply(q *resource.Query) error {
	if len(r.Select) > 0 {
		q.Select(r.Select...)
	}
	if len(r.Where) > 0 {
		conds, err := parseConditions(r.Where)
		if err != nil {
			return err
		}
		q.Where(conds)
	}
	if r.Finder != "" {
		q.Find(r.Finder)
	}
	if len(r.Order) > 0 {
		q.OrderBy(r.Order...)
	}
	if r.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", r.Limit)
	}
	if r.Limit > 0 {
		q.Limit(r.Limit)
	}
	if len(r.Contain) > 0 {
		q.Contain(r.Contain)
	}
	if r.ContainFile != "" {
		data, err := os.ReadFile(r.ContainFile)
		if err != nil {
			return fmt.Errorf("failed to read contain file: %w", err)
		}
		spec, err := plan.ParseSpecYAML(data)
		if err != nil {
			return fmt.Errorf("invalid contain file %s: %w", r.ContainFile, err)
		}
		q.Contain(spec)
	}
	for _, path := range r.Matching {
		q.Matching(path, nil)
	}
	for _, path := range r.InnerJoin {
		q.InnerJoinWith(path, nil)
	}
	for _, path := range r.LeftJoin {
		q.LeftJoinWith(path, nil)
	}
	for _, path := range r.NotMatching {
		q.NotMatching(path, nil)
	}
	return q.Err()
}

// parseConditions turns field=value pairs into a conditions map. Values
// are YAML scalars, so published=true is a bool and id=3 an int.
func parseConditions(pairs []string) (map[string]any, error) {
	conds := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		field, raw, ok := strings.Cut(pair, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid condition %q: expected field=value", pair)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid condition %q: %w", pair, err)
		}
		conds[field] = v
	}
	return conds, nil
}
