package plan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// LoadExternal runs the separate loads of every external node and folds
// their results into stream. Keys are collected in one pass; each node's
// transform is then applied to every record in place. The stream is left
// rewound.
//
// A node that requires keys but found none is skipped. A top-level node
// whose key column is absent from every record of a non-empty stream is a
// configuration error: the base fetch did not project it. Errors returned
// by loaders and transforms are passed through unchanged.
func (l *Loader) LoadExternal(ctx context.Context, f Fetch, owner Source, stream Stream) error {
	external, err := l.ExternalAssociations(owner)
	if err != nil {
		return err
	}
	if len(external) == 0 {
		return nil
	}

	collected, err := collectKeys(external, stream)
	if err != nil {
		return err
	}

	for _, n := range external {
		cfg := LoaderConfig{
			Options: n.Options,
			Fetch:   f,
			Contain: n.Children(),
			NestKey: n.AliasPath,
		}

		if n.Relation.RequiresKeys(n.Options) {
			alias := n.Relation.Source().Alias()
			c := collected[n.AliasPath][alias]
			if c.keys == nil {
				if n.IsTopLevel() && stream.Count() > 0 {
					return &ConfigurationError{
						Code:     ErrCodeMissingKey,
						Source:   alias,
						Relation: n.Name,
						Path:     n.AliasPath,
						Message: fmt.Sprintf("unable to load %s: ensure %s is selected",
							n.AliasPath, strings.Join(c.columns, ", ")),
					}
				}
				slog.Debug("external load skipped", "alias_path", n.AliasPath, "reason", "no key column")
				continue
			}
			if c.keys.Len() == 0 {
				slog.Debug("external load skipped", "alias_path", n.AliasPath, "reason", "no keys")
				continue
			}
			cfg.Keys = c.keys
		}

		transform, err := n.Relation.EagerLoader(ctx, cfg)
		if err != nil {
			return err
		}

		stream.Rewind()
		for stream.Next() {
			rec, err := transform(stream.Record())
			if err != nil {
				return err
			}
			stream.Replace(rec)
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("merge %s: %w", n.AliasPath, err)
		}
		slog.Debug("external load merged", "alias_path", n.AliasPath, "keys", cfg.Keys.Len())
	}

	stream.Rewind()
	return nil
}
