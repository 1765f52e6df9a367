package plan

import (
	"fmt"
	"log/slog"
	"slices"
)

// AttachAssociations folds every joinable node into f. Attaching a relation
// may contain further relations on f's loader, so the joinable set is
// recomputed after each pass and only names not yet attached are visited,
// until a pass attaches nothing.
func (l *Loader) AttachAssociations(f Fetch, owner Source, includeFields bool) error {
	attachable, err := l.AttachableAssociations(owner)
	if err != nil {
		return err
	}

	processed := make(map[string]bool)
	for pass := 1; len(attachable) > 0; pass++ {
		for _, n := range attachable {
			cfg := JoinConfig{
				Options:       n.Options,
				AliasPath:     n.AliasPath,
				PropertyPath:  n.PropertyPath,
				IncludeFields: includeFields,
				KeyFields:     keyFields(n),
			}
			if err := n.Relation.AttachTo(f, cfg); err != nil {
				return fmt.Errorf("attach %s: %w", n.AliasPath, err)
			}
			processed[n.Name] = true
			slog.Debug("relation attached",
				"relation", n.Name,
				"alias_path", n.AliasPath,
				"pass", pass)
		}

		all, err := l.AttachableAssociations(owner)
		if err != nil {
			return err
		}
		attachable = attachable[:0:0]
		for _, n := range all {
			if !processed[n.Name] {
				attachable = append(attachable, n)
			}
		}
	}
	return nil
}

// keyFields lists the target columns the keyed loads of n's external
// children read from the joined row.
func keyFields(n *Node) []string {
	var out []string
	for _, c := range n.Children() {
		if c.CanBeJoined || !c.Relation.RequiresKeys(c.Options) {
			continue
		}
		for _, col := range CorrelationColumns(c.Relation, c.Options) {
			if !slices.Contains(out, col) {
				out = append(out, col)
			}
		}
	}
	return out
}
