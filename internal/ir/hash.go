package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm changes.
const (
	DomainPlan    = "fetchplan/plan/v1"
	DomainCatalog = "fetchplan/catalog/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PlanFingerprint identifies a compiled fetch plan. Two plans with the same
// canonical description share a fingerprint regardless of map order.
func PlanFingerprint(description map[string]any) (string, error) {
	canonical, err := MarshalCanonical(description)
	if err != nil {
		return "", fmt.Errorf("PlanFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPlan, canonical), nil
}

// CatalogHash identifies a compiled catalog.
func CatalogHash(resources []ResourceSpec) (string, error) {
	list := make([]any, len(resources))
	for i, r := range resources {
		list[i] = resourceToMap(r)
	}
	canonical, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("CatalogHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCatalog, canonical), nil
}

func resourceToMap(r ResourceSpec) map[string]any {
	rels := make([]any, len(r.Relations))
	for i, rel := range r.Relations {
		rels[i] = map[string]any{
			"name":        rel.Name,
			"kind":        string(rel.Kind),
			"target":      rel.Target,
			"foreign_key": rel.ForeignKey,
			"binding_key": rel.BindingKey,
			"strategy":    string(rel.Strategy),
			"through":     rel.Through,
		}
	}
	return map[string]any{
		"name":        r.Name,
		"table":       r.Table,
		"primary_key": r.PrimaryKey,
		"columns":     r.Columns,
		"relations":   rels,
	}
}
