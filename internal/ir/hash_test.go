package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanFingerprintDeterminism(t *testing.T) {
	desc := map[string]any{
		"joinable": []string{"Authors"},
		"external": []string{"Authors.Books"},
	}

	fp1, err := PlanFingerprint(desc)
	require.NoError(t, err)
	fp2, err := PlanFingerprint(map[string]any{
		"external": []string{"Authors.Books"},
		"joinable": []string{"Authors"},
	})
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2, "key order must not change the fingerprint")
	assert.Len(t, fp1, 64, "SHA-256 hex is 64 characters")
}

func TestPlanFingerprintChangesWithInput(t *testing.T) {
	fp1, err := PlanFingerprint(map[string]any{"joinable": []string{"Authors"}})
	require.NoError(t, err)
	fp2, err := PlanFingerprint(map[string]any{"external": []string{"Authors"}})
	require.NoError(t, err)

	assert.NotEqual(t, fp1, fp2)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t, hashWithDomain(DomainPlan, data), hashWithDomain(DomainCatalog, data))
}

func TestCatalogHash(t *testing.T) {
	resources := []ResourceSpec{{
		Name:       "Articles",
		Table:      "articles",
		PrimaryKey: []string{"id"},
		Columns:    []string{"id", "title"},
		Relations: []RelationSpec{{
			Name: "Authors", Kind: BelongsTo, Target: "Authors", ForeignKey: []string{"author_id"},
		}},
	}}

	h1, err := CatalogHash(resources)
	require.NoError(t, err)
	resources[0].Relations[0].Strategy = StrategySelect
	h2, err := CatalogHash(resources)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}
