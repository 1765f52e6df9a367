// Package harness runs fetch scenarios against a seeded in-memory database
// and checks the plan and the hydrated records they produce.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: articles_with_authors
//	description: "Authors are joined, comments loaded separately"
//	catalog: blog.cue          # or catalog_source: inline CUE
//	seed: blog.sql             # or seed_sql: inline SQL
//	resource: Articles
//	select: [id, title]
//	where: { published: true }
//	order: [title]
//	limit: 10
//	finder: published
//	contain:
//	  Authors:
//	  Comments:
//	    sort: [id]
//	matching:
//	  - path: Tags
//	    kind: matching         # matching | inner | left | not
//	    where: { label: go }
//	assertions:
//	  - type: count
//	    count: 2
//	  - type: path_equals
//	    path: 0.Authors.name
//	    value: ann
//	  - type: joined
//	    aliases: [Authors]
//	  - type: external
//	    aliases: [Comments]
//
// Paths in catalog and seed are relative to the scenario file.
//
// # Assertion Types
//
//   - count: number of base records
//   - path_equals: value at a dotted path into the records; list elements
//     are addressed by index
//   - joined: alias paths that must be resolved into the base fetch
//   - external: alias paths that must be loaded by a separate fetch
//
// # Deterministic Testing
//
// Each run uses a fresh in-memory SQLite database and sequential query ids,
// so the SQL and records of a scenario are stable and can be compared with
// golden snapshots.
package harness
