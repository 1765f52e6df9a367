// Package plan compiles nested containment specifications into fetch plans
// and executes the data-independent half of eager loading.
//
// A Loader owns one request's plan:
//
//	[Spec] → Normalized (compile) → AttachableAssociations / ExternalAssociations (resolve)
//	       → AttachAssociations (join onto the base fetch)
//	       → LoadExternal (collect keys, run keyed loads, fold results into the stream)
//
// The package never executes a fetch itself. It talks to data sources only
// through the Source, Relation, Fetch and Stream interfaces; the resource
// package provides the SQL-backed implementations.
//
// # Join resolution
//
// Every compiled Node is either joinable (folded into the base fetch) or
// external (loaded by a second fetch and merged by correlation keys). Joinable
// nodes are grouped by root path and name; when two joinable nodes below the
// top level share a name inside the same root, all but one are demoted to the
// select strategy so their aliases cannot collide inside one fetch. A node
// whose strategy was set explicitly keeps it.
//
// # Memoization
//
// The compiled tree and the resolution results are cached on the Loader and
// dropped by every containment mutation, including an empty Contain call.
package plan
