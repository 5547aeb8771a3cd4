// Package definitions supplies the read-only conformance material consumed
// by the checkers: the base JSON schema, StructureDefinition profiles and
// ValueSets.
//
// A Provider answers lookups and never fails for missing data; it returns
// nil or false instead. Snapshot is an immutable in-memory Provider. Store
// loads a Snapshot from disk on first access and serves it afterwards.
package definitions
