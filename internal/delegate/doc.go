// Package delegate holds the client-side objects mirroring NOODLES server components.
//
// Every component kind has a default delegate embedding Base and the decoded protocol
// body. Applications replace defaults per kind through a Registry; custom delegates
// embed a default delegate and override the OnNew/OnUpdate/OnRemove hooks.
//
// Delegates are mutated only by the client's read loop.
package delegate
