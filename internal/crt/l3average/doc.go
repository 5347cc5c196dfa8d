// Package l3average owns Layer 3 (Hit averaging) of the CRT data model.
//
// Responsibilities: merging spatially co-located hits inside a Tzero
// cluster into composite hits, keeping track of which original hits
// contributed to each composite.
// Key types: Averager, AveragedHit.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
// No SQL/database code is allowed in this package.
package l3average
