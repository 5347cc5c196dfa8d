// Package l2tzero owns Layer 2 (Tzero clustering) of the CRT data model.
//
// Responsibilities: partitioning a readout's hits into groups that are
// coincident in time.
// Key types: Clusterer, Params.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
// No SQL/database code is allowed in this package.
package l2tzero
