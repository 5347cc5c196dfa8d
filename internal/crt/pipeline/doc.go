// Package pipeline is the composition root of CRT track reconstruction.
//
// It runs one event through L2 Tzero clustering, L3 hit averaging and L5
// track building, and records the per-cluster outputs and metrics. The
// pipeline owns no domain logic; it delegates to the layer packages.
//
// Dependency rule: pipeline imports the layer packages, never the reverse.
// No SQL/database code is allowed in this package.
package pipeline
