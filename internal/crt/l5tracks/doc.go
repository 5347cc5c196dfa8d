// Package l5tracks owns Layer 5 (Tracks) of the CRT data model.
//
// Responsibilities: pairing averaged hits on different taggers into
// straight-line candidates, collecting supporting hits on the other
// panels, scanning the free axis of 1D bottom hits, and greedily selecting
// a hit-disjoint track set.
// Key types: Builder, Track, TrackWithIDs.
//
// Dependency rule: L5 may depend on L1-L4.
// No SQL/database code is allowed in this package.
package l5tracks
