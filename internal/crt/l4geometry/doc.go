// Package l4geometry owns Layer 4 (Geometry) of the CRT data model.
//
// Responsibilities: identifying the axis a panel measures precisely and
// intersecting candidate track lines with that panel's plane.
// Key types: Calculator, AxisBand, Axis.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5+.
// No SQL/database code is allowed in this package.
package l4geometry
