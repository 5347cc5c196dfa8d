// Package l1hits owns Layer 1 (Hits) of the CRT data model.
//
// Responsibilities: the reconstructed CRT hit record, readout events,
// panel roles, and decoding hit files.
// Key types: Hit, Event, PanelRole, RoleMap.
//
// Dependency rule: L1 depends on nothing else under internal/crt.
// No SQL/database code is allowed in this package.
package l1hits
