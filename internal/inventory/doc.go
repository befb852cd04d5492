// Package inventory is the accounting core: the ledger over chemicals and
// zones, and the transfer engine that moves quantity between unplaced stock
// and zone placements.
//
// # Conservation
//
// For any chemical, unplaced quantity plus the sum of its batch quantities
// is invariant across placements and returns. Only AddChemical,
// UpdateChemical and DeleteChemical change the total. Both transfer
// directions wrap their three writes (stock, zone load, batch row) in a
// single store transaction, so a failure at any step leaves all three
// untouched.
//
// # Errors
//
// Validation errors (ErrEmptyName, ErrNonPositiveQuantity, ...) fire before
// any storage access. Business-rule errors carry the offending numbers
// (InsufficientStockError, InsufficientCapacityError, ExcessReturnError) so
// a caller can react without a second round trip. Storage errors are wrapped
// and surfaced as-is.
//
// Activity-log write failures are swallowed deliberately: the audit trail is
// advisory and must never fail the operation it records.
package inventory
