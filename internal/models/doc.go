// Package models defines the core domain models for the splitledger engine.
//
// # Entities
//
//   - Expense: an immutable record that one participant paid an amount,
//     split among a set of debtors
//   - Debt: one debtor's obligation toward one Expense, identified by the
//     composite key (ExpenseID, DebtorID)
//   - DebtStatus: the three-state confirmation workflow a Debt moves through
//
// Participants are owned by an external directory (see package directory);
// the engine references them by integer identifier only and never creates,
// updates, or deletes them.
//
// # Design Principles
//
//  1. Monetary values are decimal.Decimal, never floats. The minimal
//     currency unit is one cent (two decimal places).
//  2. Expenses are append-only: once recorded, their monetary facts never
//     change. Only Debt statuses change.
//  3. Relationships use ID fields instead of pointers to avoid circular
//     references between entities and views.
package models
