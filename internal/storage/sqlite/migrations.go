package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// Amounts are stored as integer cents; the store converts to and from
// decimal at the boundary so no float arithmetic ever touches money.
// Expense ids come from the rowid sequence, which makes id order equal
// creation order. Debts never cascade: participants referenced by ledger
// rows are not removable by design.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id INTEGER PRIMARY KEY,
    display_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS expenses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    payer_id INTEGER NOT NULL,
    amount_cents INTEGER NOT NULL CHECK (amount_cents > 0),
    description TEXT NOT NULL,
    share_cents INTEGER NOT NULL CHECK (share_cents > 0),
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS debts (
    expense_id INTEGER NOT NULL,
    debtor_id INTEGER NOT NULL,
    share_cents INTEGER NOT NULL CHECK (share_cents > 0),
    status TEXT NOT NULL CHECK (status IN ('pending', 'marked', 'confirmed')),
    PRIMARY KEY (expense_id, debtor_id),
    FOREIGN KEY (expense_id) REFERENCES expenses(id)
);

CREATE INDEX IF NOT EXISTS idx_debts_debtor_id ON debts(debtor_id);
CREATE INDEX IF NOT EXISTS idx_debts_status ON debts(status);
CREATE INDEX IF NOT EXISTS idx_expenses_payer_id ON expenses(payer_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
