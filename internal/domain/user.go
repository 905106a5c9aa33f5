package domain

import "time"

// User is an account in the credit ledger. The id is supplied by the
// client (an opaque browser-generated identifier), not minted server-side;
// the first interaction creates the row implicitly.
type User struct {
	ID      string
	Email   string
	Credits int
	// CreditsPurchased counts lifetime credits bought. It only grows, and
	// only via payment reconciliation.
	CreditsPurchased int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
