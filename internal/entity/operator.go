package entity

// Operator is the back-office user behind an admin token.
type Operator struct {
	ID       string
	Username string
	Email    string
}
