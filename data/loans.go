package data

import (
	"time"

	"github.com/haraujo/libraryapi/internal/validator"
)

// LoanStatus is the state of a loan. A loan starts open and moves to returned
// exactly once; returned is terminal.
type LoanStatus string

const (
	LoanStatusOpen     LoanStatus = "open"
	LoanStatusReturned LoanStatus = "returned"
)

// Loan records a book lent to a customer. A book may accumulate many loans over
// time but carries at most one open loan at any moment.
type Loan struct {
	ID            int64      `json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	Book          Book       `json:"book"`
	Customer      string     `json:"customer"`
	CustomerEmail string     `json:"customer_email"`
	LoanDate      time.Time  `json:"loan_date"`
	Status        LoanStatus `json:"status"`
	Version       int32      `json:"-"`
}

// Returned reports whether the loan has reached its terminal state.
func (l *Loan) Returned() bool {
	return l.Status == LoanStatusReturned
}

func ValidateLoan(v *validator.Validator, loan *Loan) {
	v.Check(loan.Customer != "", "customer", "must be provided")
	v.Check(len(loan.Customer) <= 500, "customer", "must not be more than 500 bytes long")
	v.Check(loan.CustomerEmail != "", "customer_email", "must be provided")
	v.Check(validator.Matches(loan.CustomerEmail, validator.EmailRX), "customer_email", "must be a valid email address")
}

// LoanFilter narrows a loan search. A loan matches when its book's isbn equals
// Isbn or its customer equals Customer; the two dimensions combine as a union,
// and empty fields act as wildcards.
type LoanFilter struct {
	Isbn     string
	Customer string
}
