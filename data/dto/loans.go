package dto

import "github.com/haraujo/libraryapi/data"

// QsListLoans defines the query strings used for listing loans.
type QsListLoans struct {
	Isbn     string
	Customer string
	Filters  data.Filters
}

// CreateLoanRequestBody defines the request body for CreateLoan service. The book
// being lent is identified by its isbn.
type CreateLoanRequestBody struct {
	Isbn          string `json:"isbn"`
	Customer      string `json:"customer"`
	CustomerEmail string `json:"customer_email"`
}

// ReturnLoanRequestBody defines the request body for ReturnLoan service.
type ReturnLoanRequestBody struct {
	Returned bool `json:"returned"`
}
