package service

import (
	"errors"
	"time"

	"github.com/haraujo/libraryapi/data"
	"github.com/haraujo/libraryapi/data/dto"
	"github.com/haraujo/libraryapi/internal/validator"
	"github.com/haraujo/libraryapi/repository"
)

type loans interface {
	CreateLoan(requestBody dto.CreateLoanRequestBody) (*data.Loan, error)
	GetLoan(loanID int64) (*data.Loan, error)
	ReturnLoan(loanID int64, requestBody dto.ReturnLoanRequestBody) (*data.Loan, error)
	ListLoans(filter data.LoanFilter, filters data.Filters) ([]*data.Loan, data.Metadata, error)
	GetLoansForBook(bookID int64, filters data.Filters) ([]*data.Loan, data.Metadata, error)
	GetAllLateLoans() ([]*data.Loan, error)
}

// CreateLoan service lends a book to a customer. The book is resolved by its isbn
// and must not already be out on loan: a pre-check rejects the common case before
// any write, and the storage-level partial unique index closes the window between
// the check and the insert, so a conflicting concurrent writer surfaces the same
// ErrBookAlreadyLoaned.
func (s *service) CreateLoan(requestBody dto.CreateLoanRequestBody) (*data.Loan, error) {
	book, err := s.repo.GetBookByIsbn(requestBody.Isbn)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	loan := &data.Loan{
		Book:          *book,
		Customer:      requestBody.Customer,
		CustomerEmail: requestBody.CustomerEmail,
		LoanDate:      time.Now(),
	}
	v := validator.New()
	if data.ValidateLoan(v, loan); !v.Valid() {
		return nil, s.failedValidation(v.Errors)
	}
	loaned, err := s.repo.OpenLoanExistsForBook(book.ID)
	if err != nil {
		return nil, err
	}
	if loaned {
		return nil, ErrBookAlreadyLoaned
	}
	err = s.repo.CreateLoan(loan)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateRecord):
			return nil, ErrBookAlreadyLoaned
		default:
			return nil, err
		}
	}
	return loan, nil
}

// GetLoan service retrieves the details of a loan.
func (s *service) GetLoan(loanID int64) (*data.Loan, error) {
	loan, err := s.repo.GetLoan(loanID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return loan, nil
}

// ReturnLoan service marks a loan as returned, putting the book back in
// circulation. The transition is one-way and idempotent: returning an already
// returned loan leaves it returned, and a false returned flag does not reopen it.
func (s *service) ReturnLoan(loanID int64, requestBody dto.ReturnLoanRequestBody) (*data.Loan, error) {
	if loanID < 1 {
		return nil, ErrInvalidEntity
	}
	loan, err := s.repo.GetLoan(loanID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	if !requestBody.Returned || loan.Returned() {
		return loan, nil
	}
	loan.Status = data.LoanStatusReturned
	err = s.repo.UpdateLoan(loan)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEditConflict):
			return nil, ErrEditConflict
		default:
			return nil, err
		}
	}
	return loan, nil
}

// ListLoans service retrieves a paginated list of loans matching the isbn filter
// or the customer filter. The two dimensions combine as a union, not an
// intersection; with neither set every loan matches.
func (s *service) ListLoans(filter data.LoanFilter, filters data.Filters) ([]*data.Loan, data.Metadata, error) {
	v := validator.New()
	if data.ValidateFilters(v, filters); !v.Valid() {
		return nil, data.Metadata{}, s.failedValidation(v.Errors)
	}
	loans, metadata, err := s.repo.GetAllLoans(filter, filters)
	if err != nil {
		return nil, data.Metadata{}, err
	}
	return loans, metadata, nil
}

// GetLoansForBook service retrieves a paginated list of every loan referencing a
// book, returned or not.
func (s *service) GetLoansForBook(bookID int64, filters data.Filters) ([]*data.Loan, data.Metadata, error) {
	v := validator.New()
	if data.ValidateFilters(v, filters); !v.Valid() {
		return nil, data.Metadata{}, s.failedValidation(v.Errors)
	}
	_, err := s.repo.GetBook(bookID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, data.Metadata{}, ErrRecordNotFound
		default:
			return nil, data.Metadata{}, err
		}
	}
	loans, metadata, err := s.repo.GetLoansForBook(bookID, filters)
	if err != nil {
		return nil, data.Metadata{}, err
	}
	return loans, metadata, nil
}

// GetAllLateLoans service retrieves every open loan whose loan date is strictly
// earlier than today minus the configured loan period. A loan taken out exactly
// at the period boundary is not late yet.
func (s *service) GetAllLateLoans() ([]*data.Loan, error) {
	cutoff := s.lateCutoff(time.Now())
	return s.repo.GetOpenLoansBefore(cutoff)
}

// lateCutoff derives the overdue cutoff date from a reference time, truncated to
// midnight UTC so the comparison works on calendar dates.
func (s *service) lateCutoff(now time.Time) time.Time {
	periodDays := s.config.Loans.PeriodDays
	day := now.UTC().Truncate(24 * time.Hour)
	return day.AddDate(0, 0, -periodDays)
}
