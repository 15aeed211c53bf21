package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/haraujo/libraryapi/data"
)

type loans interface {
	CreateLoan(loan *data.Loan) error
	GetLoan(loanID int64) (*data.Loan, error)
	OpenLoanExistsForBook(bookID int64) (bool, error)
	GetAllLoans(filter data.LoanFilter, filters data.Filters) ([]*data.Loan, data.Metadata, error)
	GetLoansForBook(bookID int64, filters data.Filters) ([]*data.Loan, data.Metadata, error)
	GetOpenLoansBefore(cutoff time.Time) ([]*data.Loan, error)
	UpdateLoan(loan *data.Loan) error
}

// CreateLoan creates a new loan record in the open state. A partial unique index on
// loans(book_id) WHERE status = 'open' enforces the one-open-loan-per-book rule at
// the storage level, so a concurrent insert surfaces as ErrDuplicateRecord instead
// of slipping past the service layer's existence pre-check.
func (r *repository) CreateLoan(loan *data.Loan) error {
	query := `
		INSERT INTO loans (book_id, customer, customer_email, loan_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, status, version`
	args := []interface{}{loan.Book.ID, loan.Customer, loan.CustomerEmail, loan.LoanDate}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&loan.ID, &loan.CreatedAt, &loan.Status, &loan.Version)
	if err != nil {
		switch {
		case err.Error() == `pq: duplicate key value violates unique constraint "loans_one_open_per_book_idx"`:
			return ErrDuplicateRecord
		default:
			return err
		}
	}
	return nil
}

// GetLoan retrieves a loan record and its book by the loan ID.
func (r *repository) GetLoan(loanID int64) (*data.Loan, error) {
	if loanID < 1 {
		return nil, ErrRecordNotFound
	}
	query := `
		SELECT loans.id, loans.created_at, loans.customer, loans.customer_email, loans.loan_date, loans.status, loans.version,
		books.id, books.created_at, books.title, books.author, books.isbn, books.cover_path, books.version
		FROM loans
		INNER JOIN books ON books.id = loans.book_id
		WHERE loans.id = $1`
	var loan data.Loan
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, loanID).Scan(
		&loan.ID,
		&loan.CreatedAt,
		&loan.Customer,
		&loan.CustomerEmail,
		&loan.LoanDate,
		&loan.Status,
		&loan.Version,
		&loan.Book.ID,
		&loan.Book.CreatedAt,
		&loan.Book.Title,
		&loan.Book.Author,
		&loan.Book.Isbn,
		&loan.Book.CoverPath,
		&loan.Book.Version,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &loan, nil
}

// OpenLoanExistsForBook reports whether the book currently has an open loan.
func (r *repository) OpenLoanExistsForBook(bookID int64) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM loans WHERE book_id = $1 AND status = 'open')`
	var exists bool
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, bookID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// GetAllLoans retrieves a paginated list of loan records. A loan matches when its
// book's isbn equals the isbn filter or its customer equals the customer filter
// (a union across the two dimensions, not an intersection). When both filter
// fields are empty every loan matches.
func (r *repository) GetAllLoans(filter data.LoanFilter, filters data.Filters) ([]*data.Loan, data.Metadata, error) {
	query := fmt.Sprintf(`
		SELECT count(*) OVER(), loans.id, loans.created_at, loans.customer, loans.customer_email, loans.loan_date, loans.status, loans.version,
		books.id, books.created_at, books.title, books.author, books.isbn, books.cover_path, books.version
		FROM loans
		INNER JOIN books ON books.id = loans.book_id
		WHERE (books.isbn = $1 AND $1 <> '')
		OR (loans.customer = $2 AND $2 <> '')
		OR ($1 = '' AND $2 = '')
		ORDER BY loans.%s %s, loans.id ASC
		LIMIT $3 OFFSET $4`,
		filters.SortColumn(), filters.SortDirection(),
	)
	args := []interface{}{
		filter.Isbn,
		filter.Customer,
		filters.Limit(),
		filters.Offset(),
	}
	return r.queryLoans(query, args, filters)
}

// GetLoansForBook retrieves a paginated list of all loans referencing the given
// book, returned or not.
func (r *repository) GetLoansForBook(bookID int64, filters data.Filters) ([]*data.Loan, data.Metadata, error) {
	query := fmt.Sprintf(`
		SELECT count(*) OVER(), loans.id, loans.created_at, loans.customer, loans.customer_email, loans.loan_date, loans.status, loans.version,
		books.id, books.created_at, books.title, books.author, books.isbn, books.cover_path, books.version
		FROM loans
		INNER JOIN books ON books.id = loans.book_id
		WHERE loans.book_id = $1
		ORDER BY loans.%s %s, loans.id ASC
		LIMIT $2 OFFSET $3`,
		filters.SortColumn(), filters.SortDirection(),
	)
	args := []interface{}{bookID, filters.Limit(), filters.Offset()}
	return r.queryLoans(query, args, filters)
}

// queryLoans runs a paginated loans query and scans the joined loan and book rows.
func (r *repository) queryLoans(query string, args []interface{}, filters data.Filters) ([]*data.Loan, data.Metadata, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, data.Metadata{}, err
	}
	defer rows.Close()
	totalRecords := 0
	loans := []*data.Loan{}
	for rows.Next() {
		var loan data.Loan
		err := rows.Scan(
			&totalRecords,
			&loan.ID,
			&loan.CreatedAt,
			&loan.Customer,
			&loan.CustomerEmail,
			&loan.LoanDate,
			&loan.Status,
			&loan.Version,
			&loan.Book.ID,
			&loan.Book.CreatedAt,
			&loan.Book.Title,
			&loan.Book.Author,
			&loan.Book.Isbn,
			&loan.Book.CoverPath,
			&loan.Book.Version,
		)
		if err != nil {
			return nil, data.Metadata{}, err
		}
		loans = append(loans, &loan)
	}
	if err = rows.Err(); err != nil {
		return nil, data.Metadata{}, err
	}
	metadata := data.CalculateMetadata(totalRecords, filters.Page, filters.PageSize)
	return loans, metadata, nil
}

// GetOpenLoansBefore retrieves every open loan whose loan date falls strictly
// before the cutoff date. The result is materialized in full since the overdue
// sweep consumes it immediately.
func (r *repository) GetOpenLoansBefore(cutoff time.Time) ([]*data.Loan, error) {
	query := `
		SELECT loans.id, loans.created_at, loans.customer, loans.customer_email, loans.loan_date, loans.status, loans.version,
		books.id, books.created_at, books.title, books.author, books.isbn, books.cover_path, books.version
		FROM loans
		INNER JOIN books ON books.id = loans.book_id
		WHERE loans.status = 'open' AND loans.loan_date < $1
		ORDER BY loans.loan_date ASC, loans.id ASC`
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	loans := []*data.Loan{}
	for rows.Next() {
		var loan data.Loan
		err := rows.Scan(
			&loan.ID,
			&loan.CreatedAt,
			&loan.Customer,
			&loan.CustomerEmail,
			&loan.LoanDate,
			&loan.Status,
			&loan.Version,
			&loan.Book.ID,
			&loan.Book.CreatedAt,
			&loan.Book.Title,
			&loan.Book.Author,
			&loan.Book.Isbn,
			&loan.Book.CoverPath,
			&loan.Book.Version,
		)
		if err != nil {
			return nil, err
		}
		loans = append(loans, &loan)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return loans, nil
}

// UpdateLoan updates a loan record's status. The version column guards against
// concurrent edits.
func (r *repository) UpdateLoan(loan *data.Loan) error {
	query := `
		UPDATE loans
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version`
	args := []interface{}{loan.Status, loan.ID, loan.Version}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&loan.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrEditConflict
		default:
			return err
		}
	}
	return nil
}
