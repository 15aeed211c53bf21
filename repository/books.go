package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/haraujo/libraryapi/data"
)

type books interface {
	CreateBook(book *data.Book) error
	GetBook(bookID int64) (*data.Book, error)
	GetBookByIsbn(isbn string) (*data.Book, error)
	BookExistsByIsbn(isbn string) (bool, error)
	GetAllBooks(filter data.BookFilter, filters data.Filters) ([]*data.Book, data.Metadata, error)
	UpdateBook(book *data.Book) error
	DeleteBook(bookID int64) error
}

// CreateBook creates a new book record. The books table carries a unique index on
// isbn, so a concurrent insert with the same isbn surfaces as ErrDuplicateRecord
// rather than slipping past the service layer's existence pre-check.
func (r *repository) CreateBook(book *data.Book) error {
	query := `
		INSERT INTO books (title, author, isbn)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version`
	args := []interface{}{book.Title, book.Author, book.Isbn}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&book.ID, &book.CreatedAt, &book.Version)
	if err != nil {
		switch {
		case err.Error() == `pq: duplicate key value violates unique constraint "books_isbn_key"`:
			return ErrDuplicateRecord
		default:
			return err
		}
	}
	return nil
}

// GetBook retrieves a book record by its ID.
func (r *repository) GetBook(bookID int64) (*data.Book, error) {
	if bookID < 1 {
		return nil, ErrRecordNotFound
	}
	query := `
		SELECT id, created_at, title, author, isbn, cover_path, version
		FROM books
		WHERE id = $1`
	var book data.Book
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, bookID).Scan(
		&book.ID,
		&book.CreatedAt,
		&book.Title,
		&book.Author,
		&book.Isbn,
		&book.CoverPath,
		&book.Version,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &book, nil
}

// GetBookByIsbn retrieves a book record by its isbn.
func (r *repository) GetBookByIsbn(isbn string) (*data.Book, error) {
	query := `
		SELECT id, created_at, title, author, isbn, cover_path, version
		FROM books
		WHERE isbn = $1`
	var book data.Book
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, isbn).Scan(
		&book.ID,
		&book.CreatedAt,
		&book.Title,
		&book.Author,
		&book.Isbn,
		&book.CoverPath,
		&book.Version,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &book, nil
}

// BookExistsByIsbn reports whether a book record with the given isbn exists.
func (r *repository) BookExistsByIsbn(isbn string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1)`
	var exists bool
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, isbn).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// GetAllBooks retrieves a paginated list of book records. Each present filter field
// adds a predicate; empty fields act as wildcards.
func (r *repository) GetAllBooks(filter data.BookFilter, filters data.Filters) ([]*data.Book, data.Metadata, error) {
	query := fmt.Sprintf(`
		SELECT count(*) OVER(), id, created_at, title, author, isbn, cover_path, version
		FROM books
		WHERE (title ILIKE '%%' || $1 || '%%' OR $1 = '')
		AND (author ILIKE '%%' || $2 || '%%' OR $2 = '')
		AND (isbn = $3 OR $3 = '')
		ORDER BY %s %s, id ASC
		LIMIT $4 OFFSET $5`,
		filters.SortColumn(), filters.SortDirection(),
	)
	args := []interface{}{
		filter.Title,
		filter.Author,
		filter.Isbn,
		filters.Limit(),
		filters.Offset(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, data.Metadata{}, err
	}
	defer rows.Close()
	totalRecords := 0
	books := []*data.Book{}
	for rows.Next() {
		var book data.Book
		err := rows.Scan(
			&totalRecords,
			&book.ID,
			&book.CreatedAt,
			&book.Title,
			&book.Author,
			&book.Isbn,
			&book.CoverPath,
			&book.Version,
		)
		if err != nil {
			return nil, data.Metadata{}, err
		}
		books = append(books, &book)
	}
	if err = rows.Err(); err != nil {
		return nil, data.Metadata{}, err
	}
	metadata := data.CalculateMetadata(totalRecords, filters.Page, filters.PageSize)
	return books, metadata, nil
}

// UpdateBook updates a book record. The version column guards against concurrent
// edits and the isbn unique index guards against renaming a book onto a taken isbn.
func (r *repository) UpdateBook(book *data.Book) error {
	query := `
		UPDATE books
		SET title = $1, author = $2, isbn = $3, cover_path = $4, version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version`
	args := []interface{}{
		book.Title,
		book.Author,
		book.Isbn,
		book.CoverPath,
		book.ID,
		book.Version,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&book.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrEditConflict
		case err.Error() == `pq: duplicate key value violates unique constraint "books_isbn_key"`:
			return ErrDuplicateRecord
		default:
			return err
		}
	}
	return nil
}

// DeleteBook deletes a book record.
func (r *repository) DeleteBook(bookID int64) error {
	if bookID < 1 {
		return ErrRecordNotFound
	}
	query := `
		DELETE FROM books
		WHERE id = $1`
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	result, err := r.db.ExecContext(ctx, query, bookID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
