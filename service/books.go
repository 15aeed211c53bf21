package service

import (
	"errors"
	"net/http"

	"github.com/haraujo/libraryapi/clients"
	"github.com/haraujo/libraryapi/data"
	"github.com/haraujo/libraryapi/data/dto"
	"github.com/haraujo/libraryapi/internal/validator"
	"github.com/haraujo/libraryapi/repository"
)

type books interface {
	CreateBook(requestBody dto.CreateBookRequestBody) (*data.Book, error)
	GetBook(bookID int64) (*data.Book, error)
	GetBookByIsbn(isbn string) (*data.Book, error)
	ListBooks(filter data.BookFilter, filters data.Filters) ([]*data.Book, data.Metadata, error)
	UpdateBook(bookID int64, requestBody dto.UpdateBookRequestBody) (*data.Book, error)
	UpdateBookCover(bookID int64, r *http.Request) (*data.Book, error)
	DeleteBook(bookID int64) error
}

// CreateBook service registers a new book in the catalog. The isbn must not be in
// use by any existing book: a pre-check rejects the common case early and the
// storage-level unique index closes the window between the check and the insert,
// so a conflicting concurrent writer surfaces the same ErrDuplicateIsbn.
func (s *service) CreateBook(requestBody dto.CreateBookRequestBody) (*data.Book, error) {
	book := &data.Book{
		Title:  requestBody.Title,
		Author: requestBody.Author,
		Isbn:   requestBody.Isbn,
	}
	v := validator.New()
	if data.ValidateBook(v, book); !v.Valid() {
		return nil, s.failedValidation(v.Errors)
	}
	exists, err := s.repo.BookExistsByIsbn(book.Isbn)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateIsbn
	}
	err = s.repo.CreateBook(book)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateRecord):
			return nil, ErrDuplicateIsbn
		default:
			return nil, err
		}
	}
	return book, nil
}

// GetBook service retrieves the details of a book.
func (s *service) GetBook(bookID int64) (*data.Book, error) {
	book, err := s.repo.GetBook(bookID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return book, nil
}

// GetBookByIsbn service retrieves the details of a book by its isbn.
func (s *service) GetBookByIsbn(isbn string) (*data.Book, error) {
	book, err := s.repo.GetBookByIsbn(isbn)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return book, nil
}

// ListBooks service retrieves a paginated list of books. Any non-empty filter
// field narrows the match; empty fields act as wildcards.
func (s *service) ListBooks(filter data.BookFilter, filters data.Filters) ([]*data.Book, data.Metadata, error) {
	v := validator.New()
	if data.ValidateFilters(v, filters); !v.Valid() {
		return nil, data.Metadata{}, s.failedValidation(v.Errors)
	}
	books, metadata, err := s.repo.GetAllBooks(filter, filters)
	if err != nil {
		return nil, data.Metadata{}, err
	}
	return books, metadata, nil
}

// UpdateBook service updates the details of a specific book.
func (s *service) UpdateBook(bookID int64, requestBody dto.UpdateBookRequestBody) (*data.Book, error) {
	if bookID < 1 {
		return nil, ErrInvalidEntity
	}
	book, err := s.repo.GetBook(bookID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	// Update only fields with new data
	if requestBody.Title != nil {
		book.Title = *requestBody.Title
	}
	if requestBody.Author != nil {
		book.Author = *requestBody.Author
	}
	if requestBody.Isbn != nil {
		book.Isbn = *requestBody.Isbn
	}
	v := validator.New()
	if data.ValidateBook(v, book); !v.Valid() {
		return nil, s.failedValidation(v.Errors)
	}
	err = s.repo.UpdateBook(book)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEditConflict):
			return nil, ErrEditConflict
		case errors.Is(err, repository.ErrDuplicateRecord):
			return nil, ErrDuplicateIsbn
		default:
			return nil, err
		}
	}
	return book, nil
}

// UpdateBookCover service uploads a cover image for a book.
func (s *service) UpdateBookCover(bookID int64, r *http.Request) (*data.Book, error) {
	book, err := s.repo.GetBook(bookID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	err = r.ParseMultipartForm(5000)
	if err != nil {
		var maxBytesError *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesError):
			return nil, ErrContentTooLarge
		default:
			return nil, ErrBadRequest
		}
	}
	file, fileHeader, err := r.FormFile(data.FormFieldCover)
	if err != nil {
		return nil, ErrBadRequest
	}
	defer file.Close()
	// Detect image Mime type
	buffer, mtype, err := s.detectMimeType(file, fileHeader)
	if err != nil {
		return nil, err
	}
	// Check whether Mime type is supported
	supportedMediaType := []string{
		"image/jpeg",
		"image/png",
	}
	if validMime := validator.Mime(mtype, supportedMediaType...); !validMime {
		return nil, ErrUnsupportedMediaType
	}
	// Upload image to S3 object storage
	s3Client, err := clients.NewS3Client(s.config)
	if err != nil {
		return nil, err
	}
	s3CoverPath, err := s.uploadFileToS3(s3Client, buffer, mtype, fileHeader)
	if err != nil {
		return nil, err
	}
	book.CoverPath = s3CoverPath
	// Update book record
	err = s.repo.UpdateBook(book)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEditConflict):
			return nil, ErrEditConflict
		default:
			return nil, err
		}
	}
	return book, nil
}

// DeleteBook service deletes a book. A book referenced by an open loan cannot be
// deleted until the loan is returned; the foreign key restricts deletion at the
// storage level for the same reason.
func (s *service) DeleteBook(bookID int64) error {
	if bookID < 1 {
		return ErrInvalidEntity
	}
	open, err := s.repo.OpenLoanExistsForBook(bookID)
	if err != nil {
		return err
	}
	if open {
		return ErrOpenLoan
	}
	err = s.repo.DeleteBook(bookID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return ErrRecordNotFound
		default:
			return err
		}
	}
	return nil
}
