package handler

import (
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/haraujo/libraryapi/config"
	"github.com/haraujo/libraryapi/data"
	"github.com/haraujo/libraryapi/internal/jsonlog"
	"github.com/haraujo/libraryapi/internal/mailer"
	"github.com/haraujo/libraryapi/repository"
	"github.com/haraujo/libraryapi/service"
	"github.com/jellydator/ttlcache/v3"
)

// fakeRepository backs the handler tests with an in-memory repository so
// requests run through the real service layer end to end.
type fakeRepository struct {
	mu         sync.Mutex
	books      map[int64]*data.Book
	loans      map[int64]*data.Loan
	nextBookID int64
	nextLoanID int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		books: make(map[int64]*data.Book),
		loans: make(map[int64]*data.Loan),
	}
}

func (f *fakeRepository) CreateBook(book *data.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.books {
		if b.Isbn == book.Isbn {
			return repository.ErrDuplicateRecord
		}
	}
	f.nextBookID++
	book.ID = f.nextBookID
	book.CreatedAt = time.Now()
	book.Version = 1
	stored := *book
	f.books[book.ID] = &stored
	return nil
}

func (f *fakeRepository) GetBook(bookID int64) (*data.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	book, ok := f.books[bookID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	copied := *book
	return &copied, nil
}

func (f *fakeRepository) GetBookByIsbn(isbn string) (*data.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, book := range f.books {
		if book.Isbn == isbn {
			copied := *book
			return &copied, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (f *fakeRepository) BookExistsByIsbn(isbn string) (bool, error) {
	_, err := f.GetBookByIsbn(isbn)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (f *fakeRepository) GetAllBooks(filter data.BookFilter, filters data.Filters) ([]*data.Book, data.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*data.Book
	for _, book := range f.books {
		if filter.Isbn != "" && book.Isbn != filter.Isbn {
			continue
		}
		copied := *book
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, data.CalculateMetadata(len(matched), filters.Page, filters.PageSize), nil
}

func (f *fakeRepository) UpdateBook(book *data.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.books[book.ID]
	if !ok || stored.Version != book.Version {
		return repository.ErrEditConflict
	}
	for id, b := range f.books {
		if id != book.ID && b.Isbn == book.Isbn {
			return repository.ErrDuplicateRecord
		}
	}
	book.Version++
	copied := *book
	f.books[book.ID] = &copied
	return nil
}

func (f *fakeRepository) DeleteBook(bookID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.books[bookID]; !ok {
		return repository.ErrRecordNotFound
	}
	delete(f.books, bookID)
	return nil
}

func (f *fakeRepository) CreateLoan(loan *data.Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.loans {
		if l.Book.ID == loan.Book.ID && l.Status == data.LoanStatusOpen {
			return repository.ErrDuplicateRecord
		}
	}
	f.nextLoanID++
	loan.ID = f.nextLoanID
	loan.CreatedAt = time.Now()
	loan.Status = data.LoanStatusOpen
	loan.Version = 1
	stored := *loan
	f.loans[loan.ID] = &stored
	return nil
}

func (f *fakeRepository) GetLoan(loanID int64) (*data.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loan, ok := f.loans[loanID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	copied := *loan
	return &copied, nil
}

func (f *fakeRepository) OpenLoanExistsForBook(bookID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, loan := range f.loans {
		if loan.Book.ID == bookID && loan.Status == data.LoanStatusOpen {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) GetAllLoans(filter data.LoanFilter, filters data.Filters) ([]*data.Loan, data.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*data.Loan
	for _, loan := range f.loans {
		isbnMatch := filter.Isbn != "" && loan.Book.Isbn == filter.Isbn
		customerMatch := filter.Customer != "" && loan.Customer == filter.Customer
		wildcard := filter.Isbn == "" && filter.Customer == ""
		if !isbnMatch && !customerMatch && !wildcard {
			continue
		}
		copied := *loan
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, data.CalculateMetadata(len(matched), filters.Page, filters.PageSize), nil
}

func (f *fakeRepository) GetLoansForBook(bookID int64, filters data.Filters) ([]*data.Loan, data.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*data.Loan
	for _, loan := range f.loans {
		if loan.Book.ID != bookID {
			continue
		}
		copied := *loan
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, data.CalculateMetadata(len(matched), filters.Page, filters.PageSize), nil
}

func (f *fakeRepository) GetOpenLoansBefore(cutoff time.Time) ([]*data.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*data.Loan
	for _, loan := range f.loans {
		if loan.Status == data.LoanStatusOpen && loan.LoanDate.Before(cutoff) {
			copied := *loan
			matched = append(matched, &copied)
		}
	}
	return matched, nil
}

func (f *fakeRepository) UpdateLoan(loan *data.Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.loans[loan.ID]
	if !ok || stored.Version != loan.Version {
		return repository.ErrEditConflict
	}
	loan.Version++
	copied := *loan
	f.loans[loan.ID] = &copied
	return nil
}

// newTestRoutes wires the full middleware and routing stack around an
// in-memory repository.
func newTestRoutes() (http.Handler, *fakeRepository) {
	var cfg config.Config
	cfg.Server.Env = "test"
	cfg.Loans.PeriodDays = 4
	var wg sync.WaitGroup
	logger := jsonlog.New(io.Discard, jsonlog.LevelOff)
	repo := newFakeRepository()
	m := mailer.New("localhost", 1025, "", "", "Library <no-reply@example.com>")
	notified := ttlcache.New(ttlcache.WithTTL[int64, time.Time](24 * time.Hour))
	svc := service.New(cfg, &wg, logger, repo, m, notified)
	h := New(cfg, logger, svc)
	return h.Routes(), repo
}
