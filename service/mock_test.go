package service

import (
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/haraujo/libraryapi/config"
	"github.com/haraujo/libraryapi/data"
	"github.com/haraujo/libraryapi/internal/jsonlog"
	"github.com/haraujo/libraryapi/internal/mailer"
	"github.com/haraujo/libraryapi/repository"
	"github.com/jellydator/ttlcache/v3"
)

// mockRepository is an in-memory stand-in for the postgres repository. It
// enforces the same storage-level constraints the real schema does: a unique
// index on books.isbn and a partial unique index on open loans per book.
type mockRepository struct {
	mu         sync.Mutex
	books      map[int64]*data.Book
	loans      map[int64]*data.Loan
	nextBookID int64
	nextLoanID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		books: make(map[int64]*data.Book),
		loans: make(map[int64]*data.Loan),
	}
}

func (m *mockRepository) CreateBook(book *data.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.Isbn == book.Isbn {
			return repository.ErrDuplicateRecord
		}
	}
	m.nextBookID++
	book.ID = m.nextBookID
	book.CreatedAt = time.Now()
	book.Version = 1
	stored := *book
	m.books[book.ID] = &stored
	return nil
}

func (m *mockRepository) GetBook(bookID int64) (*data.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[bookID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	copied := *book
	return &copied, nil
}

func (m *mockRepository) GetBookByIsbn(isbn string) (*data.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, book := range m.books {
		if book.Isbn == isbn {
			copied := *book
			return &copied, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (m *mockRepository) BookExistsByIsbn(isbn string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, book := range m.books {
		if book.Isbn == isbn {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) GetAllBooks(filter data.BookFilter, filters data.Filters) ([]*data.Book, data.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*data.Book
	for _, book := range m.books {
		if filter.Title != "" && !strings.Contains(strings.ToLower(book.Title), strings.ToLower(filter.Title)) {
			continue
		}
		if filter.Author != "" && !strings.Contains(strings.ToLower(book.Author), strings.ToLower(filter.Author)) {
			continue
		}
		if filter.Isbn != "" && book.Isbn != filter.Isbn {
			continue
		}
		copied := *book
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := len(matched)
	matched = paginate(matched, filters)
	return matched, data.CalculateMetadata(total, filters.Page, filters.PageSize), nil
}

func (m *mockRepository) UpdateBook(book *data.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.books[book.ID]
	if !ok || stored.Version != book.Version {
		return repository.ErrEditConflict
	}
	for id, b := range m.books {
		if id != book.ID && b.Isbn == book.Isbn {
			return repository.ErrDuplicateRecord
		}
	}
	book.Version++
	copied := *book
	m.books[book.ID] = &copied
	return nil
}

func (m *mockRepository) DeleteBook(bookID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[bookID]; !ok {
		return repository.ErrRecordNotFound
	}
	delete(m.books, bookID)
	return nil
}

func (m *mockRepository) CreateLoan(loan *data.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.loans {
		if l.Book.ID == loan.Book.ID && l.Status == data.LoanStatusOpen {
			return repository.ErrDuplicateRecord
		}
	}
	m.nextLoanID++
	loan.ID = m.nextLoanID
	loan.CreatedAt = time.Now()
	loan.Status = data.LoanStatusOpen
	loan.Version = 1
	stored := *loan
	m.loans[loan.ID] = &stored
	return nil
}

func (m *mockRepository) GetLoan(loanID int64) (*data.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loan, ok := m.loans[loanID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	copied := *loan
	return &copied, nil
}

func (m *mockRepository) OpenLoanExistsForBook(bookID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, loan := range m.loans {
		if loan.Book.ID == bookID && loan.Status == data.LoanStatusOpen {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) GetAllLoans(filter data.LoanFilter, filters data.Filters) ([]*data.Loan, data.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*data.Loan
	for _, loan := range m.loans {
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
	total := len(matched)
	matched = paginate(matched, filters)
	return matched, data.CalculateMetadata(total, filters.Page, filters.PageSize), nil
}

func (m *mockRepository) GetLoansForBook(bookID int64, filters data.Filters) ([]*data.Loan, data.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*data.Loan
	for _, loan := range m.loans {
		if loan.Book.ID != bookID {
			continue
		}
		copied := *loan
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := len(matched)
	matched = paginate(matched, filters)
	return matched, data.CalculateMetadata(total, filters.Page, filters.PageSize), nil
}

func (m *mockRepository) GetOpenLoansBefore(cutoff time.Time) ([]*data.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*data.Loan
	for _, loan := range m.loans {
		if loan.Status == data.LoanStatusOpen && loan.LoanDate.Before(cutoff) {
			copied := *loan
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (m *mockRepository) UpdateLoan(loan *data.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.loans[loan.ID]
	if !ok || stored.Version != loan.Version {
		return repository.ErrEditConflict
	}
	loan.Version++
	copied := *loan
	m.loans[loan.ID] = &copied
	return nil
}

func paginate[T any](records []T, filters data.Filters) []T {
	offset := filters.Offset()
	if offset >= len(records) {
		return nil
	}
	end := offset + filters.Limit()
	if end > len(records) {
		end = len(records)
	}
	return records[offset:end]
}

// newTestService wires a service around the mock repository with a four day
// loan period and discarded log output.
func newTestService(repo repository.Repository) *service {
	var cfg config.Config
	cfg.Loans.PeriodDays = 4
	var wg sync.WaitGroup
	logger := jsonlog.New(io.Discard, jsonlog.LevelFatal)
	m := mailer.New("localhost", 1025, "", "", "Library <no-reply@example.com>")
	notified := ttlcache.New(ttlcache.WithTTL[int64, time.Time](notifiedTTL))
	return New(cfg, &wg, logger, repo, m, notified)
}

func testFilters() data.Filters {
	return data.Filters{
		Page:         1,
		PageSize:     10,
		Sort:         "id",
		SortSafeList: []string{"id", "-id"},
	}
}
