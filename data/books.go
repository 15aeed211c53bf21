package data

import (
	"time"

	"github.com/haraujo/libraryapi/internal/validator"
)

// FormFieldCover is the multipart form field carrying a cover image upload.
const FormFieldCover = "cover"

// Book defines a catalog entry. The isbn is the catalog's natural key and is
// unique across all books.
type Book struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Isbn      string    `json:"isbn"`
	CoverPath string    `json:"cover_path,omitempty"`
	Version   int32     `json:"-"`
}

func ValidateBook(v *validator.Validator, book *Book) {
	v.Check(book.Title != "", "title", "must be provided")
	v.Check(len(book.Title) <= 500, "title", "must not be more than 500 bytes long")
	v.Check(book.Author != "", "author", "must be provided")
	v.Check(len(book.Author) <= 500, "author", "must not be more than 500 bytes long")
	v.Check(book.Isbn != "", "isbn", "must be provided")
	v.Check(len(book.Isbn) <= 17, "isbn", "must not be more than 17 characters")
}

// BookFilter narrows a catalog search. Empty fields act as wildcards; title and
// author match on containment, isbn matches exactly.
type BookFilter struct {
	Title  string
	Author string
	Isbn   string
}
