package dto

import "github.com/haraujo/libraryapi/data"

// QsListBooks defines the query strings used for listing books.
type QsListBooks struct {
	Title   string
	Author  string
	Isbn    string
	Filters data.Filters
}

// CreateBookRequestBody defines the request body for CreateBook service.
type CreateBookRequestBody struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Isbn   string `json:"isbn"`
}

// UpdateBookRequestBody defines the request body for UpdateBook service. The fields are set
// to a pointer type to allow partial updates based on whether the value is set to nil.
type UpdateBookRequestBody struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	Isbn   *string `json:"isbn"`
}
