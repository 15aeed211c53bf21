package service

import (
	"encoding/json"
	"fmt"

	"github.com/haraujo/libraryapi/clients"
)

type metadata interface {
	LookupIsbn(isbn string) (*IsbnMetadata, error)
}

const openLibraryURL = "https://openlibrary.org/api/books?bibkeys=ISBN:%s&format=json&jscmd=data"

// IsbnMetadata holds the bibliographic data returned by the Open Library lookup.
type IsbnMetadata struct {
	Isbn        string   `json:"isbn"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors,omitempty"`
	Publishers  []string `json:"publishers,omitempty"`
	PublishDate string   `json:"publish_date,omitempty"`
	PageCount   int      `json:"page_count,omitempty"`
}

// LookupIsbn service fetches bibliographic data for an isbn from the Open Library
// books API. It is a convenience for librarians registering new catalog entries;
// an isbn unknown to Open Library is reported as ErrRecordNotFound.
func (s *service) LookupIsbn(isbn string) (*IsbnMetadata, error) {
	client := clients.NewHTTPClient()
	body, err := s.fetchRemoteResource(client, fmt.Sprintf(openLibraryURL, isbn))
	if err != nil {
		return nil, err
	}
	var payload map[string]struct {
		Title   string `json:"title"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
		Publishers []struct {
			Name string `json:"name"`
		} `json:"publishers"`
		PublishDate string `json:"publish_date"`
		PageCount   int    `json:"number_of_pages"`
	}
	err = json.Unmarshal(body, &payload)
	if err != nil {
		return nil, err
	}
	record, found := payload["ISBN:"+isbn]
	if !found {
		return nil, ErrRecordNotFound
	}
	result := &IsbnMetadata{
		Isbn:        isbn,
		Title:       record.Title,
		PublishDate: record.PublishDate,
		PageCount:   record.PageCount,
	}
	for _, author := range record.Authors {
		result.Authors = append(result.Authors, author.Name)
	}
	for _, publisher := range record.Publishers {
		result.Publishers = append(result.Publishers, publisher.Name)
	}
	return result, nil
}
