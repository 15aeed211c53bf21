package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createBook(t *testing.T, routes http.Handler, title, author, isbn string) int64 {
	t.Helper()
	body := fmt.Sprintf(`{"title": %q, "author": %q, "isbn": %q}`, title, author, isbn)
	req := httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(body))
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var response struct {
		Book struct {
			ID int64 `json:"id"`
		} `json:"book"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	return response.Book.ID
}

func decodeError(t *testing.T, body *bytes.Buffer) string {
	t.Helper()
	var response struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&response))
	return response.Error
}

func TestCreateBookHandler(t *testing.T) {
	t.Run("created with a location header", func(t *testing.T) {
		routes, _ := newTestRoutes()
		body := `{"title": "As Aventuras", "author": "Fulano", "isbn": "1234567890"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(body))
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "/v1/books/1", rec.Header().Get("Location"))
	})

	t.Run("duplicate isbn", func(t *testing.T) {
		routes, _ := newTestRoutes()
		createBook(t, routes, "As Aventuras", "Fulano", "1234567890")

		body := `{"title": "Outro", "author": "Ciclano", "isbn": "1234567890"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(body))
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Isbn já cadastrado.", decodeError(t, rec.Body))
	})

	t.Run("validation failure", func(t *testing.T) {
		routes, _ := newTestRoutes()
		req := httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(`{"isbn": "123"}`))
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		routes, _ := newTestRoutes()
		req := httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(`{"title": `))
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestShowBookHandler(t *testing.T) {
	routes, _ := newTestRoutes()
	bookID := createBook(t, routes, "As Aventuras", "Fulano", "1234567890")

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/books/%d", bookID), nil)
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var response struct {
			Book struct {
				Isbn string `json:"isbn"`
			} `json:"book"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "1234567890", response.Book.Isbn)
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/books/99", nil)
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/books/abc", nil)
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListBooksHandler(t *testing.T) {
	routes, _ := newTestRoutes()
	createBook(t, routes, "Dom Casmurro", "Machado de Assis", "111")
	createBook(t, routes, "Grande Sertão", "Guimarães Rosa", "222")

	t.Run("isbn filter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/books?isbn=222", nil)
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var response struct {
			Books []struct {
				Title string `json:"title"`
			} `json:"books"`
			Metadata struct {
				TotalRecords int `json:"total_records"`
			} `json:"metadata"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.Len(t, response.Books, 1)
		assert.Equal(t, "Grande Sertão", response.Books[0].Title)
		assert.Equal(t, 1, response.Metadata.TotalRecords)
	})

	t.Run("invalid page size", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/books?page_size=500", nil)
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestUpdateBookHandler(t *testing.T) {
	routes, _ := newTestRoutes()
	bookID := createBook(t, routes, "As Aventuras", "Fulano", "1234567890")

	req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/v1/books/%d", bookID), strings.NewReader(`{"title": "As Aventuras, 2a ed."}`))
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var response struct {
		Book struct {
			Title  string `json:"title"`
			Author string `json:"author"`
		} `json:"book"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "As Aventuras, 2a ed.", response.Book.Title)
	assert.Equal(t, "Fulano", response.Book.Author)
}

func TestDeleteBookHandler(t *testing.T) {
	t.Run("deletes", func(t *testing.T) {
		routes, _ := newTestRoutes()
		bookID := createBook(t, routes, "As Aventuras", "Fulano", "1234567890")

		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/books/%d", bookID), nil)
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/books/%d", bookID), nil)
		rec = httptest.NewRecorder()
		routes.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("conflict with an open loan", func(t *testing.T) {
		routes, _ := newTestRoutes()
		bookID := createBook(t, routes, "As Aventuras", "Fulano", "1234567890")
		createLoan(t, routes, "1234567890", "Fulano", "fulano@example.com")

		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/books/%d", bookID), nil)
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
