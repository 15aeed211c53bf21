package handler

import (
	"expvar"
	"net/http"

	"github.com/julienschmidt/httprouter"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func (h *Handler) Routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(h.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(h.methodNotAllowed)

	router.HandlerFunc(http.MethodGet, "/v1/books", h.listBooksHandler)
	router.HandlerFunc(http.MethodPost, "/v1/books", h.createBookHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:bookId", h.showBookHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/books/:bookId", h.updateBookHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/books/:bookId", h.deleteBookHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/books/:bookId/cover", h.updateBookCoverHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:bookId/loans", h.listBookLoansHandler)

	router.HandlerFunc(http.MethodPost, "/v1/loans", h.createLoanHandler)
	router.HandlerFunc(http.MethodGet, "/v1/loans", h.listLoansHandler)
	router.HandlerFunc(http.MethodGet, "/v1/loans/:loanId", h.showLoanHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/loans/:loanId", h.returnLoanHandler)

	router.HandlerFunc(http.MethodGet, "/v1/isbn/:isbn", h.lookupIsbnHandler)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", h.healthcheckHandler)
	router.HandlerFunc(http.MethodGet, "/debug/vars", h.basicAuth(expvar.Handler().ServeHTTP))

	// Swagger routes
	router.HandlerFunc(http.MethodGet, "/spec", h.handleSwaggerFile())
	router.HandlerFunc(http.MethodGet, "/docs/*any", httpSwagger.Handler(httpSwagger.URL("/spec")))

	return h.recoverPanic(h.enableCORS(h.rateLimit(h.metrics(h.requestID(router)))))
}
