package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/haraujo/libraryapi/data"
	"github.com/haraujo/libraryapi/data/dto"
	"github.com/haraujo/libraryapi/internal/validator"
	"github.com/haraujo/libraryapi/service"
)

func (h *Handler) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody dto.CreateLoanRequestBody
	err := h.decodeJSON(w, r, &requestBody)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	loan, err := h.service.CreateLoan(requestBody)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			h.badRequestResponse(w, r, errors.New("Book not found for passed isbn"))
		case errors.Is(err, service.ErrFailedValidation):
			h.failedValidationResponse(w, r, err)
		case errors.Is(err, service.ErrBookAlreadyLoaned):
			h.badRequestResponse(w, r, err)
		default:
			h.serverErrorResponse(w, r, err)
		}
		return
	}
	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/loans/%d", loan.ID))
	err = h.encodeJSON(w, http.StatusCreated, envelope{"loan": loan}, headers)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *Handler) showLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := h.readIDParam(r, "loanId")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	loan, err := h.service.GetLoan(loanID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			h.notFoundResponse(w, r)
		default:
			h.serverErrorResponse(w, r, err)
		}
		return
	}
	err = h.encodeJSON(w, http.StatusOK, envelope{"loan": loan}, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *Handler) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	var qsInput dto.QsListLoans
	v := validator.New()
	qs := r.URL.Query()
	qsInput.Isbn = h.readString(qs, "isbn", "")
	qsInput.Customer = h.readString(qs, "customer", "")
	qsInput.Filters.Page = h.readInt(qs, "page", 1, v)
	qsInput.Filters.PageSize = h.readInt(qs, "page_size", 10, v)
	qsInput.Filters.Sort = h.readString(qs, "sort", "id")
	qsInput.Filters.SortSafeList = []string{"id", "customer", "loan_date", "status", "created_at", "-id", "-customer", "-loan_date", "-status", "-created_at"}
	filter := data.LoanFilter{
		Isbn:     qsInput.Isbn,
		Customer: qsInput.Customer,
	}
	loans, metadata, err := h.service.ListLoans(filter, qsInput.Filters)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFailedValidation):
			h.failedValidationResponse(w, r, err)
		default:
			h.serverErrorResponse(w, r, err)
		}
		return
	}
	err = h.encodeJSON(w, http.StatusOK, envelope{"loans": loans, "metadata": metadata}, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *Handler) listBookLoansHandler(w http.ResponseWriter, r *http.Request) {
	bookID, err := h.readIDParam(r, "bookId")
	if err != nil || bookID < 1 {
		h.notFoundResponse(w, r)
		return
	}
	var filters data.Filters
	v := validator.New()
	qs := r.URL.Query()
	filters.Page = h.readInt(qs, "page", 1, v)
	filters.PageSize = h.readInt(qs, "page_size", 10, v)
	filters.Sort = h.readString(qs, "sort", "id")
	filters.SortSafeList = []string{"id", "customer", "loan_date", "status", "created_at", "-id", "-customer", "-loan_date", "-status", "-created_at"}
	loans, metadata, err := h.service.GetLoansForBook(bookID, filters)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			h.notFoundResponse(w, r)
		case errors.Is(err, service.ErrFailedValidation):
			h.failedValidationResponse(w, r, err)
		default:
			h.serverErrorResponse(w, r, err)
		}
		return
	}
	err = h.encodeJSON(w, http.StatusOK, envelope{"loans": loans, "metadata": metadata}, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *Handler) returnLoanHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody dto.ReturnLoanRequestBody
	err := h.decodeJSON(w, r, &requestBody)
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	loanID, err := h.readIDParam(r, "loanId")
	if err != nil || loanID < 1 {
		h.notFoundResponse(w, r)
		return
	}
	loan, err := h.service.ReturnLoan(loanID, requestBody)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			h.notFoundResponse(w, r)
		case errors.Is(err, service.ErrEditConflict):
			h.editConflictResponse(w, r)
		default:
			h.serverErrorResponse(w, r, err)
		}
		return
	}
	err = h.encodeJSON(w, http.StatusOK, envelope{"loan": loan}, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
