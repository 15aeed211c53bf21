package service

import (
	"fmt"
	"time"

	"github.com/haraujo/libraryapi/data"
)

type notifications interface {
	NotifyLateLoans() (int, error)
}

// notifiedTTL is how long a late loan stays in the dedupe cache after a
// reminder is dispatched for it, so customers receive at most one reminder a day
// per loan regardless of the sweep interval.
const notifiedTTL = 24 * time.Hour

// NotifyLateLoans service enumerates overdue loans and dispatches an email
// reminder to each borrower. Delivery happens in background goroutines so the
// sweep never blocks on SMTP; the number of reminders dispatched is returned.
func (s *service) NotifyLateLoans() (int, error) {
	lateLoans, err := s.GetAllLateLoans()
	if err != nil {
		return 0, err
	}
	dispatched := 0
	for _, loan := range lateLoans {
		if s.notified.Has(loan.ID) {
			continue
		}
		s.notified.Set(loan.ID, time.Now(), notifiedTTL)
		dispatched++
		loan := loan
		s.background(func() {
			s.sendOverdueReminder(loan)
		})
	}
	return dispatched, nil
}

// sendOverdueReminder emails a single overdue reminder.
func (s *service) sendOverdueReminder(loan *data.Loan) {
	daysLate := int(time.Since(loan.LoanDate).Hours()/24) - s.config.Loans.PeriodDays
	if daysLate < 1 {
		daysLate = 1
	}
	templateData := map[string]interface{}{
		"Customer":   loan.Customer,
		"BookTitle":  loan.Book.Title,
		"BookAuthor": loan.Book.Author,
		"LoanDate":   loan.LoanDate.Format("2006-01-02"),
		"DaysLate":   daysLate,
	}
	err := s.mailer.Send(loan.CustomerEmail, "overdue_reminder.tmpl", templateData)
	if err != nil {
		s.logger.PrintError(err, map[string]string{
			"loan_id":   fmt.Sprintf("%d", loan.ID),
			"recipient": loan.CustomerEmail,
		})
	}
}
