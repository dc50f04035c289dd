package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/library-catalog-go/catalog"
)

// State of an edition at write time.
type State int

const (
	Available State = iota
	Full
)

func (s State) String() string {
	switch s {
	case Available:
		return "available"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Snapshot is the capacity situation of one edition, read inside the writing transaction.
type Snapshot struct {
	EditionID   int64
	TotalCopies int
	OpenLoans   int
}

// State returns Full when no copy is left, Available otherwise.
func (s Snapshot) State() State {
	if s.OpenLoans >= s.TotalCopies {
		return Full
	}

	return Available
}

// AvailableCopies returns the copies that are not lent out.
func (s Snapshot) AvailableCopies() int {
	return s.TotalCopies - s.OpenLoans
}

// CapacityError describes a rejected loan opening or copy reduction.
type CapacityError struct {
	EditionID      int64
	TotalCopies    int
	OpenLoans      int
	RequestedTotal *int
}

func (e *CapacityError) Error() string {
	if e.RequestedTotal != nil {
		return fmt.Sprintf(
			"%s: book edition %d cannot be reduced to %d copies while %d loans are open",
			catalog.ErrCapacityExceeded, e.EditionID, *e.RequestedTotal, e.OpenLoans,
		)
	}

	return fmt.Sprintf(
		"%s: book edition %d has %d of %d copies lent out",
		catalog.ErrCapacityExceeded, e.EditionID, e.OpenLoans, e.TotalCopies,
	)
}

// Is makes errors.Is(err, catalog.ErrCapacityExceeded) match.
func (e *CapacityError) Is(target error) bool {
	return target == catalog.ErrCapacityExceeded
}

// CheckOpen allows opening one more loan only while the edition is Available.
func CheckOpen(s Snapshot) error {
	if s.State() == Full {
		return &CapacityError{EditionID: s.EditionID, TotalCopies: s.TotalCopies, OpenLoans: s.OpenLoans}
	}

	return nil
}

// CheckCopies allows setting the copies of an edition to newTotal.
// Increasing is always allowed, reducing only down to the number of open loans.
func CheckCopies(s Snapshot, newTotal int) error {
	if newTotal >= s.OpenLoans {
		return nil
	}

	return &CapacityError{
		EditionID:      s.EditionID,
		TotalCopies:    s.TotalCopies,
		OpenLoans:      s.OpenLoans,
		RequestedTotal: &newTotal,
	}
}

// OpensLoan reports whether writing after opens a loan on after.BookEditionID.
// before is the stored loan, or nil for a new one. Moving an open loan to another edition
// opens a loan on the target edition.
func OpensLoan(before *catalog.Loan, after catalog.Loan) bool {
	if !after.IsOpen() {
		return false
	}

	if before == nil || !before.IsOpen() {
		return true
	}

	return before.BookEditionID != after.BookEditionID
}

var (
	ErrDueBeforeLoanDate    = errors.New("due date is before loan date")
	ErrReturnBeforeLoanDate = errors.New("return date is before loan date")
)

// ValidateLoanDates checks the date ordering of a loan. Dates are compared by calendar day.
func ValidateLoanDates(l catalog.Loan) error {
	loanDay := day(l.LoanDate)

	if day(l.DueDate).Before(loanDay) {
		return errors.Join(catalog.ErrCheckConstraintViolation, ErrDueBeforeLoanDate)
	}

	if l.ReturnDate != nil && day(*l.ReturnDate).Before(loanDay) {
		return errors.Join(catalog.ErrCheckConstraintViolation, ErrReturnBeforeLoanDate)
	}

	return nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
