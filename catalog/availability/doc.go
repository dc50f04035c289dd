// Package availability holds the capacity rules of book editions.
//
// An edition is Available while it has fewer open loans than copies and Full once they are equal.
// Opening a loan requires Available. Closing a loan is always allowed. The copies of an edition
// may only be reduced down to its current number of open loans.
//
// The functions are pure. The caller reads a Snapshot inside the transaction that performs the
// write, after locking the edition row, so that concurrent writers cannot both observe Available.
package availability
