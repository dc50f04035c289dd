package catalog

import "errors"

// Error kinds returned by repositories. Concrete errors are composed with errors.Join,
// so callers should always test with errors.Is.
var (
	// ErrNotFound is returned when a mutation targets an entity that does not exist.
	// Read paths return an absent result instead.
	ErrNotFound = errors.New("entity not found")

	// ErrUniqueConstraintViolation is returned for duplicate natural keys or unique fields.
	ErrUniqueConstraintViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when referencing a missing parent or deleting a referenced one.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrCheckConstraintViolation is returned when a cross-field or store-enforced rule is violated.
	ErrCheckConstraintViolation = errors.New("check constraint violation")

	// ErrNullConstraintViolation is returned when a required field was omitted.
	ErrNullConstraintViolation = errors.New("not null constraint violation")

	// ErrCapacityExceeded is returned when opening a loan or reducing the copies of an edition
	// would leave more open loans than copies.
	ErrCapacityExceeded = errors.New("book edition capacity exceeded")

	// ErrConnectionFailed is returned when the store is unreachable.
	ErrConnectionFailed = errors.New("database connection failed")
)

var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrBuildingQueryFailed   = errors.New("building query failed")
	ErrQueryFailed           = errors.New("query execution failed")
	ErrScanningDBRowFailed   = errors.New("scanning db row failed")
	ErrTransactionFailed     = errors.New("transaction failed")
	ErrInvalidPageRequest    = errors.New("page number and page size must be positive")
)
