/*
errors.go - Centralized error types for the stock engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch on the sentinels with errors.Is and read details from the
  structured types with errors.As.

ERROR CATEGORIES:
  1. Validation   - Unknown articles, duplicate rows, empty batches, bad input
  2. Confirmation - A commit would overwrite an existing DailyRecord
  3. Not found    - Delete/update against a missing record or article
  4. Storage      - Any failure from the persistence layer (never retried)

USAGE:
  plan, err := reconciler.Import(ctx, date, rows, stock.ImportOptions{})
  var verr *stock.ValidationError
  if errors.As(err, &verr) {
      // verr.Unknown, verr.Duplicates
  }

SEE ALSO:
  - reconcile.go: Produces validation, confirmation and not-found errors
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package stock

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when caller input cannot be committed as-is.
	ErrValidation = errors.New("validation failed")

	// ErrConfirmationRequired is returned when a commit would replace an
	// existing DailyRecord and the plan was not confirmed.
	ErrConfirmationRequired = errors.New("confirmation required to overwrite existing record")

	// ErrNotFound is returned when a referenced record or article doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrStorage is returned when the persistence layer fails.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError lists everything the caller must fix before retrying.
type ValidationError struct {
	Code       string // e.g. "unknown_articles", "duplicate_rows", "empty_batch"
	Message    string
	Unknown    []ArticleSlug
	Duplicates []Duplicate
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Unknown) > 0 {
		names := make([]string, len(e.Unknown))
		for i, s := range e.Unknown {
			names[i] = string(s)
		}
		fmt.Fprintf(&b, ": unknown articles [%s]", strings.Join(names, ", "))
	}
	for _, d := range e.Duplicates {
		fmt.Fprintf(&b, "; %s on rows %v", d.Slug, d.Rows)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ConflictError is the confirmation-required state of an UPDATE plan.
type ConflictError struct {
	Date Date
	Plan CommitPlan
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("record for %s already exists (%d lines); confirm to replace",
		e.Date, len(e.Plan.Existing))
}

func (e *ConflictError) Unwrap() error {
	return ErrConfirmationRequired
}

// NotFoundError names the missing thing.
type NotFoundError struct {
	Kind string // "daily_record", "article", "change_log"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s does not exist", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// StorageError wraps a persistence failure with the operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// WrapStorage wraps err as a StorageError unless it is nil or already
// classified by this package.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrConfirmationRequired) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// NeedsConfirmation returns true if the caller must confirm and retry.
func NeedsConfirmation(err error) bool {
	return errors.Is(err, ErrConfirmationRequired)
}
