package gateway

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"arena-sync/internal/repository"
	"arena-sync/internal/storage"
)

// Kind classifies a gateway failure.
type Kind int

const (
	// KindRemote is any backend failure without a more specific meaning.
	KindRemote Kind = iota
	KindNotFound
	KindConflict
	// KindPolicyRecursion means the backend's row-level security policies recurse.
	KindPolicyRecursion
	// KindResourceMissing means a table, schema or bucket has not been provisioned.
	KindResourceMissing
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPolicyRecursion:
		return "policy_recursion"
	case KindResourceMissing:
		return "resource_missing"
	}
	return "remote"
}

// Error is the typed failure returned by every gateway call.
type Error struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify wraps err as an *Error for operation op. Nil stays nil and an existing
// *Error is returned as is.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}

	msg := err.Error()
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg = pgErr.Message
	}

	kind := KindRemote
	switch {
	case strings.Contains(msg, "infinite recursion"):
		kind = KindPolicyRecursion
	case strings.Contains(msg, "schema cache"), strings.Contains(msg, "Bucket not found"),
		errors.Is(err, storage.ErrBucketNotFound), isUndefinedRelation(pgErr):
		kind = KindResourceMissing
	case errors.Is(err, repository.ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, repository.ErrAlreadyRegistered),
		errors.Is(err, repository.ErrGameFull),
		errors.Is(err, repository.ErrUnknownGame):
		kind = KindConflict
	}

	return &Error{Op: op, Kind: kind, Message: msg, Err: err}
}

func isUndefinedRelation(pgErr *pgconn.PgError) bool {
	// 42P01 undefined_table, 3F000 invalid_schema_name
	return pgErr != nil && (pgErr.Code == "42P01" || pgErr.Code == "3F000")
}

// MessageOf returns the human-readable message of a gateway failure, or "" if there is none.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Message
	}
	return err.Error()
}

// IsKind reports whether err is a gateway failure of the given kind.
func IsKind(err error, kind Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == kind
}
