package errors

import "fmt"

// This file adds the error kinds spec §7 names (Syntax, Semantic,
// Constraint, Permission, I/O, Storage integrity, Recovery conflict),
// following the teacher's convention in errors.go of one small exported
// struct type per condition rather than a single enum.

// --- Syntax ---

type SyntaxError struct {
	Message string
	Pos     int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Message)
}

type UnterminatedStringError struct {
	Pos int
}

func (e *UnterminatedStringError) Error() string {
	return fmt.Sprintf("unterminated string literal starting at position %d", e.Pos)
}

type UnknownStatementError struct {
	Keyword string
}

func (e *UnknownStatementError) Error() string {
	return fmt.Sprintf("unknown statement: %q", e.Keyword)
}

type ExpectedIdentifierError struct {
	Got string
}

func (e *ExpectedIdentifierError) Error() string {
	return fmt.Sprintf("expected identifier, got %q", e.Got)
}

type TrailingTokensError struct{}

func (e *TrailingTokensError) Error() string { return "unexpected tokens after statement" }

// --- Semantic ---

type UnknownSpaceError struct{ Name string }

func (e *UnknownSpaceError) Error() string { return fmt.Sprintf("unknown space %q", e.Name) }

type UnknownModelError struct{ Space, Name string }

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q in space %q", e.Name, e.Space)
}

type UnknownFieldError struct{ Field string }

func (e *UnknownFieldError) Error() string { return fmt.Sprintf("unknown field %q", e.Field) }

type DuplicateDefinitionError struct{ Name string }

func (e *DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("duplicate definition: %q already defined", e.Name)
}

type DuplicatePrimaryKeyError struct{ Total int }

func (e *DuplicatePrimaryKeyError) Error() string {
	return fmt.Sprintf("model declares %d primary keys; exactly one is required", e.Total)
}

type IllegalPrimaryKeyTypeError struct{ TagName string }

func (e *IllegalPrimaryKeyTypeError) Error() string {
	return fmt.Sprintf("illegal primary key type: %s (must be string or uint)", e.TagName)
}

type UnknownPropertyError struct{ Name string }

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("unknown property %q", e.Name)
}

// --- Constraint ---

// FieldNotFound is returned when a DML statement references a field that
// does not exist in the model's schema (spec §4.3).
type FieldNotFoundError struct{ Field string }

func (e *FieldNotFoundError) Error() string { return fmt.Sprintf("field not found: %q", e.Field) }

// ConstraintViolationFieldTypedef is returned when a write's value does not
// match the declared type of the target field, or a compound assignment's
// operands are not both numeric with a matching target tag (spec §4.3).
type ConstraintViolationFieldTypedefError struct{ Field string }

func (e *ConstraintViolationFieldTypedefError) Error() string {
	return fmt.Sprintf("constraint violation: field %q has an incompatible type for this assignment", e.Field)
}

type NullIntoNonNullError struct{ Field string }

func (e *NullIntoNonNullError) Error() string {
	return fmt.Sprintf("cannot write null into non-null field %q", e.Field)
}

type PrimaryKeyCollisionError struct{ Key string }

func (e *PrimaryKeyCollisionError) Error() string {
	return fmt.Sprintf("primary key collision on insert: %q", e.Key)
}

type PrimaryKeyMissingError struct{ Key string }

func (e *PrimaryKeyMissingError) Error() string {
	return fmt.Sprintf("no row with primary key %q", e.Key)
}

// --- Permission ---

type NotAuthenticatedError struct{}

func (e *NotAuthenticatedError) Error() string { return "connection is not authenticated" }

type NotRootError struct{}

func (e *NotRootError) Error() string { return "operation requires the root user" }

type PermissionDeniedError struct{ Reason string }

func (e *PermissionDeniedError) Error() string { return fmt.Sprintf("permission denied: %s", e.Reason) }

// --- I/O ---

type JournalIOError struct{ Op string; Err error }

func (e *JournalIOError) Error() string { return fmt.Sprintf("journal I/O error during %s: %v", e.Op, e.Err) }
func (e *JournalIOError) Unwrap() error { return e.Err }

// --- Storage integrity ---

type ChecksumMismatchError struct{ EventID uint64 }

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch at event %d", e.EventID)
}

type NonMonotonicEventIDError struct{ Expected, Got uint64 }

func (e *NonMonotonicEventIDError) Error() string {
	return fmt.Sprintf("non-monotonic event id: expected >= %d, got %d", e.Expected, e.Got)
}

type TruncatedFrameError struct{ Offset int64 }

func (e *TruncatedFrameError) Error() string {
	return fmt.Sprintf("truncated frame at offset %d outside the recoverable tail", e.Offset)
}

type UnknownEventKindError struct{ Kind uint64 }

func (e *UnknownEventKindError) Error() string {
	return fmt.Sprintf("unknown journal event kind %d", e.Kind)
}

type BadFileHeaderError struct{ Path, Reason string }

func (e *BadFileHeaderError) Error() string {
	return fmt.Sprintf("bad file header in %q: %s", e.Path, e.Reason)
}

// --- Recovery conflict ---

type RestoreDataConflictError struct{ Detail string }

func (e *RestoreDataConflictError) Error() string {
	return fmt.Sprintf("recovery conflict: %s", e.Detail)
}

// --- DDL guard (space/model) ---

type SpaceAlreadyExistsError struct{ Name string }

func (e *SpaceAlreadyExistsError) Error() string { return fmt.Sprintf("space %q already exists", e.Name) }

type ModelAlreadyExistsError struct{ Space, Name string }

func (e *ModelAlreadyExistsError) Error() string {
	return fmt.Sprintf("model %q already exists in space %q", e.Name, e.Space)
}

type SpaceNotEmptyError struct{ Name string }

func (e *SpaceNotEmptyError) Error() string {
	return fmt.Sprintf("space %q still has models and cannot be dropped", e.Name)
}

type UserAlreadyExistsError struct{ Name string }

func (e *UserAlreadyExistsError) Error() string { return fmt.Sprintf("user %q already exists", e.Name) }

type UserNotFoundError struct{ Name string }

func (e *UserNotFoundError) Error() string { return fmt.Sprintf("user %q not found", e.Name) }

type InvalidCredentialsError struct{}

func (e *InvalidCredentialsError) Error() string { return "invalid username or password" }
