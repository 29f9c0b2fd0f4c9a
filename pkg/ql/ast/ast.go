// Package ast defines the statement nodes the parser produces (spec §4.4).
// Every node reports whether it must consume the full token range and
// whether it self-verifies, so the parser's hardened wrapper can enforce
// "stray tokens after a statement are a syntax error" uniformly.
package ast

import (
	schemaerrors "github.com/skytable/skytable-sub005/pkg/errors"
	"github.com/skytable/skytable-sub005/pkg/schema"
	"github.com/skytable/skytable-sub005/pkg/value"
)

// Node is implemented by every statement AST node.
type Node interface {
	// MustConsumeAll reports whether trailing tokens after this node are an
	// error (true for every statement in this grammar; kept as a method
	// rather than a blanket rule so a future statement kind can opt out).
	MustConsumeAll() bool
	// Verify performs the node's own structural self-check, independent of
	// the parser's grammar-level checks.
	Verify() error
}

type base struct{}

func (base) MustConsumeAll() bool { return true }

// --- DDL ---

type CreateSpace struct {
	base
	Name  string
	Props schema.Dict
}

func (n *CreateSpace) Verify() error { return requireIdent(n.Name) }

type DropSpace struct {
	base
	Name string
}

func (n *DropSpace) Verify() error { return requireIdent(n.Name) }

type AlterSpace struct {
	base
	Name  string
	Props schema.Dict
}

func (n *AlterSpace) Verify() error { return requireIdent(n.Name) }

type CreateModel struct {
	base
	Space  string
	Name   string
	Fields schema.FieldSet
}

func (n *CreateModel) Verify() error {
	if err := requireIdent(n.Name); err != nil {
		return err
	}
	return n.Fields.Validate()
}

type DropModel struct {
	base
	Space string
	Name  string
}

func (n *DropModel) Verify() error { return requireIdent(n.Name) }

// AlterModelOp is either a field addition or a field removal.
type AlterModelOp struct {
	Add    *schema.Field
	Remove string
}

type AlterModel struct {
	base
	Space string
	Name  string
	Op    AlterModelOp
}

func (n *AlterModel) Verify() error { return requireIdent(n.Name) }

// --- DML ---

// Insert is strictly positional (spec §6: "insert into <space>.<model>(<val>,
// ...)"); the dispatcher binds Values to the model's schema fields in
// declared order, since the parser has no schema access to bind by name.
type Insert struct {
	base
	Space  string
	Model  string
	Values []value.Value
}

func (n *Insert) Verify() error {
	if len(n.Values) == 0 {
		return &schemaerrors.SyntaxError{Message: "INSERT requires at least one value"}
	}
	return nil
}

// Predicate is an equality-only WHERE clause term (spec: "WHERE clauses
// support only equality, not range operators" — see the Open Question
// resolution this decision is grounded on).
type Predicate struct {
	Field string
	Value value.Value
}

type Select struct {
	base
	Space  string
	Model  string
	Fields []string // empty means "all fields"
	Where  Predicate
}

func (n *Select) Verify() error { return requireIdent(n.Model) }

type SelectAll struct {
	base
	Space string
	Model string
	Where Predicate
}

func (n *SelectAll) Verify() error { return requireIdent(n.Model) }

// Assignment is one `field = value` or compound (`field += value`) term of
// an UPDATE statement.
type Assignment struct {
	Field string
	Op    value.CompoundOp
	Value value.Value
	// Plain is true for a bare `=` assignment (replace, not compound).
	Plain bool
}

type Update struct {
	base
	Space       string
	Model       string
	Assignments []Assignment
	Where       Predicate
}

func (n *Update) Verify() error {
	if len(n.Assignments) == 0 {
		return &schemaerrors.SyntaxError{Message: "UPDATE requires at least one assignment"}
	}
	return nil
}

type Delete struct {
	base
	Space string
	Model string
	Where Predicate
}

func (n *Delete) Verify() error { return requireIdent(n.Model) }

// --- SYSCTL / AUTH ---

// SysctlOp is the blocking, DDL-class user/status administration surface
// (spec §6: "sysctl create user <name> | drop user <name> | report
// status"), distinct from the lighter AUTH-namespace user commands below.
type SysctlOp uint8

const (
	SysctlCreateUser SysctlOp = iota
	SysctlDropUser
	SysctlReportStatus
)

type Sysctl struct {
	base
	Op       SysctlOp
	Username string
	Password string
}

func (n *Sysctl) Verify() error { return nil }

// AuthOp covers the AUTH family (spec §4.8, §6): claim/login/logout/whoami
// are permitted on an Anonymous connection, as are claim's and restore's
// origin-key-gated recovery paths; adduser/deluser/listuser additionally
// require the caller to already be root (enforced by the dispatcher's
// CheckPermission).
type AuthOp uint8

const (
	AuthLogin AuthOp = iota
	AuthClaim
	AuthLogout
	AuthWhoAmI
	AuthAddUser
	AuthDelUser
	AuthListUser
	AuthRestore
)

// Auth carries the fields any AUTH sub-command may need; OriginKey is set
// for claim/restore, Password is the login/new password as appropriate.
type Auth struct {
	base
	Op        AuthOp
	Username  string
	Password  string
	OriginKey string
}

func (n *Auth) Verify() error { return nil }

func requireIdent(s string) error {
	if s == "" {
		return &schemaerrors.ExpectedIdentifierError{Got: ""}
	}
	return nil
}
