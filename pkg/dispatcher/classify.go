package dispatcher

import (
	schemaerrors "github.com/skytable/skytable-sub005/pkg/errors"
	"github.com/skytable/skytable-sub005/pkg/ql/ast"
)

// Class distinguishes a statement that must run on a blocking worker
// thread from one that runs directly on the I/O task (spec §4.5).
type Class uint8

const (
	ClassBlocking Class = iota
	ClassNonBlocking
	ClassAuth // auth sub-commands: permitted on an unauthenticated connection
)

// Classify returns the statement's execution class.
func Classify(node ast.Node) Class {
	switch node.(type) {
	case *ast.CreateSpace, *ast.DropSpace, *ast.AlterSpace,
		*ast.CreateModel, *ast.DropModel, *ast.AlterModel,
		*ast.Sysctl:
		return ClassBlocking
	case *ast.Insert, *ast.Select, *ast.SelectAll, *ast.Update, *ast.Delete:
		return ClassNonBlocking
	case *ast.Auth:
		return ClassAuth
	default:
		return ClassBlocking
	}
}

// CheckPermission enforces spec §4.5's permission gate: SYSCTL/DDL require
// root, DML requires any authenticated user. Most auth sub-commands are
// always permitted, but adduser/deluser/listuser manage other accounts and
// so require root even though the statement class itself is ClassAuth.
func CheckPermission(node ast.Node, auth AuthState) error {
	if a, ok := node.(*ast.Auth); ok {
		switch a.Op {
		case ast.AuthAddUser, ast.AuthDelUser, ast.AuthListUser:
			if !auth.IsRoot() {
				return &schemaerrors.NotRootError{}
			}
		}
		return nil
	}
	switch Classify(node) {
	case ClassAuth:
		return nil
	case ClassBlocking:
		if !auth.IsRoot() {
			return &schemaerrors.NotRootError{}
		}
		return nil
	case ClassNonBlocking:
		if !auth.IsAuthenticated() {
			return &schemaerrors.NotAuthenticatedError{}
		}
		return nil
	default:
		return &schemaerrors.NotAuthenticatedError{}
	}
}
