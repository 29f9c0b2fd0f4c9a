// Package parser implements the hardened `parse_from_state`-style entry
// point described in spec §4.4: it tokenizes source, dispatches to a
// statement-specific recursive-descent parser, then enforces that the
// resulting AST node consumed every token and passes its own Verify check.
package parser

import (
	"strings"

	"github.com/skytable/skytable-sub005/pkg/ql/ast"
	"github.com/skytable/skytable-sub005/pkg/ql/token"
	"github.com/skytable/skytable-sub005/pkg/schema"
	schemaerrors "github.com/skytable/skytable-sub005/pkg/errors"
	"github.com/skytable/skytable-sub005/pkg/value"
)

// Parse tokenizes src (with out-of-band blob params) and parses exactly one
// statement, enforcing full consumption and self-verification.
func Parse(src string, params [][]byte) (ast.Node, error) {
	toks, err := token.New(src, params).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, params: params}
	node, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if node.MustConsumeAll() && p.cur().Kind != token.KindEOF {
		return nil, &schemaerrors.TrailingTokensError{}
	}
	if err := node.Verify(); err != nil {
		return nil, err
	}
	return node, nil
}

type parser struct {
	toks   []token.Token
	pos    int
	params [][]byte
}

func (p *parser) cur() token.Token  { return p.toks[p.pos] }
func (p *parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expectKeyword(kw string) error {
	t := p.cur()
	if t.Kind != token.KindKeyword || t.Text != kw {
		return &schemaerrors.UnknownStatementError{Keyword: t.Text}
	}
	p.advance()
	return nil
}

func (p *parser) expectSymbol(sym string) error {
	t := p.cur()
	if t.Kind != token.KindSymbol || t.Text != sym {
		return &schemaerrors.SyntaxError{Message: "expected '" + sym + "'", Pos: t.Pos}
	}
	p.advance()
	return nil
}

func (p *parser) expectIdent() (string, error) {
	t := p.cur()
	if t.Kind != token.KindIdent {
		return "", &schemaerrors.ExpectedIdentifierError{Got: t.Text}
	}
	p.advance()
	return t.Text, nil
}

// expectIdentLower consumes an identifier whose lower-cased text must equal
// want; used for grammar words (e.g. "user", "status") that aren't lexer
// keywords, so case-insensitivity still matches spec §4.4's rule for
// keywords in general.
func (p *parser) expectIdentLower(want string) error {
	t := p.cur()
	if t.Kind != token.KindIdent || strings.ToLower(t.Text) != want {
		return &schemaerrors.ExpectedIdentifierError{Got: t.Text}
	}
	p.advance()
	return nil
}

func (p *parser) atSymbol(sym string) bool {
	t := p.cur()
	return t.Kind == token.KindSymbol && t.Text == sym
}

func (p *parser) atKeyword(kw string) bool {
	t := p.cur()
	return t.Kind == token.KindKeyword && t.Text == kw
}

func (p *parser) parseStatement() (ast.Node, error) {
	t := p.cur()
	if t.Kind != token.KindKeyword {
		return nil, &schemaerrors.UnknownStatementError{Keyword: t.Text}
	}
	switch t.Text {
	case "CREATE":
		return p.parseCreate()
	case "DROP":
		return p.parseDrop()
	case "ALTER":
		return p.parseAlter()
	case "INSERT":
		return p.parseInsert()
	case "SELECT":
		return p.parseSelect()
	case "UPDATE":
		return p.parseUpdate()
	case "DELETE":
		return p.parseDelete()
	case "SYSCTL":
		return p.parseSysctl()
	case "AUTH":
		return p.parseAuth()
	default:
		return nil, &schemaerrors.UnknownStatementError{Keyword: t.Text}
	}
}

// qualifiedName parses `space.model` or a bare `model`, returning ("", model)
// in the latter case; the dispatcher fills in the connection's current
// space when Space is empty.
func (p *parser) qualifiedName() (space, name string, err error) {
	first, err := p.expectIdent()
	if err != nil {
		return "", "", err
	}
	if p.atSymbol(".") {
		p.advance()
		second, err := p.expectIdent()
		if err != nil {
			return "", "", err
		}
		return first, second, nil
	}
	return "", first, nil
}

func (p *parser) parseCreate() (ast.Node, error) {
	p.advance() // CREATE
	switch {
	case p.atKeyword("SPACE"):
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		props, err := p.parseOptionalWith()
		if err != nil {
			return nil, err
		}
		return &ast.CreateSpace{Name: name, Props: props}, nil
	case p.atKeyword("MODEL"):
		p.advance()
		space, name, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		fields, err := p.parseFieldList()
		if err != nil {
			return nil, err
		}
		return &ast.CreateModel{Space: space, Name: name, Fields: fields}, nil
	default:
		return nil, &schemaerrors.UnknownStatementError{Keyword: p.cur().Text}
	}
}

func (p *parser) parseDrop() (ast.Node, error) {
	p.advance() // DROP
	switch {
	case p.atKeyword("SPACE"):
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &ast.DropSpace{Name: name}, nil
	case p.atKeyword("MODEL"):
		p.advance()
		space, name, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		return &ast.DropModel{Space: space, Name: name}, nil
	default:
		return nil, &schemaerrors.UnknownStatementError{Keyword: p.cur().Text}
	}
}

func (p *parser) parseAlter() (ast.Node, error) {
	p.advance() // ALTER
	switch {
	case p.atKeyword("SPACE"):
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("WITH"); err != nil {
			return nil, err
		}
		props, err := p.parseDict()
		if err != nil {
			return nil, err
		}
		return &ast.AlterSpace{Name: name, Props: props}, nil
	case p.atKeyword("MODEL"):
		p.advance()
		space, name, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		switch {
		case p.atKeyword("ADD"):
			p.advance()
			f, err := p.parseField()
			if err != nil {
				return nil, err
			}
			return &ast.AlterModel{Space: space, Name: name, Op: ast.AlterModelOp{Add: &f}}, nil
		case p.atKeyword("REMOVE"):
			p.advance()
			field, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			return &ast.AlterModel{Space: space, Name: name, Op: ast.AlterModelOp{Remove: field}}, nil
		default:
			return nil, &schemaerrors.UnknownStatementError{Keyword: p.cur().Text}
		}
	default:
		return nil, &schemaerrors.UnknownStatementError{Keyword: p.cur().Text}
	}
}

func (p *parser) parseFieldList() (schema.FieldSet, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var fields schema.FieldSet
	for {
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return fields, nil
}

// parseField parses one `<ident>: <typename> [null]` schema entry (spec §6's
// own worked example, "un: string, pw: uint8", is colon-separated).
func (p *parser) parseField() (schema.Field, error) {
	name, err := p.expectIdent()
	if err != nil {
		return schema.Field{}, err
	}
	if err := p.expectSymbol(":"); err != nil {
		return schema.Field{}, err
	}
	tag, err := p.expectIdent() // type name: string, uint8/16/32/64, sint*, float*, binary, bool, list
	if err != nil {
		return schema.Field{}, err
	}
	vtag, ok := tagByName(tag)
	if !ok {
		return schema.Field{}, &schemaerrors.SyntaxError{Message: "unknown type name: " + tag, Pos: p.cur().Pos}
	}
	nullable := false
	if p.atKeyword("NULL") {
		p.advance()
		nullable = true
	}
	return schema.Field{Name: name, Tag: vtag, Nullable: nullable}, nil
}

// tagByName maps a declared type name to its value.Tag class. The original
// system's width-suffixed type names (uint8/16/32/64, sint8/.../64,
// float32/64 — see original_source/server/src/engine/core/tests/ddl_model/
// crt.rs) all collapse onto the value cell's fixed-width tag classes (spec
// §3: "unsigned int (fixed 64-bit)", "float (64-bit)"); the width is
// accepted for grammar compatibility but not separately represented.
func tagByName(s string) (value.Tag, bool) {
	switch strings.ToLower(s) {
	case "string":
		return value.TagString, true
	case "uint", "uint8", "uint16", "uint32", "uint64":
		return value.TagUint, true
	case "sint", "sint8", "sint16", "sint32", "sint64", "int", "int8", "int16", "int32", "int64":
		return value.TagSint, true
	case "float", "float32", "float64":
		return value.TagFloat, true
	case "binary":
		return value.TagBinary, true
	case "bool":
		return value.TagBool, true
	case "list":
		return value.TagList, true
	default:
		return value.TagNull, false
	}
}

func (p *parser) parseOptionalWith() (schema.Dict, error) {
	if !p.atKeyword("WITH") {
		return nil, nil
	}
	p.advance()
	return p.parseDict()
}

func (p *parser) parseDict() (schema.Dict, error) {
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	out := schema.Dict{}
	for !p.atSymbol("}") {
		key, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		if p.atSymbol("{") {
			nested, err := p.parseDict()
			if err != nil {
				return nil, err
			}
			out[key] = schema.NestedDict(nested)
		} else {
			v, err := p.parseScalarValue()
			if err != nil {
				return nil, err
			}
			out[key] = schema.Scalar(v)
		}
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return out, nil
}

// parseScalarValue parses one literal value, handling the unary-minus
// composition the lexer defers to the parser (see token.Lexer.lexNumber).
func (p *parser) parseScalarValue() (value.Value, error) {
	if p.atSymbol("-") {
		p.advance()
		t := p.cur()
		if t.Kind != token.KindUint {
			return value.Null(), &schemaerrors.SyntaxError{Message: "expected a number after '-'", Pos: t.Pos}
		}
		p.advance()
		return value.Sint(-int64(t.Uint)), nil
	}
	t := p.advance()
	v, ok := t.AsValue(p.params)
	if !ok {
		return value.Null(), &schemaerrors.SyntaxError{Message: "expected a literal value", Pos: t.Pos}
	}
	return v, nil
}

// parseInsert parses the strictly positional `insert into <space>.<model>
// (<val>, ...)` form (spec §6's own worked example, "insert into bench.bench
// ('u1', 5)", carries no field names); the dispatcher binds each value to
// the model's schema fields in declared order.
func (p *parser) parseInsert() (ast.Node, error) {
	p.advance() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	space, name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var values []value.Value
	for {
		v, err := p.parseScalarValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return &ast.Insert{Space: space, Model: name, Values: values}, nil
}

func (p *parser) parseWhere() (ast.Predicate, error) {
	if !p.atKeyword("WHERE") {
		return ast.Predicate{}, nil
	}
	p.advance()
	field, err := p.expectIdent()
	if err != nil {
		return ast.Predicate{}, err
	}
	if err := p.expectSymbol("="); err != nil {
		return ast.Predicate{}, err
	}
	v, err := p.parseScalarValue()
	if err != nil {
		return ast.Predicate{}, err
	}
	return ast.Predicate{Field: field, Value: v}, nil
}

// parseFieldListOrStar parses either the `*` wildcard (spec §6's worked
// example "select * from bench.bench ..."), the legacy bare `ALL` keyword,
// or a comma-separated field list. A nil result means "all fields" — the
// same sentinel execSelect already treats that way.
func (p *parser) parseFieldListOrStar() ([]string, error) {
	if p.atKeyword("ALL") {
		p.advance()
		return nil, nil
	}
	if p.atSymbol("*") {
		p.advance()
		return nil, nil
	}
	var fields []string
	for {
		f, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	return fields, nil
}

func (p *parser) parseSelect() (ast.Node, error) {
	p.advance() // SELECT
	fields, err := p.parseFieldListOrStar()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	space, name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	where, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return &ast.SelectAll{Space: space, Model: name, Where: where}, nil
	}
	return &ast.Select{Space: space, Model: name, Fields: fields, Where: where}, nil
}

func (p *parser) parseUpdate() (ast.Node, error) {
	p.advance() // UPDATE
	space, name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	var assignments []ast.Assignment
	for {
		field, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		op, plain, err := p.parseAssignOp()
		if err != nil {
			return nil, err
		}
		v, err := p.parseScalarValue()
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, ast.Assignment{Field: field, Op: op, Value: v, Plain: plain})
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	where, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	return &ast.Update{Space: space, Model: name, Assignments: assignments, Where: where}, nil
}

func (p *parser) parseAssignOp() (value.CompoundOp, bool, error) {
	t := p.cur()
	if t.Kind != token.KindSymbol {
		return 0, false, &schemaerrors.SyntaxError{Message: "expected an assignment operator", Pos: t.Pos}
	}
	switch t.Text {
	case "=":
		p.advance()
		return 0, true, nil
	case "+":
		return p.compoundOp(value.OpAddAssign)
	case "-":
		return p.compoundOp(value.OpSubAssign)
	case "*":
		return p.compoundOp(value.OpMulAssign)
	case "/":
		return p.compoundOp(value.OpDivAssign)
	default:
		return 0, false, &schemaerrors.SyntaxError{Message: "expected an assignment operator", Pos: t.Pos}
	}
}

func (p *parser) compoundOp(op value.CompoundOp) (value.CompoundOp, bool, error) {
	p.advance()
	if err := p.expectSymbol("="); err != nil {
		return 0, false, err
	}
	return op, false, nil
}

func (p *parser) parseDelete() (ast.Node, error) {
	p.advance() // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	space, name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	where, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	return &ast.Delete{Space: space, Model: name, Where: where}, nil
}

// parseSysctl parses the blocking, DDL-class administration surface (spec
// §6: "sysctl create user <name> <password> | sysctl drop user <name> |
// sysctl report status"). The AUTH-namespace user commands (adduser/
// deluser/listuser/restore) live under AUTH instead — see parseAuth.
func (p *parser) parseSysctl() (ast.Node, error) {
	p.advance() // SYSCTL
	switch {
	case p.atKeyword("CREATE"):
		p.advance()
		if err := p.expectIdentLower("user"); err != nil {
			return nil, err
		}
		username, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		password, err := p.expectStringLiteral()
		if err != nil {
			return nil, err
		}
		return &ast.Sysctl{Op: ast.SysctlCreateUser, Username: username, Password: password}, nil
	case p.atKeyword("DROP"):
		p.advance()
		if err := p.expectIdentLower("user"); err != nil {
			return nil, err
		}
		username, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &ast.Sysctl{Op: ast.SysctlDropUser, Username: username}, nil
	default:
		if err := p.expectIdentLower("report"); err != nil {
			return nil, &schemaerrors.UnknownStatementError{Keyword: p.cur().Text}
		}
		if err := p.expectIdentLower("status"); err != nil {
			return nil, err
		}
		return &ast.Sysctl{Op: ast.SysctlReportStatus}, nil
	}
}

// parseAuth parses the AUTH family (spec §4.8, §6): login/claim/logout/
// whoami are permitted on an Anonymous connection, as is restore's
// origin-key-gated recovery path; adduser/deluser/listuser additionally
// require root (enforced in the dispatcher's permission check).
func (p *parser) parseAuth() (ast.Node, error) {
	p.advance() // AUTH
	ident, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(ident) {
	case "login":
		username, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		password, err := p.expectStringLiteral()
		if err != nil {
			return nil, err
		}
		return &ast.Auth{Op: ast.AuthLogin, Username: username, Password: password}, nil
	case "claim":
		origin, err := p.expectStringLiteral()
		if err != nil {
			return nil, err
		}
		password, err := p.expectStringLiteral()
		if err != nil {
			return nil, err
		}
		return &ast.Auth{Op: ast.AuthClaim, OriginKey: origin, Password: password}, nil
	case "logout":
		return &ast.Auth{Op: ast.AuthLogout}, nil
	case "whoami":
		return &ast.Auth{Op: ast.AuthWhoAmI}, nil
	case "adduser":
		username, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		password, err := p.expectStringLiteral()
		if err != nil {
			return nil, err
		}
		return &ast.Auth{Op: ast.AuthAddUser, Username: username, Password: password}, nil
	case "deluser":
		username, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &ast.Auth{Op: ast.AuthDelUser, Username: username}, nil
	case "listuser":
		return &ast.Auth{Op: ast.AuthListUser}, nil
	case "restore":
		origin, err := p.expectStringLiteral()
		if err != nil {
			return nil, err
		}
		username, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		password, err := p.expectStringLiteral()
		if err != nil {
			return nil, err
		}
		return &ast.Auth{Op: ast.AuthRestore, OriginKey: origin, Username: username, Password: password}, nil
	default:
		return nil, &schemaerrors.UnknownStatementError{Keyword: ident}
	}
}

func (p *parser) expectStringLiteral() (string, error) {
	t := p.cur()
	if t.Kind != token.KindString {
		return "", &schemaerrors.SyntaxError{Message: "expected a string literal", Pos: t.Pos}
	}
	p.advance()
	return t.Str, nil
}
