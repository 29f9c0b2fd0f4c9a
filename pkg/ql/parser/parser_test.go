package parser

import (
	"strings"
	"testing"

	"github.com/skytable/skytable-sub005/pkg/ql/ast"
	"github.com/skytable/skytable-sub005/pkg/value"
)

func TestParseCreateSpace(t *testing.T) {
	node, err := Parse(`create space myspace with { owner: 'alice' }`, nil)
	if err != nil {
		t.Fatal(err)
	}
	cs, ok := node.(*ast.CreateSpace)
	if !ok {
		t.Fatalf("expected *ast.CreateSpace, got %T", node)
	}
	if cs.Name != "myspace" {
		t.Fatalf("unexpected name: %q", cs.Name)
	}
	if owner, _ := cs.Props["owner"].Scalar.AsString(); owner != "alice" {
		t.Fatalf("unexpected owner prop: %q", owner)
	}
}

func TestParseCreateModel(t *testing.T) {
	node, err := Parse(`create model myspace.users (id: string, age: uint null)`, nil)
	if err != nil {
		t.Fatal(err)
	}
	cm, ok := node.(*ast.CreateModel)
	if !ok {
		t.Fatalf("expected *ast.CreateModel, got %T", node)
	}
	if cm.Space != "myspace" || cm.Name != "users" {
		t.Fatalf("unexpected space/name: %q/%q", cm.Space, cm.Name)
	}
	if len(cm.Fields) != 2 || cm.Fields[0].Name != "id" || cm.Fields[1].Nullable != true {
		t.Fatalf("unexpected fields: %+v", cm.Fields)
	}
}

func TestParseCreateModelWidthSuffixedType(t *testing.T) {
	node, err := Parse(`create model bench.bench (un: string, pw: uint8)`, nil)
	if err != nil {
		t.Fatal(err)
	}
	cm := node.(*ast.CreateModel)
	if len(cm.Fields) != 2 || cm.Fields[1].Tag != value.TagUint {
		t.Fatalf("unexpected fields: %+v", cm.Fields)
	}
}

func TestParseInsertPositional(t *testing.T) {
	node, err := Parse(`insert into users ('k1', ?)`, [][]byte{[]byte("png-bytes")})
	if err != nil {
		t.Fatal(err)
	}
	ins, ok := node.(*ast.Insert)
	if !ok {
		t.Fatalf("expected *ast.Insert, got %T", node)
	}
	if len(ins.Values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(ins.Values))
	}
	if id, _ := ins.Values[0].AsString(); id != "k1" {
		t.Fatalf("unexpected first value: %q", id)
	}
	if b, _ := ins.Values[1].Binary(); string(b) != "png-bytes" {
		t.Fatalf("unexpected second value: %q", b)
	}
}

func TestParseSelectWithWhere(t *testing.T) {
	node, err := Parse(`select name, age from users where id = 'k1'`, nil)
	if err != nil {
		t.Fatal(err)
	}
	sel, ok := node.(*ast.Select)
	if !ok {
		t.Fatalf("expected *ast.Select, got %T", node)
	}
	if len(sel.Fields) != 2 || sel.Where.Field != "id" {
		t.Fatalf("unexpected select: %+v", sel)
	}
}

func TestParseSelectAll(t *testing.T) {
	node, err := Parse(`select all from users`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := node.(*ast.SelectAll); !ok {
		t.Fatalf("expected *ast.SelectAll, got %T", node)
	}
}

func TestParseSelectStarWildcard(t *testing.T) {
	node, err := Parse(`select * from bench.bench where un = 'u1'`, nil)
	if err != nil {
		t.Fatal(err)
	}
	sel, ok := node.(*ast.SelectAll)
	if !ok {
		t.Fatalf("expected *ast.SelectAll, got %T", node)
	}
	if sel.Space != "bench" || sel.Model != "bench" {
		t.Fatalf("unexpected space/model: %q/%q", sel.Space, sel.Model)
	}
}

func TestParseUpdateCompoundAssignment(t *testing.T) {
	node, err := Parse(`update users set age += 1 where id = 'k1'`, nil)
	if err != nil {
		t.Fatal(err)
	}
	upd, ok := node.(*ast.Update)
	if !ok {
		t.Fatalf("expected *ast.Update, got %T", node)
	}
	if len(upd.Assignments) != 1 || upd.Assignments[0].Op != value.OpAddAssign || upd.Assignments[0].Plain {
		t.Fatalf("unexpected assignment: %+v", upd.Assignments)
	}
}

func TestParseDelete(t *testing.T) {
	node, err := Parse(`delete from users where id = 'k1'`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := node.(*ast.Delete); !ok {
		t.Fatalf("expected *ast.Delete, got %T", node)
	}
}

func TestParseSysctlCreateUser(t *testing.T) {
	node, err := Parse(`sysctl create user alice 'pw'`, nil)
	if err != nil {
		t.Fatal(err)
	}
	sc, ok := node.(*ast.Sysctl)
	if !ok || sc.Op != ast.SysctlCreateUser || sc.Username != "alice" {
		t.Fatalf("unexpected sysctl node: %+v", node)
	}
}

func TestParseSysctlDropUser(t *testing.T) {
	node, err := Parse(`sysctl drop user alice`, nil)
	if err != nil {
		t.Fatal(err)
	}
	sc, ok := node.(*ast.Sysctl)
	if !ok || sc.Op != ast.SysctlDropUser || sc.Username != "alice" {
		t.Fatalf("unexpected sysctl node: %+v", node)
	}
}

func TestParseSysctlReportStatus(t *testing.T) {
	node, err := Parse(`sysctl report status`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sc, ok := node.(*ast.Sysctl); !ok || sc.Op != ast.SysctlReportStatus {
		t.Fatalf("unexpected sysctl node: %+v", node)
	}
}

func TestParseAuthLogin(t *testing.T) {
	node, err := Parse(`auth login root 'rootpw'`, nil)
	if err != nil {
		t.Fatal(err)
	}
	a, ok := node.(*ast.Auth)
	if !ok || a.Op != ast.AuthLogin || a.Username != "root" {
		t.Fatalf("unexpected auth node: %+v", node)
	}
}

func TestParseAuthClaimCapturesOriginKeyAndPassword(t *testing.T) {
	node, err := Parse(`auth claim 'origin-key' 'rootpw'`, nil)
	if err != nil {
		t.Fatal(err)
	}
	a, ok := node.(*ast.Auth)
	if !ok || a.Op != ast.AuthClaim || a.OriginKey != "origin-key" || a.Password != "rootpw" {
		t.Fatalf("unexpected auth node: %+v", node)
	}
}

func TestParseAuthAddUser(t *testing.T) {
	node, err := Parse(`auth adduser alice 'pw'`, nil)
	if err != nil {
		t.Fatal(err)
	}
	a, ok := node.(*ast.Auth)
	if !ok || a.Op != ast.AuthAddUser || a.Username != "alice" || a.Password != "pw" {
		t.Fatalf("unexpected auth node: %+v", node)
	}
}

func TestParseAuthRestore(t *testing.T) {
	node, err := Parse(`auth restore 'origin-key' alice 'new-pw'`, nil)
	if err != nil {
		t.Fatal(err)
	}
	a, ok := node.(*ast.Auth)
	if !ok || a.Op != ast.AuthRestore || a.OriginKey != "origin-key" || a.Username != "alice" || a.Password != "new-pw" {
		t.Fatalf("unexpected auth node: %+v", node)
	}
}

func TestParseTrailingTokensIsError(t *testing.T) {
	if _, err := Parse(`auth logout extra`, nil); err == nil {
		t.Fatal("expected trailing tokens to be a syntax error")
	}
}

func TestParseEmptyInsertFieldListFailsVerify(t *testing.T) {
	if _, err := Parse(`insert into users ()`, nil); err == nil {
		t.Fatal("expected empty field list to fail parsing or verification")
	}
}

// TestParseSpecWorkedExample parses spec's own S1 worked example end to end,
// statement by statement, exactly as written (colon-separated field defs,
// strictly positional INSERT values, `*` wildcard SELECT).
func TestParseSpecWorkedExample(t *testing.T) {
	src := `create space bench; create model bench.bench (un: string, pw: uint8); insert into bench.bench('u1', 5); select * from bench.bench where un='u1'`
	var stmts []string
	for _, s := range strings.Split(src, ";") {
		s = strings.TrimSpace(s)
		if s != "" {
			stmts = append(stmts, s)
		}
	}
	if len(stmts) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(stmts))
	}

	if _, err := Parse(stmts[0], nil); err != nil {
		t.Fatalf("create space: %v", err)
	}

	cmNode, err := Parse(stmts[1], nil)
	if err != nil {
		t.Fatalf("create model: %v", err)
	}
	cm := cmNode.(*ast.CreateModel)
	if len(cm.Fields) != 2 || cm.Fields[1].Tag != value.TagUint {
		t.Fatalf("unexpected fields: %+v", cm.Fields)
	}

	insNode, err := Parse(stmts[2], nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	ins := insNode.(*ast.Insert)
	if len(ins.Values) != 2 {
		t.Fatalf("expected 2 positional values, got %d", len(ins.Values))
	}

	selNode, err := Parse(stmts[3], nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	sel := selNode.(*ast.SelectAll)
	if sel.Where.Field != "un" {
		t.Fatalf("unexpected where clause: %+v", sel.Where)
	}
}
