// Package dispatcher implements spec §4.5: statement classification, the
// permission gate, and the commit discipline that orders an in-memory
// mutation against its journal append so neither is left half-applied.
package dispatcher

import (
	"sync"

	schemaerrors "github.com/skytable/skytable-sub005/pkg/errors"
	"github.com/skytable/skytable-sub005/pkg/gns"
	"github.com/skytable/skytable-sub005/pkg/journal"
	"github.com/skytable/skytable-sub005/pkg/journal/adapter"
	"github.com/skytable/skytable-sub005/pkg/logging"
	"github.com/skytable/skytable-sub005/pkg/mtchm"
	"github.com/skytable/skytable-sub005/pkg/protocol"
	"github.com/skytable/skytable-sub005/pkg/ql/ast"
	"github.com/skytable/skytable-sub005/pkg/schema"
	"github.com/skytable/skytable-sub005/pkg/sysdb"
	"github.com/skytable/skytable-sub005/pkg/value"
)

// BatchJournal is the subset of journal.Writer the dispatcher needs for a
// per-model batch log; satisfied by *journal.Writer.
type BatchJournal interface {
	Append(kind journal.EventKind, payload []byte) (uint64, error)
}

// ModelJournalOpener creates (or reopens) the batch journal a newly created
// model should append to, normally backed by journal.CreateWriter against
// the data directory's spaces/<uuid>/models/<uuid>/data.db-btlog path.
type ModelJournalOpener func(sp *schema.Space, m *schema.Model) (BatchJournal, error)

// Dispatcher routes parsed statements to the GNS and to the appropriate
// journal, enforcing the permission gate and commit discipline.
type Dispatcher struct {
	GNS        *gns.GNS
	GNSJournal BatchJournal
	OpenModelJournal ModelJournalOpener // nil disables on-the-fly journal creation (tests)

	// OriginKey gates AUTH CLAIM and AUTH RESTORE (spec §4.8): both require
	// the caller to present this out-of-band secret before root can be
	// claimed or a password reset. Empty means claim/restore are refused
	// outright, which is the safe default until an operator configures one.
	OriginKey string

	mu      sync.Mutex
	batches map[string]BatchJournal // "space/model" -> per-model batch journal
}

func New(g *gns.GNS, gnsJournal BatchJournal) *Dispatcher {
	return &Dispatcher{GNS: g, GNSJournal: gnsJournal, batches: make(map[string]BatchJournal)}
}

// RegisterBatchJournal associates a per-model batch journal with a model,
// normally called right after CreateModel both live and during recovery.
func (d *Dispatcher) RegisterBatchJournal(space, model string, w BatchJournal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches[space+"/"+model] = w
}

func (d *Dispatcher) batchJournal(space, model string) (BatchJournal, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.batches[space+"/"+model]
	return w, ok
}

// AllBatchJournals returns every registered per-model batch journal, for a
// caller that needs to close them all on shutdown.
func (d *Dispatcher) AllBatchJournals() []BatchJournal {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]BatchJournal, 0, len(d.batches))
	for _, w := range d.batches {
		out = append(out, w)
	}
	return out
}

// Execute runs one parsed statement against the GNS, enforcing permissions
// and committing to the journal per spec §4.5. Blank space/model names are
// filled in from sess.CurrentSpace before anything else runs.
func (d *Dispatcher) Execute(sess *Session, node ast.Node) (protocol.Response, error) {
	if err := CheckPermission(node, sess.Auth); err != nil {
		return protocol.Response{}, err
	}
	qualify(node, sess.CurrentSpace)

	switch n := node.(type) {
	case *ast.CreateSpace:
		return d.execDDL(func() (any, func(), error) {
			sp, err := d.GNS.CreateSpace(n.Name, n.Props)
			if err != nil {
				return nil, nil, err
			}
			return sp, func() { d.GNS.DropSpace(n.Name) }, nil
		}, func(v any) ([]byte, error) { return adapter.EncodeCreateSpace(v.(*schema.Space)) }, adapter.EventCreateSpace)

	case *ast.DropSpace:
		return d.execDDL(func() (any, func(), error) {
			if err := d.GNS.DropSpace(n.Name); err != nil {
				return nil, nil, err
			}
			return nil, func() {}, nil // dropped spaces are not restored; spec has no re-create-on-rollback requirement
		}, func(any) ([]byte, error) { return adapter.EncodeDropSpace(n.Name) }, adapter.EventDropSpace)

	case *ast.AlterSpace:
		return d.execDDL(func() (any, func(), error) {
			if err := d.GNS.AlterSpace(n.Name, n.Props); err != nil {
				return nil, nil, err
			}
			return nil, func() {}, nil
		}, func(any) ([]byte, error) { return adapter.EncodeAlterSpace(n.Name, n.Props) }, adapter.EventAlterSpace)

	case *ast.CreateModel:
		resp, err := d.execDDL(func() (any, func(), error) {
			m, err := d.GNS.CreateModel(n.Space, n.Name, n.Fields)
			if err != nil {
				return nil, nil, err
			}
			return m, func() { d.GNS.DropModel(n.Space, n.Name) }, nil
		}, func(v any) ([]byte, error) { return adapter.EncodeCreateModel(v.(*schema.Model)) }, adapter.EventCreateModel)
		if err == nil && d.OpenModelJournal != nil {
			d.openFreshModelJournal(n.Space, n.Name)
		}
		return resp, err

	case *ast.DropModel:
		return d.execDDL(func() (any, func(), error) {
			if err := d.GNS.DropModel(n.Space, n.Name); err != nil {
				return nil, nil, err
			}
			return nil, func() {}, nil
		}, func(any) ([]byte, error) { return adapter.EncodeDropModel(n.Space, n.Name) }, adapter.EventDropModel)

	case *ast.AlterModel:
		return d.execAlterModel(n)

	case *ast.Insert:
		return d.execInsert(n)
	case *ast.Update:
		return d.execUpdate(n)
	case *ast.Delete:
		return d.execDelete(n)
	case *ast.Select:
		return d.execSelect(n.Space, n.Model, n.Fields, n.Where)
	case *ast.SelectAll:
		return d.execSelect(n.Space, n.Model, nil, n.Where)

	case *ast.Sysctl:
		return d.execSysctl(n)
	case *ast.Auth:
		return d.execAuth(sess, n)

	default:
		return protocol.Response{}, &schemaerrors.UnknownStatementError{Keyword: "?"}
	}
}

func qualify(node ast.Node, currentSpace string) {
	switch n := node.(type) {
	case *ast.CreateModel:
		if n.Space == "" {
			n.Space = currentSpace
		}
	case *ast.DropModel:
		if n.Space == "" {
			n.Space = currentSpace
		}
	case *ast.AlterModel:
		if n.Space == "" {
			n.Space = currentSpace
		}
	case *ast.Insert:
		if n.Space == "" {
			n.Space = currentSpace
		}
	case *ast.Select:
		if n.Space == "" {
			n.Space = currentSpace
		}
	case *ast.SelectAll:
		if n.Space == "" {
			n.Space = currentSpace
		}
	case *ast.Update:
		if n.Space == "" {
			n.Space = currentSpace
		}
	case *ast.Delete:
		if n.Space == "" {
			n.Space = currentSpace
		}
	}
}

// execDDL implements spec §4.5's DDL commit discipline: "apply in-memory,
// then append the event; on append failure, roll back the in-memory
// mutation and return a transaction error."
func (d *Dispatcher) execDDL(apply func() (result any, rollback func(), err error), encode func(any) ([]byte, error), kind journal.EventKind) (protocol.Response, error) {
	result, rollback, err := apply()
	if err != nil {
		return protocol.Response{}, err
	}
	payload, err := encode(result)
	if err != nil {
		rollback()
		return protocol.Response{}, err
	}
	if _, err := d.GNSJournal.Append(kind, payload); err != nil {
		rollback()
		logging.WithComponent("dispatcher").Error().Err(err).Msg("journal append failed, rolled back DDL")
		return protocol.Response{}, &schemaerrors.JournalIOError{Op: "append", Err: err}
	}
	return protocol.Empty(), nil
}

func (d *Dispatcher) execAlterModel(n *ast.AlterModel) (protocol.Response, error) {
	var payload []byte
	var encErr error
	var applyErr error
	applyErr = d.GNS.AlterModel(n.Space, n.Name, func(m *schema.Model) error {
		if n.Op.Add != nil {
			m.AlterAddField(*n.Op.Add)
			payload, encErr = adapter.EncodeAlterModelAddField(n.Space, n.Name, *n.Op.Add)
			return nil
		}
		if err := m.AlterRemoveField(n.Op.Remove); err != nil {
			return err
		}
		payload, encErr = adapter.EncodeAlterModelRemoveField(n.Space, n.Name, n.Op.Remove)
		return nil
	})
	if applyErr != nil {
		return protocol.Response{}, applyErr
	}
	if encErr != nil {
		return protocol.Response{}, encErr
	}
	if _, err := d.GNSJournal.Append(adapter.EventAlterModel, payload); err != nil {
		return protocol.Response{}, &schemaerrors.JournalIOError{Op: "append", Err: err}
	}
	return protocol.Empty(), nil
}

func (d *Dispatcher) openFreshModelJournal(space, name string) {
	guard := d.GNS.PinSpaces()
	sp, err := lookupSpace(d.GNS, guard, space)
	if err != nil {
		guard.Unpin()
		logging.WithComponent("dispatcher").Error().Err(err).Msg("could not locate space to open model journal")
		return
	}
	m, err := d.GNS.GetModel(guard, space, name)
	guard.Unpin()
	if err != nil {
		logging.WithComponent("dispatcher").Error().Err(err).Msg("could not locate model to open its journal")
		return
	}
	bw, err := d.OpenModelJournal(sp, m)
	if err != nil {
		logging.WithComponent("dispatcher").Error().Err(err).Msg("failed to open new model's batch journal")
		return
	}
	d.RegisterBatchJournal(space, name, bw)
}

func lookupSpace(g *gns.GNS, guard *mtchm.Guard, space string) (*schema.Space, error) {
	sp, ok := g.GetSpace(guard, space)
	if !ok {
		return nil, &schemaerrors.UnknownSpaceError{Name: space}
	}
	return sp, nil
}

func (d *Dispatcher) lookupModel(space, name string) (*schema.Model, error) {
	guard := d.GNS.PinSpaces()
	defer guard.Unpin()
	return d.GNS.GetModel(guard, space, name)
}

// execInsert implements the DML commit discipline (spec §4.5): insert the
// row in memory, append the batch event, and delete the row again if
// encoding or the append fails. Model.InsertRow holds the model's shared
// data privilege only for the index insert; the append and the undo run
// after it is released, so a concurrent reader can see the row before a
// failed append removes it.
func (d *Dispatcher) execInsert(n *ast.Insert) (protocol.Response, error) {
	m, err := d.lookupModel(n.Space, n.Model)
	if err != nil {
		return protocol.Response{}, err
	}
	schemaFields := m.Schema()
	if len(n.Values) != len(schemaFields) {
		return protocol.Response{}, &schemaerrors.SyntaxError{Message: "INSERT value count does not match model schema"}
	}
	fields := make(map[string]value.Value, len(schemaFields))
	for i, f := range schemaFields {
		fields[f.Name] = n.Values[i]
	}
	pkField := schemaFields.PrimaryKeyField()
	pkVal := fields[pkField.Name]
	pk, err := value.NewPrimaryKey(pkVal)
	if err != nil {
		return protocol.Response{}, &schemaerrors.IllegalPrimaryKeyTypeError{TagName: pkVal.Tag().String()}
	}
	row := schema.NewRow(pk, fields, m.CurrentVersion(), 0)
	if err := m.InsertRow(row); err != nil {
		return protocol.Response{}, &schemaerrors.PrimaryKeyCollisionError{Key: pk.String()}
	}

	bj, ok := d.batchJournal(n.Space, n.Model)
	if !ok {
		return protocol.Empty(), nil // no durable journal registered for this model yet
	}
	payload, err := adapter.EncodeInsertBatch([]*schema.Row{row})
	if err != nil {
		m.DeleteRow(pk)
		return protocol.Response{}, err
	}
	if _, err := bj.Append(adapter.EventRowInsert, payload); err != nil {
		m.DeleteRow(pk)
		return protocol.Response{}, &schemaerrors.JournalIOError{Op: "append", Err: err}
	}
	return protocol.Empty(), nil
}

func (d *Dispatcher) execUpdate(n *ast.Update) (protocol.Response, error) {
	m, err := d.lookupModel(n.Space, n.Model)
	if err != nil {
		return protocol.Response{}, err
	}
	schemaFields := m.Schema()
	guard := m.PinRows()
	defer guard.Unpin()
	row, err := findByPredicate(m, guard, n.Where)
	if err != nil {
		return protocol.Response{}, err
	}

	// revision is left at 0 here; a store wired to a real journal would pass
	// the event ID the pending append will receive.
	before := row.ViewRaw()
	// restore puts the pre-mutation snapshot back verbatim.
	restore := func() {
		_ = row.Mutate(m, 0, func(fields map[string]value.Value) error {
			for k := range fields {
				delete(fields, k)
			}
			for k, v := range before {
				fields[k] = v
			}
			return nil
		})
	}
	applyErr := row.Mutate(m, 0, func(fields map[string]value.Value) error {
		for _, a := range n.Assignments {
			field, ok := schemaFields.Lookup(a.Field)
			if !ok {
				return &schemaerrors.FieldNotFoundError{Field: a.Field}
			}
			current, ok := fields[a.Field]
			if !ok {
				current = value.Null()
			}
			if a.Plain {
				if a.Value.IsNull() && !field.Nullable {
					return &schemaerrors.NullIntoNonNullError{Field: a.Field}
				}
				if !a.Value.IsNull() && a.Value.Tag() != field.Tag {
					return &schemaerrors.ConstraintViolationFieldTypedefError{Field: a.Field}
				}
				fields[a.Field] = a.Value
				continue
			}
			result, err := value.ApplyCompound(current, a.Op, a.Value)
			if err != nil || result.Tag() != field.Tag {
				return &schemaerrors.ConstraintViolationFieldTypedefError{Field: a.Field}
			}
			fields[a.Field] = result
		}
		return nil
	})
	if applyErr != nil {
		// Partial writes are not allowed (spec §4.3): restore the
		// pre-mutation snapshot verbatim.
		restore()
		return protocol.Response{}, applyErr
	}

	bj, ok := d.batchJournal(n.Space, n.Model)
	if !ok {
		return protocol.Empty(), nil
	}
	payload, err := adapter.EncodeUpdateBatch([]*schema.Row{row})
	if err != nil {
		restore()
		return protocol.Response{}, err
	}
	if _, err := bj.Append(adapter.EventRowUpdate, payload); err != nil {
		restore()
		return protocol.Response{}, &schemaerrors.JournalIOError{Op: "append", Err: err}
	}
	return protocol.Empty(), nil
}

func (d *Dispatcher) execDelete(n *ast.Delete) (protocol.Response, error) {
	m, err := d.lookupModel(n.Space, n.Model)
	if err != nil {
		return protocol.Response{}, err
	}
	guard := m.PinRows()
	row, err := findByPredicate(m, guard, n.Where)
	guard.Unpin()
	if err != nil {
		return protocol.Response{}, err
	}
	pk := row.Key()
	if _, ok := m.DeleteRow(pk); !ok {
		return protocol.Response{}, &schemaerrors.PrimaryKeyMissingError{Key: pk.String()}
	}

	bj, ok := d.batchJournal(n.Space, n.Model)
	if !ok {
		return protocol.Empty(), nil
	}
	payload, err := adapter.EncodeDeleteBatch([]value.PrimaryKey{pk})
	if err != nil {
		m.InsertRow(row)
		return protocol.Response{}, err
	}
	if _, err := bj.Append(adapter.EventRowDelete, payload); err != nil {
		m.InsertRow(row)
		return protocol.Response{}, &schemaerrors.JournalIOError{Op: "append", Err: err}
	}
	return protocol.Empty(), nil
}

func (d *Dispatcher) execSelect(space, model string, fields []string, where ast.Predicate) (protocol.Response, error) {
	m, err := d.lookupModel(space, model)
	if err != nil {
		return protocol.Response{}, err
	}
	schemaFields := m.Schema()
	guard := m.PinRows()
	defer guard.Unpin()

	var rows [][]value.Value
	m.IterateRows(guard, func(_ value.PrimaryKey, row *schema.Row) bool {
		values := row.View(m)
		if where.Field != "" {
			v, ok := values[where.Field]
			if !ok || !v.Equal(where.Value) {
				return true
			}
		}
		names := fields
		if len(names) == 0 {
			names = fieldNames(schemaFields)
		}
		out := make([]value.Value, len(names))
		for i, name := range names {
			out[i] = values[name]
		}
		rows = append(rows, out)
		return true
	})
	if len(rows) == 1 {
		return protocol.RowResponse(rows[0]), nil
	}
	return protocol.MultiRowResponse(rows), nil
}

func fieldNames(fs schema.FieldSet) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}

// execSysctl implements the blocking user/status administration surface
// (spec §6: "sysctl create user | drop user | report status"). The root-only
// AUTH-namespace user commands live in execAuth instead, even
// though both ultimately call the same GNS/SysDB operations.
func (d *Dispatcher) execSysctl(n *ast.Sysctl) (protocol.Response, error) {
	switch n.Op {
	case ast.SysctlCreateUser:
		if err := d.GNS.CreateUser(n.Username, n.Password); err != nil {
			return protocol.Response{}, err
		}
		payload, err := adapter.EncodeCreateUser(n.Username, n.Password)
		if err != nil {
			d.GNS.DropUser(n.Username)
			return protocol.Response{}, err
		}
		if _, err := d.GNSJournal.Append(adapter.EventCreateUser, payload); err != nil {
			d.GNS.DropUser(n.Username)
			return protocol.Response{}, &schemaerrors.JournalIOError{Op: "append", Err: err}
		}
		return protocol.Empty(), nil

	case ast.SysctlDropUser:
		if err := d.GNS.DropUser(n.Username); err != nil {
			return protocol.Response{}, err
		}
		payload, err := adapter.EncodeDropUser(n.Username)
		if err != nil {
			return protocol.Response{}, err
		}
		if _, err := d.GNSJournal.Append(adapter.EventDropUser, payload); err != nil {
			return protocol.Response{}, &schemaerrors.JournalIOError{Op: "append", Err: err}
		}
		return protocol.Empty(), nil

	case ast.SysctlReportStatus:
		return protocol.ScalarResponse(value.String("OK")), nil

	default:
		return protocol.Response{}, &schemaerrors.UnknownStatementError{Keyword: "SYSCTL"}
	}
}

// execAuth implements the AUTH family (spec §4.8). login, logout and whoami
// only read or change the connection's session state and journal nothing.
// claim, adduser, deluser and restore change the system database and
// append the matching GNS user event; claim ignores a failed append.
func (d *Dispatcher) execAuth(sess *Session, n *ast.Auth) (protocol.Response, error) {
	switch n.Op {
	case ast.AuthLogin:
		if err := d.GNS.SysDB.Verify(n.Username, n.Password); err != nil {
			return protocol.Response{}, err
		}
		sess.Auth = sess.Auth.Authenticate(n.Username)
		return protocol.Empty(), nil

	case ast.AuthClaim:
		if err := d.checkOriginKey(n.OriginKey); err != nil {
			return protocol.Response{}, err
		}
		if d.GNS.SysDB.IsInitialized() {
			return protocol.Response{}, &schemaerrors.PermissionDeniedError{Reason: "root has already been claimed"}
		}
		if err := d.GNS.SysDB.InitRoot(n.Password); err != nil {
			return protocol.Response{}, err
		}
		payload, err := adapter.EncodeCreateUser(sysdb.RootUsername, n.Password)
		if err == nil {
			d.GNSJournal.Append(adapter.EventCreateUser, payload)
		}
		sess.Auth = sess.Auth.Authenticate(sysdb.RootUsername)
		return protocol.Empty(), nil

	case ast.AuthLogout:
		sess.Auth = sess.Auth.Logout()
		return protocol.Empty(), nil

	case ast.AuthWhoAmI:
		if !sess.Auth.IsAuthenticated() {
			return protocol.Response{}, &schemaerrors.NotAuthenticatedError{}
		}
		return protocol.ScalarResponse(value.String(sess.Auth.Username())), nil

	// AuthAddUser/AuthDelUser/AuthListUser are the AUTH-namespace twins of
	// SysctlCreateUser/SysctlDropUser (spec §6): same GNS/SysDB calls and
	// journal events, reached through a different command surface. Root is
	// already enforced by CheckPermission before Execute reaches here.
	case ast.AuthAddUser:
		if err := d.GNS.CreateUser(n.Username, n.Password); err != nil {
			return protocol.Response{}, err
		}
		payload, err := adapter.EncodeCreateUser(n.Username, n.Password)
		if err != nil {
			d.GNS.DropUser(n.Username)
			return protocol.Response{}, err
		}
		if _, err := d.GNSJournal.Append(adapter.EventCreateUser, payload); err != nil {
			d.GNS.DropUser(n.Username)
			return protocol.Response{}, &schemaerrors.JournalIOError{Op: "append", Err: err}
		}
		return protocol.Empty(), nil

	case ast.AuthDelUser:
		if err := d.GNS.DropUser(n.Username); err != nil {
			return protocol.Response{}, err
		}
		payload, err := adapter.EncodeDropUser(n.Username)
		if err != nil {
			return protocol.Response{}, err
		}
		if _, err := d.GNSJournal.Append(adapter.EventDropUser, payload); err != nil {
			return protocol.Response{}, &schemaerrors.JournalIOError{Op: "append", Err: err}
		}
		return protocol.Empty(), nil

	case ast.AuthListUser:
		names := d.GNS.SysDB.ListUsers()
		rows := make([][]value.Value, len(names))
		for i, name := range names {
			rows[i] = []value.Value{value.String(name)}
		}
		return protocol.MultiRowResponse(rows), nil

	// AuthRestore resets a user's password out-of-band (spec §4.8, grounded
	// on the original system's origin-key-gated auth_restore path): the
	// caller proves possession of the origin key instead of the old
	// password, then the new password is journaled the same way any other
	// credential change is.
	case ast.AuthRestore:
		if err := d.checkOriginKey(n.OriginKey); err != nil {
			return protocol.Response{}, err
		}
		if err := d.GNS.ChangePassword(n.Username, n.Password); err != nil {
			return protocol.Response{}, err
		}
		payload, err := adapter.EncodeAlterUser(n.Username, n.Password)
		if err != nil {
			return protocol.Response{}, err
		}
		if _, err := d.GNSJournal.Append(adapter.EventAlterUser, payload); err != nil {
			return protocol.Response{}, &schemaerrors.JournalIOError{Op: "append", Err: err}
		}
		return protocol.Empty(), nil

	default:
		return protocol.Response{}, &schemaerrors.UnknownStatementError{Keyword: "AUTH"}
	}
}

// checkOriginKey gates claim/restore on the operator-configured out-of-band
// secret (spec §4.8). An empty d.OriginKey means no key has been configured,
// so every attempt is refused rather than silently accepted.
func (d *Dispatcher) checkOriginKey(presented string) error {
	if d.OriginKey == "" || presented != d.OriginKey {
		return &schemaerrors.PermissionDeniedError{Reason: "invalid origin key"}
	}
	return nil
}

func findByPredicate(m *schema.Model, guard *mtchm.Guard, where ast.Predicate) (*schema.Row, error) {
	if where.Field == "" {
		return nil, &schemaerrors.SyntaxError{Message: "UPDATE/DELETE requires a WHERE clause"}
	}
	var found *schema.Row
	m.IterateRows(guard, func(_ value.PrimaryKey, row *schema.Row) bool {
		if v, ok := row.ViewRaw()[where.Field]; ok && v.Equal(where.Value) {
			found = row
			return false
		}
		return true
	})
	if found == nil {
		return nil, &schemaerrors.PrimaryKeyMissingError{Key: where.Value.String()}
	}
	return found, nil
}
