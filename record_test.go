package record_test

import (
	"strings"
	"testing"

	"github.com/tinywasm/record"
	"github.com/tinywasm/record/sqldb"
)

func thingTable() *sqldb.Table {
	return sqldb.NewTable("things", sqldb.NewBuilder(sqldb.Question),
		record.Field{Name: "uid", Type: record.TypeInt64, Constraints: record.ConstraintPK | record.ConstraintAutoIncrement},
		record.Field{Name: "name", Type: record.TypeText},
		record.Field{Name: "qty", Type: record.TypeInt64},
		record.Field{Name: "price", Type: record.TypeFloat64},
	)
}

func TestSetGetCoercion(t *testing.T) {
	r := record.NewRecord(thingTable(), &mockConn{})

	if err := r.Set("qty", "42"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := r.Get("qty"); got != int64(42) {
		t.Errorf("Expected int64(42), got %#v", got)
	}

	// Coercion is idempotent: setting an already-coerced value is stable.
	if err := r.Set("qty", r.Get("qty")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := r.Get("qty"); got != int64(42) {
		t.Errorf("Expected int64(42) after double coercion, got %#v", got)
	}

	if err := r.Set("nosuch", 1); err != nil {
		t.Errorf("Set on unknown field must be a no-op, got %v", err)
	}
	if got := r.Get("nosuch"); got != nil {
		t.Errorf("Get on unknown field must be nil, got %#v", got)
	}
	if got := r.Get("name"); got != nil {
		t.Errorf("Get on unset field must be nil, got %#v", got)
	}
}

func TestStrictCoercion(t *testing.T) {
	r := record.NewRecord(thingTable(), &mockConn{})
	r.SetStrict(true)

	err := r.Set("qty", "not a number")
	if err == nil {
		t.Fatal("Expected strict coercion error")
	}
	if !strings.Contains(err.Error(), "coercion") {
		t.Errorf("Unexpected error: %v", err)
	}

	r.SetStrict(false)
	if err := r.Set("qty", "not a number"); err != nil {
		t.Fatalf("Lenient Set failed: %v", err)
	}
}

func TestVirtualIDAlias(t *testing.T) {
	r := record.NewRecord(thingTable(), &mockConn{})

	if err := r.Set("id", 5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := r.Get("uid"); got != int64(5) {
		t.Errorf("Alias must route to uid, got %#v", got)
	}
	if got := r.Get("id"); got != int64(5) {
		t.Errorf("Alias read must route to uid, got %#v", got)
	}
	if got := r.ID(); got != int64(5) {
		t.Errorf("ID() = %#v", got)
	}
}

func TestLoadByKey(t *testing.T) {
	conn := &mockConn{}
	stmt := &mockStmt{rows: []record.Row{{"uid": int64(7), "name": "Ada", "qty": int64(3)}}}
	conn.push(stmt)

	r := record.NewRecord(thingTable(), conn)
	if err := r.Load(7); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := "SELECT * FROM things WHERE uid = ? LIMIT 1"
	if conn.lastSQL() != want {
		t.Errorf("Expected %q, got %q", want, conn.lastSQL())
	}
	if len(stmt.binds) != 1 || stmt.binds[0] != int64(7) {
		t.Errorf("Expected bindings [7], got %v", stmt.binds)
	}
	if !r.IsLoaded() {
		t.Errorf("Expected Loaded, got %v", r.Status())
	}
	if got := r.Get("name"); got != "Ada" {
		t.Errorf("Expected name Ada, got %#v", got)
	}
	if !stmt.closed {
		t.Error("Statement not closed")
	}
}

func TestLoadNotFound(t *testing.T) {
	conn := &mockConn{}
	conn.push(&mockStmt{})

	r := record.NewRecord(thingTable(), conn)
	r.Set("name", "stale")
	if err := r.Load(99); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.Status() != record.NotFound {
		t.Errorf("Expected NotFound, got %v", r.Status())
	}
	if r.Count() != 0 {
		t.Errorf("Expected cleared fields, got %d", r.Count())
	}
}

func TestLoadWithoutKey(t *testing.T) {
	r := record.NewRecord(thingTable(), &mockConn{})
	err := r.Load(nil)
	if err == nil {
		t.Fatal("Expected an error for Load with no key")
	}
	if !strings.Contains(err.Error(), "no key value") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoadFrom(t *testing.T) {
	conn := &mockConn{}
	stmt := &mockStmt{rows: []record.Row{{"uid": int64(1), "name": "Ada"}}}
	conn.push(stmt)

	r := record.NewRecord(thingTable(), conn)
	if err := r.LoadFrom("name = ?", "Ada"); err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	want := "SELECT * FROM things WHERE name = ? LIMIT 1"
	if conn.lastSQL() != want {
		t.Errorf("Expected %q, got %q", want, conn.lastSQL())
	}
	if !r.IsLoaded() {
		t.Errorf("Expected Loaded, got %v", r.Status())
	}
}

func TestSaveInsertReturning(t *testing.T) {
	conn := &mockConn{}
	stmt := &mockStmt{rows: []record.Row{{"uid": int64(9)}}}
	conn.push(stmt)

	r := record.NewRecord(thingTable(), conn)
	r.Set("name", "Ada")
	if err := r.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	want := "INSERT INTO things (name) VALUES (?) RETURNING uid"
	if conn.lastSQL() != want {
		t.Errorf("Expected %q, got %q", want, conn.lastSQL())
	}
	if !r.IsLoaded() {
		t.Errorf("Expected Loaded, got %v", r.Status())
	}
	if got := r.ID(); got != int64(9) {
		t.Errorf("Expected generated key 9, got %#v", got)
	}
}

func TestSaveInsertNoFields(t *testing.T) {
	conn := &mockConn{}
	r := record.NewRecord(thingTable(), conn)
	if err := r.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(conn.prepared) != 0 {
		t.Errorf("Expected no round trip, got %v", conn.prepared)
	}
	if r.Status() != record.NotLoaded {
		t.Errorf("Expected NotLoaded, got %v", r.Status())
	}
}

func TestSaveUpdate(t *testing.T) {
	conn := &mockConn{}
	conn.push(&mockStmt{rows: []record.Row{{"uid": int64(7), "name": "Ada", "qty": int64(3)}}})

	r := record.NewRecord(thingTable(), conn)
	if err := r.Load(7); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	stmt := &mockStmt{}
	conn.push(stmt)
	r.Set("qty", 4)
	if err := r.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	want := "UPDATE things SET name = ?, qty = ? WHERE uid = ?"
	if conn.lastSQL() != want {
		t.Errorf("Expected %q, got %q", want, conn.lastSQL())
	}
	if len(stmt.binds) != 3 || stmt.binds[2] != int64(7) {
		t.Errorf("Expected key binding last, got %v", stmt.binds)
	}
}

func TestSaveUpdateWithoutKey(t *testing.T) {
	conn := &mockConn{}
	conn.push(&mockStmt{rows: []record.Row{{"name": "Ada"}}})

	r := record.NewRecord(thingTable(), conn)
	if err := r.LoadFrom("name = ?", "Ada"); err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	// Loaded, but the fetched row carried no key column.
	r.Set("qty", 4)

	issued := len(conn.prepared)
	err := r.Save()
	if err == nil || !strings.Contains(err.Error(), "no key value") {
		t.Errorf("Expected missing-key error, got %v", err)
	}
	if len(conn.prepared) != issued {
		t.Error("Update without a key must not issue a round trip")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	conn := &mockConn{}
	conn.push(&mockStmt{rows: []record.Row{{"uid": int64(7), "name": "Ada"}}})

	r := record.NewRecord(thingTable(), conn)
	if err := r.Load(7); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	conn.push(&mockStmt{})
	if err := r.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	want := "DELETE FROM things WHERE uid = ?"
	if conn.lastSQL() != want {
		t.Errorf("Expected %q, got %q", want, conn.lastSQL())
	}
	if r.Status() != record.NotLoaded {
		t.Errorf("Expected NotLoaded, got %v", r.Status())
	}

	issued := len(conn.prepared)
	if err := r.Delete(); err != nil {
		t.Fatalf("Second Delete must not fail: %v", err)
	}
	if len(conn.prepared) != issued {
		t.Error("Second Delete must not issue a round trip")
	}
	if r.Status() != record.NotLoaded {
		t.Errorf("Expected NotLoaded after second delete, got %v", r.Status())
	}
}

func TestClonePrototype(t *testing.T) {
	tbl := thingTable()
	conn := &mockConn{}
	r := record.NewRecord(tbl, conn)
	r.SetStrict(true)
	r.Set("name", "Ada")

	c := r.Clone()
	if c.Table() != record.Table(tbl) || c.Connection() != record.Connection(conn) {
		t.Error("Clone must share table and connection")
	}
	if c.Count() != 0 {
		t.Errorf("Clone must be empty, got %d fields", c.Count())
	}
	if c.Status() != record.NotLoaded {
		t.Errorf("Clone must be NotLoaded, got %v", c.Status())
	}
	if err := c.Set("qty", "nope"); err == nil {
		t.Error("Clone must inherit strict mode")
	}
}
