package sqldb_test

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/tinywasm/record"
	"github.com/tinywasm/record/sqldb"
)

// openConn opens an in-memory sqlite database with the gadgets table.
func openConn(t *testing.T) *sqldb.Conn {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	// A second pool connection would see a different :memory: database.
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE gadgets (
		uid INTEGER PRIMARY KEY AUTOINCREMENT,
		stringone TEXT,
		stringtwo TEXT,
		numberone INTEGER,
		sometext TEXT
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return sqldb.NewConn(db)
}

func gadgetTable() *sqldb.Table {
	return sqldb.NewTable("gadgets", sqldb.NewBuilder(sqldb.Question),
		record.Field{Name: "uid", Type: record.TypeInt64, Constraints: record.ConstraintPK | record.ConstraintAutoIncrement},
		record.Field{Name: "stringone", Type: record.TypeText},
		record.Field{Name: "stringtwo", Type: record.TypeText},
		record.Field{Name: "numberone", Type: record.TypeInt64},
		record.Field{Name: "sometext", Type: record.TypeText},
	)
}

func saveGadget(t *testing.T, conn *sqldb.Conn, fields map[string]any) *record.Record {
	t.Helper()
	r := record.NewRecord(gadgetTable(), conn)
	for k, v := range fields {
		if err := r.Set(k, v); err != nil {
			t.Fatalf("Set(%s) failed: %v", k, err)
		}
	}
	if err := r.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return r
}

func TestSQLiteRoundTrip(t *testing.T) {
	conn := openConn(t)
	r := saveGadget(t, conn, map[string]any{"stringone": "Xylophone", "numberone": 42})

	if r.ID() == nil {
		t.Fatal("Save must write the generated key back")
	}
	if r.Status() != record.Loaded {
		t.Errorf("Status after save = %v", r.Status())
	}

	fresh := record.NewRecord(gadgetTable(), conn)
	if err := fresh.Load(r.ID()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if fresh.Status() != record.Loaded {
		t.Fatalf("Status after load = %v", fresh.Status())
	}
	if got := fresh.Get("stringone"); got != "Xylophone" {
		t.Errorf("stringone = %v", got)
	}
	if got := fresh.Get("numberone"); got != int64(42) {
		t.Errorf("numberone = %v (%T)", got, got)
	}
	if got := fresh.Get("stringtwo"); got != nil {
		t.Errorf("Unset column must load as nil, got %v", got)
	}
}

func TestSQLiteLoadNotFound(t *testing.T) {
	conn := openConn(t)
	r := record.NewRecord(gadgetTable(), conn)
	if err := r.Load(999); err != nil {
		t.Fatalf("Load returned error for zero rows: %v", err)
	}
	if r.Status() != record.NotFound {
		t.Errorf("Status = %v, expected not found", r.Status())
	}
	if r.Count() != 0 {
		t.Errorf("Field data must be cleared, have %d fields", r.Count())
	}
}

func TestSQLiteUpdateAndDelete(t *testing.T) {
	conn := openConn(t)
	r := saveGadget(t, conn, map[string]any{"stringone": "before"})
	id := r.ID()

	if err := r.Set("stringone", "after"); err != nil {
		t.Fatal(err)
	}
	if err := r.Save(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fresh := record.NewRecord(gadgetTable(), conn)
	if err := fresh.Load(id); err != nil {
		t.Fatal(err)
	}
	if got := fresh.Get("stringone"); got != "after" {
		t.Errorf("stringone after update = %v", got)
	}

	if err := fresh.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	gone := record.NewRecord(gadgetTable(), conn)
	if err := gone.Load(id); err != nil {
		t.Fatal(err)
	}
	if gone.Status() != record.NotFound {
		t.Errorf("Deleted row still loads: %v", gone.Status())
	}
}

func TestSQLiteSetOrderingAndFilter(t *testing.T) {
	conn := openConn(t)
	saveGadget(t, conn, map[string]any{"sometext": "DELTA", "stringtwo": "ABCD"})
	saveGadget(t, conn, map[string]any{"sometext": "ALPHA"})
	saveGadget(t, conn, map[string]any{"sometext": "CHARLIE"})
	saveGadget(t, conn, map[string]any{"sometext": "BRAVO"})

	s := record.NewRecordSet(record.NewRecord(gadgetTable(), conn))
	s.AddOrder("sometext")
	if err := s.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if s.Count() != 4 {
		t.Fatalf("Count = %d", s.Count())
	}
	if got := s.Top().Get("sometext"); got != "ALPHA" {
		t.Errorf("Top after ordering = %v", got)
	}

	f := record.NewRecordSet(record.NewRecord(gadgetTable(), conn))
	f.AddFilter("stringtwo = ?", "ABCD")
	if err := f.Run(); err != nil {
		t.Fatalf("Filtered run failed: %v", err)
	}
	if f.Count() != 1 {
		t.Fatalf("Filtered count = %d", f.Count())
	}
	if got := f.Record(0).Get("sometext"); got != "DELTA" {
		t.Errorf("Filtered row = %v", got)
	}
}

func TestSQLiteMaxMinWithNulls(t *testing.T) {
	conn := openConn(t)
	saveGadget(t, conn, map[string]any{"sometext": "A"})
	saveGadget(t, conn, map[string]any{"sometext": "B"})

	s := record.NewRecordSet(record.NewRecord(gadgetTable(), conn))
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	// stringtwo is NULL everywhere, so max falls back to the first item.
	if got := s.Max("stringtwo"); got != s.Top() {
		t.Errorf("Max over all-null column = %v", got)
	}
	if got := s.Max("sometext").Get("sometext"); got != "B" {
		t.Errorf("Max sometext = %v", got)
	}
	if got := s.Min("sometext").Get("sometext"); got != "A" {
		t.Errorf("Min sometext = %v", got)
	}
}

func TestSQLiteDeleteAllCommits(t *testing.T) {
	conn := openConn(t)
	for i := 0; i < 3; i++ {
		saveGadget(t, conn, map[string]any{"numberone": i})
	}

	s := record.NewRecordSet(record.NewRecord(gadgetTable(), conn))
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteAll(true); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("Count after DeleteAll = %d", s.Count())
	}
	if conn.InTransaction() {
		t.Error("Transaction left open after DeleteAll")
	}

	n, err := record.NewRecordSet(record.NewRecord(gadgetTable(), conn)).RunForCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d rows survived DeleteAll", n)
	}
}

func TestSQLiteDeleteAllFlattensIntoOuterTx(t *testing.T) {
	conn := openConn(t)
	for i := 0; i < 3; i++ {
		saveGadget(t, conn, map[string]any{"numberone": i})
	}

	if err := conn.BeginTransaction(); err != nil {
		t.Fatal(err)
	}
	s := record.NewRecordSet(record.NewRecord(gadgetTable(), conn))
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteAll(true); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if !conn.InTransaction() {
		t.Fatal("DeleteAll must not commit the caller's transaction")
	}
	if err := conn.Rollback(); err != nil {
		t.Fatal(err)
	}

	// The deletes rode the outer transaction, so rollback restores them.
	n, err := record.NewRecordSet(record.NewRecord(gadgetTable(), conn)).RunForCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Rollback restored %d of 3 rows", n)
	}
}

func TestSQLiteBulkSave(t *testing.T) {
	conn := openConn(t)
	tbl := gadgetTable()
	s := record.NewRecordSet(record.NewRecord(tbl, conn))

	for _, name := range []string{"one", "two"} {
		r := record.NewRecord(tbl, conn)
		if err := r.Set("stringone", name); err != nil {
			t.Fatal(err)
		}
		if err := s.Add(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Save(true); err != nil {
		t.Fatalf("Bulk save failed: %v", err)
	}
	for i := 0; i < s.Count(); i++ {
		if s.Record(i).ID() == nil {
			t.Errorf("Record %d missing generated key", i)
		}
	}
	if conn.InTransaction() {
		t.Error("Transaction left open after bulk save")
	}
}
