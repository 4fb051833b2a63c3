package sqlstore

import (
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

var testStore *SQLStore

func SetupTestDB(t *testing.T) {
	var err error
	testStore, err = New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
}

func TeardownTestDB() {
	testStore.db.Close()
}

func TestRebind(t *testing.T) {
	s := &SQLStore{driverName: "postgres"}
	got := s.rebind("SELECT * FROM t WHERE a = ? AND b = ?")
	if got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Errorf("unexpected postgres query: %s", got)
	}

	s = &SQLStore{driverName: "sqlite3"}
	if got := s.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite query should be unchanged, got %s", got)
	}
}
