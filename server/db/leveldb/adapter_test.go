package leveldb

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/tinode/anonsub/server/db/common/testsuite"
)

func TestAdapter(t *testing.T) {
	adp := GetTestAdapter()
	conf, _ := json.Marshal(map[string]string{"path": filepath.Join(t.TempDir(), "anonsub")})
	if err := adp.Open(conf); err != nil {
		t.Fatal(err)
	}
	defer adp.Close()

	testsuite.Run(t, adp)
}

func TestCreateDbTwice(t *testing.T) {
	adp := GetTestAdapter()
	if err := adp.Open(nil); err != nil {
		t.Fatal(err)
	}
	defer adp.Close()

	if err := adp.CheckDbVersion(); err == nil {
		t.Error("expected error for uninitialized database")
	}
	if err := adp.CreateDb(false); err != nil {
		t.Fatal(err)
	}
	if err := adp.CreateDb(false); err == nil {
		t.Error("expected error when initializing twice without reset")
	}
	if err := adp.CreateDb(true); err != nil {
		t.Error("reset failed:", err)
	}
}
