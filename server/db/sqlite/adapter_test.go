//go:build sqlite
// +build sqlite

package sqlite

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/tinode/anonsub/server/db/common/testsuite"
)

func TestAdapter(t *testing.T) {
	adp := GetTestAdapter()
	conf, _ := json.Marshal(map[string]string{"database": filepath.Join(t.TempDir(), "anonsub.db")})
	if err := adp.Open(conf); err != nil {
		t.Fatal(err)
	}
	defer adp.Close()

	testsuite.Run(t, adp)
}
