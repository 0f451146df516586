//go:build mongodb
// +build mongodb

package mongodb

import (
	"encoding/json"
	"flag"
	"os"
	"testing"

	"github.com/tinode/anonsub/server/db/common/testsuite"
	jcr "github.com/tinode/jsonco"
)

var conffile = flag.String("config", "./test.conf", "config of the database connection")

// Requires a running mongodb server. The database is recreated on every run.
func TestAdapter(t *testing.T) {
	file, err := os.Open(*conffile)
	if err != nil {
		t.Skip("no database config:", err)
	}
	defer file.Close()

	var config struct {
		Adapters map[string]json.RawMessage `json:"adapters"`
	}
	if err = json.NewDecoder(jcr.New(file)).Decode(&config); err != nil {
		t.Fatal("Failed to parse config file:", err)
	}

	adp := GetTestAdapter()
	if err = adp.Open(config.Adapters[adapterName]); err != nil {
		t.Fatal(err)
	}
	defer adp.Close()

	testsuite.Run(t, adp)
}
