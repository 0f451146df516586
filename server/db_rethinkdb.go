//go:build rethinkdb
// +build rethinkdb

package main

import _ "github.com/tinode/anonsub/server/db/rethinkdb"
