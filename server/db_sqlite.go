//go:build sqlite
// +build sqlite

package main

import _ "github.com/tinode/anonsub/server/db/sqlite"
