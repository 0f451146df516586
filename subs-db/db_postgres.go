//go:build postgres
// +build postgres

package main

import _ "github.com/tinode/anonsub/server/db/postgres"
