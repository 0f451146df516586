//go:build mongodb
// +build mongodb

package main

import _ "github.com/tinode/anonsub/server/db/mongodb"
