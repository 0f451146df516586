//go:build mysql
// +build mysql

package main

import _ "github.com/tinode/anonsub/server/db/mysql"
