package main

// The embedded adapter is always available.
import _ "github.com/tinode/anonsub/server/db/leveldb"
