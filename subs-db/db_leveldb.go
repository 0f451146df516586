package main

import _ "github.com/tinode/anonsub/server/db/leveldb"
