package main

import (
	"fmt"
	"path/filepath"

	storageeng "github.com/TincheHK/prefw/engine/storage"
	storageengdiskv "github.com/TincheHK/prefw/engine/storage/diskv"
	storageenginmem "github.com/TincheHK/prefw/engine/storage/inmem"
	storageengmysql "github.com/TincheHK/prefw/engine/storage/mysql"
	storageengredis "github.com/TincheHK/prefw/engine/storage/redis"
	storagework "github.com/TincheHK/prefw/subsystem/work/storage"
	storageworkdiskv "github.com/TincheHK/prefw/subsystem/work/storage/diskv"
	storageworkinmem "github.com/TincheHK/prefw/subsystem/work/storage/inmem"
	storageworkredis "github.com/TincheHK/prefw/subsystem/work/storage/redis"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

type storageConfig struct {
	engine storageeng.Storage
	work   storagework.Storage
}

// parseStorage configures the named storage backend.
// For the redis backend dsn is the server address and newRedis
// connects to it.
func parseStorage(name, dsn string, newRedis func(addr string) redis.UniversalClient) (*storageConfig, error) {
	switch name {
	case "inmem":
		return &storageConfig{
			engine: storageenginmem.New(),
			work:   storageworkinmem.New(),
		}, nil
	case "file", "diskv":
		if dsn == "" {
			dsn = "db"
		}
		return &storageConfig{
			engine: storageengdiskv.New(dsn),
			work:   storageworkdiskv.New(filepath.Join(dsn, "definitions")),
		}, nil
	case "redis":
		client := newRedis(dsn)
		return &storageConfig{
			engine: storageengredis.New(client, ""),
			work:   storageworkredis.New(client, ""),
		}, nil
	case "mysql":
		eng, err := storageengmysql.New(storageengmysql.WithDSN(dsn))
		if err != nil {
			return nil, err
		}
		// work definitions are seeded at startup
		return &storageConfig{
			engine: eng,
			work:   storageworkinmem.New(),
		}, nil
	}
	return nil, fmt.Errorf("unknown storage: %s", name)
}
