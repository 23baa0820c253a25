package mysql

import (
	"os"
	"testing"

	"github.com/TincheHK/prefw/engine/storage"
	"github.com/TincheHK/prefw/engine/storage/test"

	_ "github.com/go-sql-driver/mysql"
)

func TestMySQLStorage(t *testing.T) {
	testDSN := os.Getenv("PREFW_MYSQL_STORAGE_TEST_DSN")
	if testDSN == "" {
		t.Skip("PREFW_MYSQL_STORAGE_TEST_DSN not set")
	}

	s, err := New(WithDSN(testDSN))
	if err != nil {
		t.Fatal(err)
	}

	// the conformance test generates random identifiers so an
	// existing database can be reused between runs

	test.TestEngineStorage(t, func() storage.Storage { return s })
}
