package core

import (
	"testing"

	"leadcrm/testutil"
)

func TestCoreDoesNotImportStorageDrivers(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.StorageDriverForbidden, "storage drivers live behind internal/kv")
}
