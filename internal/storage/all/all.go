// Package all registers every storage backend with the factory.
// Import it for side effects from binaries that pick a backend at runtime.
package all

import (
	_ "sniff/internal/storage/mssql"
	_ "sniff/internal/storage/postgres"
	_ "sniff/internal/storage/sqlite"
)
