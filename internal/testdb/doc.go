// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// Each test runs inside its own transaction which is rolled back when the
// test returns, so tests can share one schema and run in parallel:
//
//	func TestUserStore(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        users := postgres.NewPostgresUserStore(tx, nil)
//	        // ...
//	    })
//	}
//
// Tests are skipped when no database URL is configured.
package testdb
