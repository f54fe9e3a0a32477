// Package testdb provides database fixtures for tests.
//
// OpenSQLite returns a migrated in-memory SQLite database and needs no
// external services. GetTestDBWithT connects to the PostgreSQL database named
// by DATABASE_URL (or MODELAPI_TEST_DB_URL), applies the migrations and skips
// the test when neither variable is set.
//
// WithTx runs a test body inside a transaction that is always rolled back,
// so tests sharing a database do not see each other's rows:
//
//	func TestMyFeature(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        repo := sqlrepo.New(tx, postgres.Dialect{}, &domain.User{}, nil)
//	        // ...
//	    })
//	}
package testdb
