// package repositories provides the persistence layer for the listening
// insights schema.
//
// [LibraryRepository] owns the write path (insert-or-ignore upserts in
// foreign-key dependency order) and the read-only query views.
// [RunRepository] records one audit row per ingestion run.
package repositories

// nullIfEmpty maps empty strings to NULL for optional text columns.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
