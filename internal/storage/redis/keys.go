package redis

import "fmt"

// Key prefix for all treason data
const keyPrefix = "treason"

// Key generation functions, all scoped to one logical database

// createdKey marks that the database has been created
func createdKey(db string) string {
	return fmt.Sprintf("%s:%s:created", keyPrefix, db)
}

// docKey returns the Redis key holding a document's JSON
func docKey(db, id string) string {
	return fmt.Sprintf("%s:%s:doc:%s", keyPrefix, db, id)
}

// docsIndexKey returns the Redis key for the SET of all document ids
func docsIndexKey(db string) string {
	return fmt.Sprintf("%s:%s:idx:docs", keyPrefix, db)
}

// viewKey returns the Redis key for a view's HASH of document id -> emitted key
func viewKey(db, view string) string {
	return fmt.Sprintf("%s:%s:view:%s", keyPrefix, db, view)
}

// viewRowsKey returns the Redis key for the SET of document ids emitted under key
func viewRowsKey(db, view, key string) string {
	return fmt.Sprintf("%s:%s:view:%s:key:%s", keyPrefix, db, view, key)
}
