// Package file provides a YAML file implementation of
// driven.DataAccessObject.
//
// Every record is stored as <id>.yaml in the collection directory. Files
// are replaced atomically through a temporary file and rename. The last
// assigned ID is kept in a hidden .sequence file so IDs of deleted records
// are never reused.
//
// Watcher reports changes made to a collection directory by other
// processes, so repositories can reload.
package file
