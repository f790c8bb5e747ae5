// Package storage persists harvest results as JSON files. Each target
// gets its own directory holding the full run history plus a
// latest.json pointer file.
package storage
