// Package repository defines the data access interface for Motorpool.
//
// The Repository interface covers CRUD operations on cars, transactional
// bulk import/export of whole fleets, and a Ping used by the health
// endpoint. The actual implementation is in the sqlite subpackage, which
// uses the pure-Go modernc.org/sqlite driver with WAL mode and migrates
// its schema on startup.
package repository
