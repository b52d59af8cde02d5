// Package trackerdb reads and writes the tagged key-value trackable
// database file: a flat sequence of named records
// (scalars, strings, matrices, point lists) that round-trip a set of
// trackables without depending on any particular in-memory
// representation of them.
package trackerdb
