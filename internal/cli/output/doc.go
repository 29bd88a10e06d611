// Package output formats RESP replies for redwire-cli.
//
// Two formatters are provided: RawFormatter renders replies the way
// redis-cli does (quoted bulks, numbered aggregates, "(nil)"), and
// JSONFormatter converts replies into plain JSON values.
package output
