package database

import (
	"database/sql"
	"strconv"
	"strings"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// SupportsLastInsertId returns true if the driver supports LastInsertId()
	SupportsLastInsertId() bool

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// IsUniqueViolation reports whether err is the driver's unique-constraint error
	IsUniqueViolation(err error) bool

	// ResetSequenceQuery returns the SQL that moves table's id sequence past
	// rows inserted with explicit ids, or "" when the database does it itself
	ResetSequenceQuery(table string) string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
// A ? inside a single-quoted literal or a double-quoted identifier is left
// alone; a doubled quote inside either is read as an escaped quote.
func rewritePlaceholdersToNumbered(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	counter := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				if i+1 < len(query) && query[i+1] == quote {
					b.WriteByte(c)
					i++
				} else {
					quote = 0
				}
			}
			b.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '?':
			counter++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(counter))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
