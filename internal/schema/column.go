package schema

import (
	GORMSchema "gorm.io/gorm/schema"
)

// Column is a persisted field of a model. Association fields never become
// columns, so every Column has a database name.
type Column struct {
	*GORMSchema.Field
}

// ColumnName is the name the drift check looks up in the live table.
func (c *Column) ColumnName() string {
	return c.DBName
}
