package database

import (
	"database/sql"
	"fmt"
)

// evolutionColumns are assignment columns that stores created by older
// schema versions may be missing. Each is added with a null default so
// existing data is untouched.
var evolutionColumns = []struct {
	name string
	typ  string
}{
	{"teacher_first_name", "TEXT"},
	{"teacher_last_name", "TEXT"},
	{"teacher_email", "TEXT"},
	{"exam_count", "INTEGER"},
}

// evolveSchema inspects the live assignment table and adds any expected
// column that is missing. Idempotent: safe against a store with none of
// the columns and against one that already has them all.
func evolveSchema(db *sql.DB) error {
	existing, err := tableColumns(db, "planning_assignments")
	if err != nil {
		return err
	}

	for _, col := range evolutionColumns {
		if _, ok := existing[col.name]; ok {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE planning_assignments ADD COLUMN %s %s", col.name, col.typ)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("adding column %s: %w", col.name, err)
		}
	}

	return nil
}

// tableColumns returns the set of column names of a table.
func tableColumns(db *sql.DB, table string) (map[string]struct{}, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("inspecting table %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]struct{})
	for rows.Next() {
		var (
			cid      int
			name     string
			typ      string
			notNull  int
			dflt     sql.NullString
			primaryK int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &primaryK); err != nil {
			return nil, fmt.Errorf("scanning table info: %w", err)
		}
		columns[name] = struct{}{}
	}
	return columns, rows.Err()
}

// createIndexes creates the secondary lookup structures. These keep the
// session, teacher, date, and email read paths from degrading linearly as
// history grows. Runs after evolveSchema because idx_teacher_email needs
// the evolved column.
func createIndexes(db *sql.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_session_id ON planning_assignments(session_id)",
		"CREATE INDEX IF NOT EXISTS idx_teacher ON planning_assignments(teacher_id)",
		"CREATE INDEX IF NOT EXISTS idx_date ON planning_assignments(date)",
		"CREATE INDEX IF NOT EXISTS idx_teacher_email ON planning_assignments(teacher_email)",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}
