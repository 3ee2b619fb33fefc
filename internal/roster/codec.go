package roster

// Codec converts a flat sequence of roster rows to and from a row-oriented
// spreadsheet file with a single sheet.
type Codec interface {
	// Decode returns the first sheet's rows in file order, keyed by column
	// header. Fails with ErrIO when the path is unreadable and ErrFormat
	// when the workbook has no sheets.
	Decode(path string) ([]*Row, error)

	// Encode overwrites path wholesale with a single sheet named "Planning"
	// built from rows in the given order. Columns are the union of keys
	// across all rows, ordered by first appearance. There is no
	// partial-write protection; callers treat the mirrored file as
	// best-effort.
	Encode(rows []*Row, path string) error
}

// Files abstracts the handful of filesystem operations the service needs
// around mirrored spreadsheet files.
type Files interface {
	// Copy duplicates src to dst, overwriting dst.
	Copy(src, dst string) error

	// Remove deletes the file at path.
	Remove(path string) error

	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
}
