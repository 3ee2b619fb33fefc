package roster

import (
	"fmt"
	"strconv"
	"strings"
)

// Column names of the persisted spreadsheet row schema. These are the exact
// headers the solver writes and the document generator reads; they are
// locale-specific and must not be translated.
const (
	ColDate        = "Date"
	ColDay         = "Jour"
	ColSlot        = "Séance"
	ColTimeStart   = "Heure_Début"
	ColTimeEnd     = "Heure_Fin"
	ColExamCount   = "Nombre_Examens"
	ColTeacherID   = "Enseignant_ID"
	ColLastName    = "Nom"
	ColFirstName   = "Prénom"
	ColEmail       = "Email"
	ColGrade       = "Grade"
	ColResponsible = "Responsable"
)

// columnAliases maps a canonical column to the accepted spellings of
// uploaded rows, in priority order. Uploads produced outside the solver
// sometimes carry unaccented lowercase headers for the same concept.
var columnAliases = map[string][]string{
	ColFirstName: {ColFirstName, "prenom"},
	ColLastName:  {ColLastName, "nom"},
	ColEmail:     {ColEmail, "email"},
}

// Row is an ordered mapping of column header to cell value. Keys keep
// first-seen order so an encoded sheet reproduces the column order of its
// source. Values are string, int, or float64 depending on what the cell
// held; callers must not assume a column is always a string.
type Row struct {
	keys []string
	vals map[string]any
}

// NewRow returns an empty row.
func NewRow() *Row {
	return &Row{vals: make(map[string]any)}
}

// Set stores a value under key, appending the key if it is new.
func (r *Row) Set(key string, v any) {
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = v
}

// Get returns the raw value for key.
func (r *Row) Get(key string) (any, bool) {
	v, ok := r.vals[key]
	return v, ok
}

// Keys returns the column names in first-seen order.
func (r *Row) Keys() []string {
	return r.keys
}

// Len returns the number of columns set on the row.
func (r *Row) Len() int {
	return len(r.keys)
}

// Clone returns an independent copy of the row.
func (r *Row) Clone() *Row {
	c := &Row{
		keys: append([]string(nil), r.keys...),
		vals: make(map[string]any, len(r.vals)),
	}
	for k, v := range r.vals {
		c.vals[k] = v
	}
	return c
}

// String returns the value for key coerced to a string. Numeric cells are
// formatted without a decimal point when integral.
func (r *Row) String(key string) string {
	v, ok := r.vals[key]
	if !ok || v == nil {
		return ""
	}
	return valueString(v)
}

// StringAlias returns the value for the first populated spelling of key
// from the alias table. Columns without aliases fall back to String.
func (r *Row) StringAlias(key string) string {
	aliases, ok := columnAliases[key]
	if !ok {
		return r.String(key)
	}
	for _, a := range aliases {
		if v, ok := r.vals[a]; ok && v != nil {
			if s := valueString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// Int returns the value for key coerced to an int, or 0 when the value is
// missing or not numeric.
func (r *Row) Int(key string) int {
	v, ok := r.vals[key]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// valueString formats a cell value the way the spreadsheet displays it.
func valueString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", s)
	}
}

// IsResponsible reports whether a Responsable cell marks the teacher as
// responsible for the exam. Producers disagree on casing ("OUI", "Oui"),
// so the comparison is case-insensitive. The stored literal is preserved.
func IsResponsible(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "oui")
}
