package xlsx

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"roster-go/internal/roster"
)

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec()
	path := filepath.Join(t.TempDir(), "planning.xlsx")

	r1 := roster.NewRow()
	r1.Set(roster.ColDate, "2025-06-11")
	r1.Set(roster.ColDay, 1)
	r1.Set(roster.ColSlot, "S1")
	r1.Set(roster.ColTimeStart, "08:30")
	r1.Set(roster.ColTeacherID, 42)
	r2 := roster.NewRow()
	r2.Set(roster.ColDate, "2025-06-12")
	r2.Set(roster.ColDay, 2)
	r2.Set(roster.ColSlot, "S3")
	r2.Set(roster.ColTimeStart, "14:00")
	r2.Set(roster.ColTeacherID, 7)

	if err := codec.Encode([]*roster.Row{r1, r2}, path); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	rows, err := codec.Decode(path)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	// Column order survives the round trip.
	wantKeys := []string{roster.ColDate, roster.ColDay, roster.ColSlot, roster.ColTimeStart, roster.ColTeacherID}
	if got := rows[0].Keys(); !reflect.DeepEqual(got, wantKeys) {
		t.Errorf("Keys() = %v, want %v", got, wantKeys)
	}

	// Cell typing: integers come back as ints, time strings stay strings.
	if got := rows[0].Int(roster.ColDay); got != 1 {
		t.Errorf("Jour = %d, want 1", got)
	}
	if v, _ := rows[0].Get(roster.ColTimeStart); v != "08:30" {
		t.Errorf("Heure_Début = %v (%T), want the string 08:30", v, v)
	}
	if got := rows[1].Int(roster.ColTeacherID); got != 7 {
		t.Errorf("Enseignant_ID = %d, want 7", got)
	}
}

func TestCodec_EncodeOverwrites(t *testing.T) {
	codec := NewCodec()
	path := filepath.Join(t.TempDir(), "planning.xlsx")

	first := roster.NewRow()
	first.Set(roster.ColTeacherID, "T1")
	second := roster.NewRow()
	second.Set(roster.ColTeacherID, "T2")

	if err := codec.Encode([]*roster.Row{first, second}, path); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	replacement := roster.NewRow()
	replacement.Set(roster.ColTeacherID, "T3")
	if err := codec.Encode([]*roster.Row{replacement}, path); err != nil {
		t.Fatalf("Encode() second error = %v", err)
	}

	rows, err := codec.Decode(path)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows after overwrite, want 1", len(rows))
	}
	if got := rows[0].String(roster.ColTeacherID); got != "T3" {
		t.Errorf("teacher id = %q, want T3", got)
	}
}

func TestCodec_ColumnUnion(t *testing.T) {
	codec := NewCodec()
	path := filepath.Join(t.TempDir(), "planning.xlsx")

	r1 := roster.NewRow()
	r1.Set("A", "1")
	r1.Set("B", "2")
	r2 := roster.NewRow()
	r2.Set("B", "3")
	r2.Set("C", "4")

	if err := codec.Encode([]*roster.Row{r1, r2}, path); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	rows, err := codec.Decode(path)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	// Header is the union in first-seen order; a row keeps only the
	// columns it actually had, with no empty-string padding.
	if got := rows[1].String("C"); got != "4" {
		t.Errorf("C = %q, want 4", got)
	}
	if _, ok := rows[1].Get("A"); ok {
		t.Error("r2 gained a value for column A")
	}
	if got := rows[0].Keys(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("r1 keys = %v, want [A B]", got)
	}
	if got := rows[1].Keys(); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Errorf("r2 keys = %v, want [B C]", got)
	}
}

func TestCodec_EmptyCellsProduceNoKey(t *testing.T) {
	codec := NewCodec()
	path := filepath.Join(t.TempDir(), "planning.xlsx")

	r1 := roster.NewRow()
	r1.Set("A", "1")
	r1.Set("B", "")
	r1.Set("C", "3")

	if err := codec.Encode([]*roster.Row{r1}, path); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	rows, err := codec.Decode(path)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if _, ok := rows[0].Get("B"); ok {
		t.Error("empty cell decoded into a key")
	}
	if got := rows[0].Keys(); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Errorf("keys = %v, want [A C]", got)
	}
}

func TestCodec_DecodeErrors(t *testing.T) {
	codec := NewCodec()

	t.Run("missing file", func(t *testing.T) {
		_, err := codec.Decode(filepath.Join(t.TempDir(), "absent.xlsx"))
		if !errors.Is(err, roster.ErrIO) {
			t.Errorf("Decode(absent) error = %v, want ErrIO", err)
		}
	})

	t.Run("not a workbook", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "junk.xlsx")
		if err := os.WriteFile(path, []byte("not a zip archive"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := codec.Decode(path)
		if !errors.Is(err, roster.ErrIO) {
			t.Errorf("Decode(junk) error = %v, want ErrIO", err)
		}
	})
}
