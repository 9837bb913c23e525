package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 4, 1, 10, 0, 0, 123, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor(""); err != nil || c != nil {
		t.Fatalf("blank cursor should be nil, got %+v err=%v", c, err)
	}
	if _, err := ParseCursor("!!!"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLimitsAndTrim(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit || NormalizeLimit(1000) != MaxLimit || NormalizeLimit(5) != 5 {
		t.Fatal("unexpected limit normalization")
	}
	rows, more := Trim([]int{1, 2, 3}, 2)
	if len(rows) != 2 || !more {
		t.Fatalf("expected trimmed page with more, got %v %v", rows, more)
	}
	rows, more = Trim([]int{1, 2}, 2)
	if len(rows) != 2 || more {
		t.Fatalf("expected full page without more, got %v %v", rows, more)
	}
}

func TestParseCursorRejectsZeroID(t *testing.T) {
	token := EncodeCursor(Cursor{CreatedAt: time.Now(), ID: uuid.Nil})
	if _, err := ParseCursor(token); err == nil {
		t.Fatal("expected nil id to be rejected")
	}
}
