package handledb

import "testing"

func TestOpenGetClose(t *testing.T) {
	db := New()
	fh := db.Open(42, 7, true, false)

	rec, ok := db.Get(42, fh)
	if !ok || !rec.Read || rec.Write || rec.Inode != 7 {
		t.Fatalf("unexpected record: %+v ok=%v", rec, ok)
	}

	if _, ok := db.Get(43, fh); ok {
		t.Fatalf("handle leaked across pids")
	}

	if !db.Close(42, fh) {
		t.Fatalf("close reported no record removed")
	}
	if _, ok := db.Get(42, fh); ok {
		t.Fatalf("record should be gone after close")
	}
}

func TestDoubleCloseIsDetectable(t *testing.T) {
	db := New()
	fh := db.Open(1, 1, true, true)
	if !db.Close(1, fh) {
		t.Fatalf("first close should succeed")
	}
	if db.Close(1, fh) {
		t.Fatalf("second close should report nothing to remove")
	}
}

func TestHandleIDsAreMonotonic(t *testing.T) {
	db := New()
	a := db.Open(1, 1, true, false)
	db.Close(1, a)
	b := db.Open(1, 1, true, false)
	if b == a {
		t.Fatalf("handle id reused after close: %d", b)
	}
}
