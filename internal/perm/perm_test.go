package perm

import "testing"

func mode(m uint32) *uint32 { return &m }

func TestFOKAlwaysGranted(t *testing.T) {
	if !Check(1000, 1000, File{Mode: mode(0)}, FOK, Options{}) {
		t.Fatalf("F_OK must always be granted")
	}
}

func TestRootReadWriteAlwaysGranted(t *testing.T) {
	f := File{Mode: mode(0o000), Uid: 5000, Gid: 5000}
	if !Check(0, 0, f, ROK, Options{}) || !Check(0, 0, f, WOK, Options{}) {
		t.Fatalf("root must always get R and W")
	}
}

func TestRootExecRequiresAnyExecBit(t *testing.T) {
	noExec := File{Mode: mode(0o666)}
	withExec := File{Mode: mode(0o661)}
	if Check(0, 0, noExec, XOK, Options{}) {
		t.Fatalf("root should not get X with no exec bit set anywhere")
	}
	if !Check(0, 0, withExec, XOK, Options{}) {
		t.Fatalf("root should get X when any exec bit is set")
	}
}

func TestOwnerGroupOtherTriad(t *testing.T) {
	f := File{Mode: mode(0o640), Uid: 10, Gid: 20}
	if !Check(10, 99, f, ROK, Options{}) {
		t.Fatalf("owner should get R")
	}
	if Check(10, 99, f, XOK, Options{}) {
		t.Fatalf("owner triad rw- should not grant X")
	}
	if !Check(10, 99, f, ROK|WOK, Options{}) {
		t.Fatalf("owner should get RW")
	}
	if Check(99, 20, f, WOK, Options{}) {
		t.Fatalf("group should not get W (group triad is r--)")
	}
	if Check(99, 99, f, ROK, Options{}) {
		t.Fatalf("other should get nothing (other triad is ---)")
	}
}

func TestUidGidOverride(t *testing.T) {
	f := File{Mode: mode(0o600), Uid: 1, Gid: 1}
	u := uint32(42)
	if Check(42, 42, f, ROK, Options{}) {
		t.Fatalf("without override, uid 42 should not match file uid 1")
	}
	if !Check(42, 42, f, ROK, Options{Uid: &u}) {
		t.Fatalf("Uid override should make 42 match the owner triad")
	}
}

func TestMissingModeUsesDefaultMode(t *testing.T) {
	f := File{Uid: 10, Gid: 10}
	if !Check(10, 10, f, ROK|WOK, Options{}) {
		t.Fatalf("default mode 0755 should grant owner rw")
	}
	if Check(99, 99, f, WOK, Options{}) {
		t.Fatalf("default mode 0755 should not grant other write")
	}
}

func TestDefaultModeOverride(t *testing.T) {
	f := File{Uid: 10, Gid: 10}
	m := uint32(0o000)
	if Check(10, 10, f, ROK, Options{DefaultMode: &m}) {
		t.Fatalf("DefaultMode override should replace the 0755 fallback")
	}
}
