package bundle

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/remora-mod/remora/classfile"
)

func classBytes(t *testing.T, name, super string) []byte {
	t.Helper()
	data, err := classfile.Write(classfile.New(name, super))
	if err != nil {
		t.Fatalf("write class %s: %v", name, err)
	}
	return data
}

func TestBundleRoundTrip(t *testing.T) {
	b := New("1.7.2", 47)
	b.Add("gw.en", classBytes(t, "gw.en", "gw.base"))
	b.Add("gw.lv", classBytes(t, "gw.lv", "gw.en"))

	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.HostVersion != "1.7.2" || got.Protocol != 47 {
		t.Errorf("release = %s/%d, want 1.7.2/47", got.HostVersion, got.Protocol)
	}
	if !reflect.DeepEqual(got.Classes, b.Classes) {
		t.Errorf("classes did not round-trip")
	}
}

func TestBundleFileRoundTrip(t *testing.T) {
	b := New("1.7.2", 47)
	b.Add("gw.en", classBytes(t, "gw.en", "gw.base"))

	path := filepath.Join(t.TempDir(), "host.bundle")
	if err := WriteFile(path, b); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	data, ok := got.Lookup("gw.en")
	if !ok {
		t.Fatal("Lookup(gw.en) missed")
	}
	if !bytes.Equal(data, b.Classes[0].Data) {
		t.Error("class data did not round-trip")
	}
	if _, ok := got.Lookup("gw.zz"); ok {
		t.Error("Lookup(gw.zz) found a class that was never added")
	}
}

func TestDecodeRejectsForeignFormat(t *testing.T) {
	b := New("1.7.2", 47)
	b.Format = 9

	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(&buf); !errors.Is(err, ErrContainer) {
		t.Errorf("Decode error = %v, want ErrContainer", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("not a bundle"))); err == nil {
		t.Error("Decode accepted garbage")
	}
}

func TestHierarchyFromBundle(t *testing.T) {
	b := New("1.7.2", 47)
	b.Add("gw.en", classBytes(t, "gw.en", "gw.base"))
	b.Add("gw.lv", classBytes(t, "gw.lv", "gw.en"))
	b.Add("gw.pl", classBytes(t, "gw.pl", "gw.lv"))
	b.Add("gw.bad", []byte("junk")) // must be skipped, not fatal

	ix := b.Hierarchy("gw.base")
	if got := ix.CommonAncestor("gw.pl", "gw.en"); got != "gw.en" {
		t.Errorf("CommonAncestor(pl, en) = %s, want gw.en", got)
	}
	if got := ix.CommonAncestor("gw.pl", "gw.zz"); got != "gw.base" {
		t.Errorf("CommonAncestor(pl, zz) = %s, want the root", got)
	}
	if ix.Known("gw.bad") {
		t.Error("unparseable entry was indexed")
	}
}
