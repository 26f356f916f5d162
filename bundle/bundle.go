// Package bundle reads and writes host class bundles. A bundle is the
// unit the host ships compiled classes in: a CBOR envelope, canonically
// encoded and zstd-compressed, naming the host release it belongs to.
package bundle

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/tliron/commonlog"

	"github.com/remora-mod/remora/bytecode"
	"github.com/remora-mod/remora/classfile"
)

var log = commonlog.GetLogger("remora.bundle")

// ContainerVersion is the envelope format this package produces and the
// only one it accepts. Class files carry their own format version.
const ContainerVersion = 1

// ErrContainer reports an envelope this package cannot read.
var ErrContainer = errors.New("bundle: unsupported container")

// cborEncMode holds CBOR encoding options with canonical mode for
// deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bundle: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Bundle is one host release's worth of compiled classes.
type Bundle struct {
	Format      byte    `cbor:"1,keyasint"`
	HostVersion string  `cbor:"2,keyasint"`
	Protocol    int32   `cbor:"3,keyasint"`
	Classes     []Entry `cbor:"4,keyasint,omitempty"`
}

// Entry is a single named class file inside a bundle.
type Entry struct {
	Name string `cbor:"1,keyasint"`
	Data []byte `cbor:"2,keyasint"`
}

// New returns an empty bundle stamped with the current container format.
func New(hostVersion string, protocol int32) *Bundle {
	return &Bundle{
		Format:      ContainerVersion,
		HostVersion: hostVersion,
		Protocol:    protocol,
	}
}

// Add appends a class to the bundle.
func (b *Bundle) Add(name string, data []byte) {
	b.Classes = append(b.Classes, Entry{Name: name, Data: data})
}

// Lookup returns the class data stored under name.
func (b *Bundle) Lookup(name string) ([]byte, bool) {
	for _, e := range b.Classes {
		if e.Name == name {
			return e.Data, true
		}
	}
	return nil, false
}

// Hierarchy parses every class in the bundle and indexes its superclass
// edge. Entries that fail to parse are logged and skipped; the verifier
// treats unindexed classes conservatively, so a partial index is still
// sound.
func (b *Bundle) Hierarchy(root string) *bytecode.HierarchyIndex {
	ix := bytecode.NewHierarchyIndex(root)
	for _, e := range b.Classes {
		cf, err := classfile.Parse(e.Data)
		if err != nil {
			log.Warningf("skipping unparseable class %s: %v", e.Name, err)
			continue
		}
		ix.AddClassFile(cf)
	}
	return ix
}

// Encode writes the bundle to w as zstd-compressed canonical CBOR.
func Encode(w io.Writer, b *Bundle) error {
	data, err := cborEncMode.Marshal(b)
	if err != nil {
		return fmt.Errorf("bundle: marshal: %w", err)
	}
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("bundle: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return fmt.Errorf("bundle: write: %w", err)
	}
	return zw.Close()
}

// Decode reads a bundle from w's counterpart stream.
func Decode(r io.Reader) (*Bundle, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("bundle: read: %w", err)
	}
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bundle: unmarshal: %w", err)
	}
	if b.Format != ContainerVersion {
		return nil, fmt.Errorf("%w: format %d", ErrContainer, b.Format)
	}
	return &b, nil
}

// ReadFile loads a bundle from disk.
func ReadFile(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile stores a bundle to disk.
func WriteFile(path string, b *Bundle) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("bundle: %w", err)
	}
	if err := Encode(f, b); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("bundle: %w", err)
	}
	return nil
}
