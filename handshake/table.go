package handshake

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("remora.handshake")

// Table tracks per-connection verification between the handshake message
// and the join attempt. A key is in one of three states: absent
// (unverified), present (verified, holding the client record), and
// resolved. Resolution removes the key, so every record is consumed by
// exactly one join attempt and the table cannot grow without bound.
type Table struct {
	protocol int32    // protocol number this server runs
	require  bool     // reject clients that never presented the marker
	records  sync.Map // key string -> Record
}

// NewTable builds a table for the running protocol number. require
// enables the policy that clients without a marker are turned away.
func NewTable(protocol int32, require bool) *Table {
	return &Table{protocol: protocol, require: require}
}

// Key normalizes a remote socket address into a table key. Both phases
// must derive their key from the same connection's remote address.
func Key(remoteAddr string) string {
	return strings.ToLower(strings.TrimSpace(remoteAddr))
}

// Verify records phase one for a connection, overwriting any earlier
// record for the same key.
func (t *Table) Verify(key string, rec Record) {
	t.records.Store(key, rec)
	log.Debugf("verified %s: client %s protocol %d", key, rec.Version, rec.Protocol)
}

// Resolve runs phase two and consumes the record. The empty string
// accepts; anything else is the disconnect message for the client.
// Resolving the same key again behaves as if the connection was never
// verified.
func (t *Table) Resolve(key string) (reject string) {
	v, ok := t.records.LoadAndDelete(key)
	if !ok {
		if t.require {
			log.Infof("rejecting %s: no compatibility marker", key)
			return "incompatible client"
		}
		return ""
	}
	rec := v.(Record)
	if rec.Protocol != t.protocol {
		log.Infof("rejecting %s: client protocol %d, server runs %d", key, rec.Protocol, t.protocol)
		return fmt.Sprintf("version mismatch: server=%d, client=%d", t.protocol, rec.Protocol)
	}
	return ""
}

// Pending reports how many verified connections await resolution.
func (t *Table) Pending() int {
	n := 0
	t.records.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
