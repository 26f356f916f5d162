// Package handshake implements the client-compatibility gate: a private
// marker smuggled through the connection address field, and the
// per-connection record table that enforces it when the session is
// accepted.
//
// The check runs in two phases because the connection outlives the
// handshake message. Phase one parses and strips the marker when the
// address field arrives. Phase two runs at join time and consults the
// record phase one left behind, closing the window where a connection
// could otherwise skip the check entirely.
package handshake

import (
	"strconv"
	"strings"
)

// Marker separates the plain address from the compatibility suffix. The
// leading NUL cannot occur in a hostname, so plain addresses never match.
const Marker = "\x00REMORA"

// Record is what phase one learned about a client.
type Record struct {
	Version  string
	Protocol int32
}

// Embed appends the compatibility suffix to a plain address:
// <address><marker><version>NUL<protocol>. This is the client's side of
// the wire format; Extract undoes it.
func Embed(address, version string, protocol int32) string {
	return address + Marker + version + "\x00" + strconv.FormatInt(int64(protocol), 10)
}

// Extract splits a received address field into the plain address the
// host parser must see and, when a well-formed suffix was present, the
// client record. A marker with a mangled suffix still strips: the host
// never sees marker bytes, the client just stays unverified.
func Extract(field string) (address string, rec Record, ok bool) {
	i := strings.Index(field, Marker)
	if i < 0 {
		return field, Record{}, false
	}
	address = field[:i]
	suffix := field[i+len(Marker):]
	version, protoText, found := strings.Cut(suffix, "\x00")
	if !found {
		return address, Record{}, false
	}
	proto, err := strconv.ParseInt(protoText, 10, 32)
	if err != nil {
		return address, Record{}, false
	}
	return address, Record{Version: version, Protocol: int32(proto)}, true
}
