package dnsbench

import (
	"errors"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/dns/dnsmessage"
)

// labelLen is the length of the first label of the query name, like 192-000-002-001.
const labelLen = 15

// Response holds the fields of a received datagram that are needed to correlate it with the pending query.
type Response struct {
	// Key is the correlation key, the sequence number of the query the response answers.
	Key       uint32
	Rcode     int
	Truncated bool
}

// PacketCodec builds AAAA queries for the synthetic names of the subnet addresses and parses responses just enough
// to find the query they belong to.
//
// The correlation key of a query is its sequence number. The query name encodes the target address, which
// the AddressCursor maps back to the full sequence number, the transaction ID carries the low 16 bits of it.
// Both have to agree for the response to be matchable.
type PacketCodec struct {
	cursor  AddressCursor
	suffix  string
	recurse bool
}

// NewPacketCodec creates codec for queries under the provided domain.
func NewPacketCodec(cursor AddressCursor, domain string, recurse bool) *PacketCodec {
	return &PacketCodec{cursor: cursor, suffix: strings.ToLower(dns.Fqdn(domain)), recurse: recurse}
}

// QueryName returns the name which is queried for the target address, 192.0.2.1 is queried as
// 192-000-002-001.<domain>.
func (c *PacketCodec) QueryName(addr netip.Addr) string {
	b := addr.As4()
	name := make([]byte, 0, labelLen+1+len(c.suffix))
	for i, octet := range b {
		if i > 0 {
			name = append(name, '-')
		}
		name = append(name, '0'+octet/100, '0'+octet/10%10, '0'+octet%10)
	}
	name = append(name, '.')
	name = append(name, c.suffix...)
	return string(name)
}

// Build packs the query for the sequence number into buf, buf is reused if it is large enough.
func (c *PacketCodec) Build(buf []byte, seq uint32) ([]byte, error) {
	// instead of using SetQuestion, do this manually for lower overhead
	m := dns.Msg{}
	m.Id = uint16(seq)
	m.RecursionDesired = c.recurse
	m.Question = []dns.Question{{Name: c.QueryName(c.cursor.Address(seq)), Qtype: dns.TypeAAAA, Qclass: dns.ClassINET}}
	return m.PackBuffer(buf)
}

// Parse extracts the correlation key from the datagram. False is returned for anything that is not a well-formed
// response to one of the queries built by this codec, answer records are not decoded.
func (c *PacketCodec) Parse(b []byte) (Response, bool) {
	var p dnsmessage.Parser
	h, err := p.Start(b)
	if err != nil || !h.Response || h.OpCode != 0 {
		return Response{}, false
	}
	q, err := p.Question()
	if err != nil || q.Type != dnsmessage.TypeAAAA || q.Class != dnsmessage.ClassINET {
		return Response{}, false
	}
	if _, err := p.Question(); !errors.Is(err, dnsmessage.ErrSectionDone) {
		return Response{}, false
	}
	addr, ok := c.parseName(q.Name.String())
	if !ok {
		return Response{}, false
	}
	seq, ok := c.cursor.Index(addr)
	if !ok || uint16(seq) != h.ID {
		return Response{}, false
	}
	return Response{Key: seq, Rcode: int(h.RCode), Truncated: h.Truncated}, true
}

func (c *PacketCodec) parseName(name string) (netip.Addr, bool) {
	if len(name) != labelLen+1+len(c.suffix) || name[labelLen] != '.' || !strings.EqualFold(name[labelLen+1:], c.suffix) {
		return netip.Addr{}, false
	}
	var b [4]byte
	for i := range b {
		part := name[i*4 : i*4+3]
		if i < 3 && name[i*4+3] != '-' {
			return netip.Addr{}, false
		}
		v := 0
		for _, d := range []byte(part) {
			if d < '0' || d > '9' {
				return netip.Addr{}, false
			}
			v = v*10 + int(d-'0')
		}
		if v > 255 {
			return netip.Addr{}, false
		}
		b[i] = byte(v)
	}
	return netip.AddrFrom4(b), true
}
