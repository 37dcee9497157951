package dnsbench_test

import (
	"net/netip"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// Server represents simple DNS server.
type Server struct {
	Addr  netip.AddrPort
	inner *dns.Server
}

// Close shuts down running DNS server instance.
func (s *Server) Close() {
	s.inner.Shutdown()
}

// NewServer creates and starts new DNS server instance listening on UDP.
func NewServer(f dns.HandlerFunc) *Server {
	ch := make(chan bool)
	s := &dns.Server{Net: "udp", Addr: "127.0.0.1:0", NotifyStartedFunc: func() { close(ch) }, Handler: f}

	go func() {
		if err := s.ListenAndServe(); err != nil {
			panic(err)
		}
	}()

	<-ch
	return &Server{inner: s, Addr: netip.MustParseAddrPort(s.PacketConn.LocalAddr().String())}
}

// synthesize answers the query like DNS64 server does, the IPv4 address encoded in the query name
// is embedded into the well-known prefix 64:ff9b::/96.
func synthesize(r *dns.Msg) *dns.Msg {
	ret := new(dns.Msg)
	ret.SetReply(r)
	v4, ok := queriedAddress(r.Question[0].Name)
	if !ok {
		ret.Rcode = dns.RcodeNameError
		return ret
	}
	b := v4.As4()
	v6 := netip.AddrFrom16([16]byte{0, 0x64, 0xff, 0x9b, 0, 0, 0, 0, 0, 0, 0, 0, b[0], b[1], b[2], b[3]})
	ret.Answer = append(ret.Answer, &dns.AAAA{
		Hdr:  dns.RR_Header{Name: r.Question[0].Name, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: 60},
		AAAA: v6.AsSlice(),
	})
	return ret
}

// queriedAddress returns IPv4 address encoded in the first label of the query name.
func queriedAddress(name string) (netip.Addr, bool) {
	label, _, _ := strings.Cut(name, ".")
	parts := strings.Split(label, "-")
	if len(parts) != 4 {
		return netip.Addr{}, false
	}
	var b [4]byte
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return netip.Addr{}, false
		}
		b[i] = byte(v)
	}
	return netip.AddrFrom4(b), true
}
