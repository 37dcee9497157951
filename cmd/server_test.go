package cmd

import (
	"net"

	"github.com/miekg/dns"
)

// Server represents simple DNS server.
type Server struct {
	Addr  string
	Port  string
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
	host, port, err := net.SplitHostPort(s.PacketConn.LocalAddr().String())
	if err != nil {
		panic(err)
	}
	return &Server{inner: s, Addr: host, Port: port}
}

// AAAA returns RR of AAAA type from the string representation.
func AAAA(rr string) *dns.AAAA {
	r, _ := dns.NewRR(rr)
	return r.(*dns.AAAA)
}
