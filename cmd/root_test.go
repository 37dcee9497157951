package cmd

import (
	"bytes"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_diagnostics(t *testing.T) {
	// server port subnet requests burst threads ports delay timeout
	valid := []string{"127.0.0.1", "53", "192.0.2.0/24", "16", "2", "2", "2", "1000000", "1"}
	with := func(i int, v string) []string {
		args := append([]string(nil), valid...)
		args[i] = v
		return args
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad server", with(0, "dns.example.org"), "Bad server address."},
		{"port out of range", with(1, "65536"), "Bad port."},
		{"zero port", with(1, "0"), "Bad port."},
		{"subnet without netmask", with(2, "192.0.2.0"), "Bad subnet."},
		{"IPv6 subnet", with(2, "2001:db8::/96"), "Bad subnet."},
		{"netmask too long", with(2, "192.0.2.0/33"), "Bad netmask."},
		{"requests out of range", with(3, "4294967296"), "Bad number of requests, must be between 0 and 2^32."},
		{"zero requests", with(3, "0"), "Bad number of requests, must be between 0 and 2^32."},
		{"subnet too small", with(3, "512"), "The number of requests is higher than the available IPs in the subnet."},
		{"zero burst", with(4, "0"), "Bad burst size, must be between 0 and 2^32."},
		{"threads not a number", with(5, "two"), "Bad number of threads, must be between 0 and 2^32."},
		{"not divisible", with(4, "3"), "Number of requests must be divisible by (number of threads * burst size)."},
		{"ports out of range", with(6, "65536"), "Bad number of ports per thread, must be between 0 and 2^16."},
		{"zero delay", with(7, "0"), "Bad delay between bursts."},
		{"zero timeout", with(8, "0"), "Bad timeout."},
		{"timeout not a number", with(8, "1s"), "Bad timeout."},
		{
			"source ports do not fit",
			append(append([]string(nil), valid...), "--source-port-base=65534"),
			"Bad source port base, the sockets of all threads must fit below port 65536.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer

			code := run(append(tt.args, "--no-color"), &stdout, &stderr)

			assert.Equal(t, 1, code)
			assert.Equal(t, tt.want+"\n", stderr.String())
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRun_missingArguments(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"127.0.0.1", "53"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "required argument")
}

func TestRun(t *testing.T) {
	s := NewServer(func(w dns.ResponseWriter, r *dns.Msg) {
		ret := new(dns.Msg)
		ret.SetReply(r)
		ret.Answer = append(ret.Answer, AAAA(r.Question[0].Name+" 60 IN AAAA 64:ff9b::c000:201"))
		w.WriteMsg(ret)
	})
	defer s.Close()

	csv := filepath.Join(t.TempDir(), "dns64perf.csv")
	var stdout, stderr bytes.Buffer

	code := run([]string{
		s.Addr, s.Port, "192.0.2.0/28", "16", "2", "2", "2", "5000000", "0.5",
		"--start-delay=10ms", "--no-pin", "--no-color", "--csv", csv,
	}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Empty(t, stderr.String())

	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, "Benchmarking 127.0.0.1:"+s.Port+" via udp with 2 threads and 2 ports per thread\n"+
		"Sending 16 queries for 192.0.2.0/28 in bursts of 2 every 5ms\n"), out)
	assert.Contains(t, out, "Total queries:\t\t16\n")
	assert.Contains(t, out, "Answered queries:\t16\n")
	assert.Contains(t, out, "Timed out queries:\t0\n")

	content, err := os.ReadFile(csv)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	assert.Len(t, lines, 17)
	assert.Equal(t, "sequence,address,outcome,rtt_ns", lines[0])
}

func TestRun_json(t *testing.T) {
	s := NewServer(func(w dns.ResponseWriter, r *dns.Msg) {
		ret := new(dns.Msg)
		ret.SetReply(r)
		if r.Question[0].Name == "000-000-000-003.dns64perf.test." {
			ret.Rcode = dns.RcodeServerFailure
		}
		w.WriteMsg(ret)
	})
	defer s.Close()

	var stdout, stderr bytes.Buffer

	code := run([]string{
		s.Addr, s.Port, "0.0.0.0/29", "8", "4", "1", "1", "1000000", "0.5",
		"--start-delay=0s", "--no-pin", "--no-color", "--csv=", "--json",
	}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())

	var res struct {
		TotalQueries   int64            `json:"totalQueries"`
		TotalAnswered  int64            `json:"totalAnswered"`
		ResponseRcodes map[string]int64 `json:"responseRcodes"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res), stdout.String())
	assert.Equal(t, int64(8), res.TotalQueries)
	assert.Equal(t, int64(8), res.TotalAnswered)
	assert.Equal(t, map[string]int64{"NOERROR": 7, "SERVFAIL": 1}, res.ResponseRcodes)
}

func TestRun_progress(t *testing.T) {
	s := NewServer(func(w dns.ResponseWriter, r *dns.Msg) {
		ret := new(dns.Msg)
		ret.SetReply(r)
		w.WriteMsg(ret)
	})
	defer s.Close()

	var stdout, stderr bytes.Buffer

	code := run([]string{
		s.Addr, s.Port, "192.0.2.0/28", "16", "4", "1", "1", "50000000", "0.1",
		"--start-delay=0s", "--no-pin", "--no-color", "--csv=", "--progress",
	}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Answered queries:\t16\n")
}

func TestRun_bindError(t *testing.T) {
	taken, err := net.ListenUDP("udp4", &net.UDPAddr{})
	require.NoError(t, err)
	defer taken.Close()

	var stdout, stderr bytes.Buffer

	code := run([]string{
		"127.0.0.1", "53", "192.0.2.0/28", "4", "2", "2", "1", "1000000", "0.1",
		"--start-delay=0s", "--no-pin", "--no-color", "--csv=",
		"--source-port-base=" + strconv.Itoa(taken.LocalAddr().(*net.UDPAddr).Port),
	}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.True(t, strings.HasPrefix(stderr.String(), "There was an error while running benchmark: "), stderr.String())
}
