package resolve

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer runs a DNS server on loopback that knows router.lan.
func startServer(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		switch {
		case q.Name == "router.lan." && q.Qtype == dns.TypeA:
			rr, _ := dns.NewRR("router.lan. 60 IN A 192.168.1.1")
			m.Answer = append(m.Answer, rr)
		case q.Name == "empty.lan.":
		default:
			m.SetRcode(r, dns.RcodeNameError)
		}
		w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("dns server did not start")
	}
	return pc.LocalAddr().String()
}

func TestLookupHost(t *testing.T) {
	r := New(startServer(t), time.Second)

	ip, err := r.LookupHost(context.Background(), "router.lan")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", ip)
}

func TestLookupHost_IPLiteral(t *testing.T) {
	r := New("127.0.0.1:1", time.Second)

	ip, err := r.LookupHost(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", ip)
}

func TestLookupHost_Failures(t *testing.T) {
	r := New(startServer(t), time.Second)

	for _, host := range []string{"missing.lan", "empty.lan"} {
		_, err := r.LookupHost(context.Background(), host)
		var dnsErr *net.DNSError
		require.True(t, errors.As(err, &dnsErr), "host %s: %v", host, err)
		assert.True(t, dnsErr.IsNotFound)
		assert.Equal(t, host, dnsErr.Name)
	}
}
