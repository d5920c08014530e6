package stunnel

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// RenderConfig returns the stunnel configuration for o with pidPath as the
// pid file. The key file doubles as certificate and CA bundle.
func RenderConfig(o Options, pidPath string) string {
	var b strings.Builder

	kv := func(k, v string) {
		fmt.Fprintf(&b, "%-10s = %s\n", k, v)
	}

	kv("cert", o.KeyPath)
	kv("key", o.KeyPath)
	kv("CAfile", o.KeyPath)
	kv("pid", pidPath)
	kv("socket", "l:TCP_NODELAY=1")
	kv("socket", "r:TCP_NODELAY=1")
	kv("verify", "2")
	kv("client", "yes")
	kv("foreground", "yes")
	kv("syslog", "yes")
	b.WriteString("\n")

	b.WriteString("[wrtctl]\n")
	kv("accept", net.JoinHostPort("localhost", strconv.Itoa(o.ClientPort)))
	kv("connect", net.JoinHostPort(o.Host, strconv.Itoa(o.DaemonPort)))
	return b.String()
}
