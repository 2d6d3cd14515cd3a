package remote

import (
	"net"
	"net/url"
	"time"
)

// ConnectivityProbe reports whether the host of the given endpoint is
// reachable right now. The scheduler consults it before each poll so an
// offline device defers instead of burning a failed cycle.
func ConnectivityProbe(endpoint string) func() bool {
	host := "1.1.1.1:443"
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		h := u.Host
		if u.Port() == "" {
			h += ":443"
		}
		host = h
	}

	return func() bool {
		conn, err := net.DialTimeout("tcp", host, 2*time.Second)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}
