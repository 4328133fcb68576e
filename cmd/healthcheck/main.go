// Command healthcheck is the container HEALTHCHECK for subpanel. It calls the
// panel's liveness endpoint and exits 0 on a 200, 1 on anything else.
//
// The panel address comes from SUBPANEL_LISTEN_ADDR, the same variable the
// server binds to; a bind-all host is rewritten to loopback.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

const (
	defaultAddr  = "127.0.0.1:8080"
	healthPath   = "/api/v1/health"
	checkTimeout = 2 * time.Second
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	if err := check(ctx, panelAddr(os.Getenv("SUBPANEL_LISTEN_ADDR"))); err != nil {
		fmt.Fprintln(os.Stderr, "unhealthy:", err)
		os.Exit(1)
	}
}

// check returns nil when the health endpoint at addr answers 200.
func check(ctx context.Context, addr string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+healthPath, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("query %s: %w", addr, err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(resp.Status)
	}
	return nil
}

// panelAddr maps the server's listen address to one dialable from inside the
// same container.
func panelAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return defaultAddr
	}

	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
