package main

import (
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuetrack/internal/shared/config"
	"issuetrack/pkg/logger"
)

func serveAsync(srv *http.Server, quit chan os.Signal) <-chan error {
	done := make(chan error, 1)
	go func() { done <- serve(srv, quit, logger.Discard()) }()
	return done
}

func TestServeReturnsListenFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	srv := &http.Server{Addr: taken.Addr().String(), Handler: http.NotFoundHandler()}
	done := serveAsync(srv, make(chan os.Signal, 1))

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve kept waiting after the listener failed")
	}
}

func TestServeShutsDownOnSignal(t *testing.T) {
	free, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := free.Addr().String()
	require.NoError(t, free.Close())

	quit := make(chan os.Signal, 1)
	srv := &http.Server{Addr: addr, Handler: http.NotFoundHandler()}
	done := serveAsync(srv, quit)

	quit <- syscall.SIGTERM
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not return after the shutdown signal")
	}
}

func TestSetupRouterRejectsBadTrustedProxy(t *testing.T) {
	cfg := &config.Config{TrustedProxies: []string{"not-an-address"}}

	_, err := setupRouter(cfg, nil, nil, nil, nil)
	assert.Error(t, err)
}
