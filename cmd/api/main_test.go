package main

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourhouse/backend/internal/config"
)

func TestRunServerStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{Addr: addr, Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestOpenStore(t *testing.T) {
	store, closeFn, err := openStore(config.StorageConfig{})
	require.NoError(t, err)
	assert.NotNil(t, store)
	closeFn()

	store, closeFn, err = openStore(config.StorageConfig{Path: filepath.Join(t.TempDir(), "house.db")})
	require.NoError(t, err)
	assert.NotNil(t, store)
	closeFn()
}

func TestLoadPersonasDefaultsToSeed(t *testing.T) {
	store, err := loadPersonas(config.PersonaConfig{})
	require.NoError(t, err)
	_, ok := store.FindByID("grandma")
	assert.True(t, ok)

	_, err = loadPersonas(config.PersonaConfig{File: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
