package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-atproto-sessions/internal/config"
	"github.com/jrsteele09/go-atproto-sessions/oauthclient"
	"github.com/jrsteele09/go-atproto-sessions/oauthclient/oidcclient"
	"github.com/jrsteele09/go-atproto-sessions/server"
	"github.com/jrsteele09/go-atproto-sessions/storage"
	"github.com/jrsteele09/go-atproto-sessions/storage/boltstore"
	"github.com/jrsteele09/go-atproto-sessions/storage/memstore"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Printf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	store, closeStore, err := newStore(c)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeStore()

	client, err := newOAuthClient(c, store)
	if err != nil {
		return fmt.Errorf("oauth client: %w", err)
	}

	srv, err := server.New(c, client, store, logger)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// newStore opens the bbolt-backed store under the configured data folder,
// or an in-memory store when no folder is configured.
func newStore(c config.Config) (storage.Store, func(), error) {
	folder := c.GetDataFolder()
	if folder == "" {
		return memstore.New(), func() {}, nil
	}

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, nil, err
	}
	store, err := boltstore.Open(filepath.Join(folder, "sessions.db"))
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func newOAuthClient(c config.Config, store storage.Store) (oauthclient.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return oidcclient.New(ctx, oidcclient.Config{
		IssuerURL:    c.GetOIDCIssuerURL(),
		ClientID:     c.GetOIDCClientID(),
		ClientSecret: c.GetOIDCClientSecret(),
		RedirectURL:  c.GetOIDCRedirectURL(),
	}, store)
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
