/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the studio engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Open the SQLite snapshot store and load the latest revision
  3. Build the in-memory state store
  4. Subscribe the debounced saver (and the replicator if -peer is set)
  5. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port           HTTP server port (default: 8080)
  -db             SQLite snapshot database path (default: studio.db)
                  Use ":memory:" for an ephemeral database
  -peer           Base URL of a peer's /api/sync/document endpoint.
                  Empty disables sync.
  -sync-interval  Poll interval for pulling the peer document
  -seed           Start from generated demo data instead of the snapshot

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Flush any pending debounced snapshot write
  4. Close the database and exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/studio.db"

  # Run as a syncing pair
  ./server -port=8080 -db=a.db
  ./server -port=8081 -db=b.db -peer=http://localhost:8080/api/sync/document

  # Demo data
  ./server -db=":memory:" -seed

SEE ALSO:
  - api/server.go: Router configuration
  - persist/persist.go: Debounced snapshot writes
  - replicate/replicate.go: Peer sync
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bigtop/studio-engine/api"
	"github.com/bigtop/studio-engine/core"
	"github.com/bigtop/studio-engine/persist"
	"github.com/bigtop/studio-engine/replicate"
	"github.com/bigtop/studio-engine/seed"
	"github.com/bigtop/studio-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "studio.db", "SQLite snapshot database path")
	peerURL := flag.String("peer", "", "peer sync document URL (empty disables sync)")
	syncInterval := flag.Duration("sync-interval", 30*time.Second, "peer poll interval")
	seedDemo := flag.Bool("seed", false, "start from generated demo data")
	flag.Parse()

	// Snapshot store
	snapshots, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open snapshot database: %v", err)
	}
	defer snapshots.Close()

	// Initial state: latest snapshot, or demo data when asked
	initial, err := persist.Load(context.Background(), snapshots)
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}
	if *seedDemo {
		initial = seed.Generate(seed.Options{})
		log.Printf("Seeded %d students across %d series", len(initial.Students), len(initial.Series))
	}

	store := core.NewStore(initial)

	// Every committed change schedules a debounced snapshot write.
	saver := persist.NewSaver(snapshots, persist.DefaultDebounce)
	store.Subscribe(saver.Notify)

	// Optional peer sync: push local commits, poll for the peer's document.
	syncCtx, stopSync := context.WithCancel(context.Background())
	defer stopSync()
	if *peerURL != "" {
		replicator := replicate.New(store, replicate.NewHTTPTransport(*peerURL), *syncInterval)
		store.Subscribe(replicator.Notify)
		go replicator.Run(syncCtx)
		log.Printf("Syncing with peer %s every %s", *peerURL, *syncInterval)
	}

	// Router and server
	handler := api.NewHandler(store, snapshots)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	stopSync()
	saver.Flush()
	log.Println("Server stopped")
}
