package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redbco/mongostore/pkg/logging"
	"github.com/redbco/mongostore/pkg/mongodb"
	"github.com/redbco/mongostore/pkg/resource"
)

var (
	uri        = flag.String("uri", "localhost:27017/test", "Target as [user:pass@]host[:port][/database][?query]")
	collection = flag.String("collection", "demo", "Collection to operate on")
	safe       = flag.Bool("safe", true, "Request acknowledged writes")
	timeout    = flag.Duration("timeout", 10*time.Second, "Connect timeout")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	logger := logging.NewConsole()
	if *verbose {
		logger = logging.WithLevel(logger, "debug")
	} else {
		logger = logging.WithLevel(logger, "info")
	}

	// Create context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		stop()
		log.Fatalf("Demo failed: %v", err)
	}
}

func run(ctx context.Context, logger logging.Logger) error {
	// Open the connection through the first store
	store, err := mongodb.New(ctx, mongodb.Config{
		Collection: *collection,
		URI:        *uri,
		Safe:       *safe,
		OnConnect: func(err error) {
			if err != nil {
				logger.Error("connection failed: %v", err)
				return
			}
			logger.Info("connection ready")
		},
	}, mongodb.WithLogger(logger), mongodb.WithConnectTimeout(*timeout))
	if err != nil {
		return err
	}

	// Save a document without an identifier; the store assigns one
	doc, err := store.Save(ctx, resource.Document{"name": "first", "count": 1})
	if err != nil {
		return err
	}
	id, _ := doc[resource.IDField].(string)
	logger.Info("saved document %s", id)

	// Read it back
	fetched, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	logger.Info("fetched document: %v", fetched)

	// A partial update merges fields and returns the full document
	updated, err := store.Update(ctx, id, resource.Document{"count": 2})
	if err != nil {
		return err
	}
	logger.Info("updated document: %v", updated)

	// A second store for the same target reuses the open connection
	second, err := mongodb.New(ctx, mongodb.Config{Collection: *collection, URI: *uri, Safe: *safe})
	if err != nil {
		return err
	}

	matches, err := second.Find(ctx, resource.Criteria{"name": "first"})
	if err != nil {
		return err
	}
	total, err := second.Count(ctx, resource.Criteria{})
	if err != nil {
		return err
	}
	logger.Info("collection holds %d document(s), %d matching", total, len(matches))

	// Clean up
	removed, err := store.Destroy(ctx, id)
	if err != nil {
		return err
	}
	logger.Info("destroyed %d document(s)", removed)

	return nil
}
