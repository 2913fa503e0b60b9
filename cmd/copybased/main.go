// File path: cmd/copybased/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/nicodishanthj/copybase/internal/api"
	"github.com/nicodishanthj/copybase/internal/catalog"
	"github.com/nicodishanthj/copybase/internal/common"
	"github.com/nicodishanthj/copybase/internal/decoder"
	"github.com/nicodishanthj/copybase/internal/service"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("copybase: .env file not loaded", "error", err)
	} else {
		logger.Info("copybase: environment loaded from .env")
	}

	addr := flag.String("addr", ":8082", "listen address")
	catalogPath := flag.String("catalog", defaultCatalogPath(), "path to the SQLite run catalog (empty to disable)")
	maxRecords := flag.Int("max-records", 0, "maximum decoded records returned per request (0 for unlimited)")
	copybookPath := flag.String("copybook", "", "one-shot mode: path to a copybook file")
	dataPath := flag.String("data", "", "one-shot mode: path to a raw extract file")
	encoding := flag.String("encoding", "", "extract character encoding (ascii or ebcdic)")
	workers := flag.Int("workers", 0, "decode worker count (0 uses the default)")
	flag.Parse()

	if strings.TrimSpace(*copybookPath) != "" || strings.TrimSpace(*dataPath) != "" {
		if err := runOnce(ctx, *copybookPath, *dataPath, *encoding, *workers); err != nil {
			logger.Error("copybase: one-shot parse failed", "error", err)
			fmt.Fprintln(os.Stderr, "parse error:", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("copybase: startup initiated", "addr", *addr, "catalog", *catalogPath)

	cfg := api.DefaultConfig()
	cfg.MaxRecords = *maxRecords
	if trimmed := strings.TrimSpace(*catalogPath); trimmed != "" {
		store, err := catalog.Open(trimmed)
		if err != nil {
			logger.Error("copybase: catalog open failed", "path", trimmed, "error", err)
			fmt.Println("catalog error:", err)
			os.Exit(1)
		}
		defer store.Close()
		cfg.Catalog = store
		logger.Info("copybase: catalog ready", "path", trimmed)
	} else {
		logger.Info("copybase: catalog disabled")
	}

	server := api.NewServer(cfg)

	logger.Info("copybase: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("copybase: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("copybase: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

// runOnce decodes a single extract against a copybook and prints the result
// envelope as JSON.
func runOnce(ctx context.Context, copybookPath, dataPath, encoding string, workers int) error {
	if strings.TrimSpace(copybookPath) == "" || strings.TrimSpace(dataPath) == "" {
		return fmt.Errorf("one-shot mode requires both -copybook and -data")
	}
	copybookText, err := os.ReadFile(copybookPath)
	if err != nil {
		return fmt.Errorf("read copybook: %w", err)
	}
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return fmt.Errorf("read extract: %w", err)
	}
	result, err := service.Parse(ctx, string(copybookText), data, service.Options{
		Encoding: decoder.Encoding(strings.ToLower(strings.TrimSpace(encoding))),
		Workers:  workers,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func defaultCatalogPath() string {
	return filepath.Join("data", "catalog.db")
}
