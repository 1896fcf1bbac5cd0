package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tuanpm/slotdb/internal/config"
	"github.com/tuanpm/slotdb/server/slotwire"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "slotdb.yaml", "Path to slotdb yaml config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Server.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	addr := os.Getenv("SLOTDB_ADDR")
	if addr == "" {
		port := cfg.Server.Port
		if port == 0 {
			port = 6543
		}
		addr = fmt.Sprintf("127.0.0.1:%d", port)
	}

	dataDir := cfg.Storage.TableFileDir
	if dataDir == "" {
		dataDir = "./table_file"
	}
	poolPages := cfg.Storage.MaxMemoryPoolPageNum
	if poolPages == 0 {
		poolPages = 128
	}

	sc := slotwire.ServerConfig{
		Addr:         addr,
		DataDir:      dataDir,
		MaxPoolPages: poolPages,
	}
	if err := slotwire.Run(sc); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
