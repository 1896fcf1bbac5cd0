package slotwire

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tuanpm/slotdb/server"
)

type ServerConfig struct {
	Addr         string
	DataDir      string
	MaxPoolPages int
}

// Run serves the wire protocol until SIGINT/SIGTERM. Connections share one
// engine; statement execution is serialized inside it.
func Run(sc ServerConfig) error {
	engine, err := server.NewEngine(sc.DataDir, sc.MaxPoolPages)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer func() { _ = engine.Close() }()

	ln, err := net.Listen("tcp", sc.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer func() { _ = ln.Close() }()

	slog.Info("slotdb tcp server listening", "addr", sc.Addr, "dataDir", sc.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			slog.Error("accept failed", "err", err)
			continue
		}
		go handleConn(ctx, conn, engine)
	}
}

func handleConn(ctx context.Context, conn net.Conn, engine *server.Engine) {
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Time{})

	session := uuid.NewString()
	slog.Info("session opened", "session", session, "remote", conn.RemoteAddr().String())
	defer slog.Info("session closed", "session", session)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var req ExecuteRequest
		if err := ReadFrame(conn, &req); err != nil {
			// Client closed or bad frame.
			return
		}

		res, err := engine.Execute(req.SQL)
		if err != nil {
			slog.Debug("statement failed", "session", session, "id", req.ID, "err", err)
			_ = WriteFrame(conn, ExecuteResponse{ID: req.ID, Error: err.Error()})
			continue
		}
		_ = WriteFrame(conn, ExecuteResponse{ID: req.ID, Result: res})
	}
}
