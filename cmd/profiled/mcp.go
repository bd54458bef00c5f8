package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/profiled/internal/api"
	"github.com/kalambet/profiled/internal/config"
	"github.com/kalambet/profiled/internal/profile"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the profile editor over MCP (stdio transport)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

func runMCP(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// stdout carries the protocol; logs go to stderr.
	setupLogging(cfg)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := openEditor(cfg)
	if err != nil {
		return err
	}
	defer sess.close()

	mcpSrv := api.NewMCPServer(api.MCPDeps{Editor: sess.editor, Version: version})
	stdioSrv := server.NewStdioServer(mcpSrv)
	return serveWithWriter(ctx, sess.writer, func(ctx context.Context) error {
		slog.Info("MCP server started (stdio transport)", "scope", cfg.Storage.Scope)
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	})
}

// serveWithWriter runs serve alongside the slice writer and returns only
// after the writer has drained, so the store can be closed safely.
func serveWithWriter(ctx context.Context, w *profile.AsyncWriter, serve func(context.Context) error) error {
	writerCtx, stopWriter := context.WithCancel(context.Background())
	var g errgroup.Group
	g.Go(func() error {
		return w.Run(writerCtx)
	})

	err := serve(ctx)
	stopWriter()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}
