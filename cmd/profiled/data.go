package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/profiled/internal/config"
	"github.com/kalambet/profiled/internal/profile"
	"github.com/kalambet/profiled/internal/storage"
)

// The data commands open the store directly so they work while the server
// is stopped.

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Export or reset locally stored profile data",
}

type exportEntry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// exportScope writes every entry of sc as a JSON array. Values that are not
// valid JSON (the avatar ref) are exported as JSON strings.
func exportScope(w io.Writer, sc *storage.Scope) (int, error) {
	entries, err := sc.Entries()
	if err != nil {
		return 0, fmt.Errorf("reading scope %s: %w", sc.Name(), err)
	}

	out := make([]exportEntry, 0, len(entries))
	for _, e := range entries {
		v := json.RawMessage(e.Value)
		if !json.Valid(v) {
			b, err := json.Marshal(e.Value)
			if err != nil {
				return 0, err
			}
			v = b
		}
		out = append(out, exportEntry{Key: e.Key, Value: v, UpdatedAt: e.UpdatedAt})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return len(out), enc.Encode(out)
}

// resetScope removes the editor's keys from sc, or every key when all is set.
func resetScope(sc *storage.Scope, all bool) error {
	if all {
		return sc.Clear()
	}
	for _, key := range profile.StoredKeys {
		if err := sc.Remove(key); err != nil {
			return fmt.Errorf("removing %s: %w", key, err)
		}
	}
	return nil
}

func openScope() (*storage.Store, *storage.Scope, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, cfg, err
	}
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, cfg, fmt.Errorf("opening storage: %w", err)
	}
	return store, store.Scope(cfg.Storage.Scope), cfg, nil
}

var dataExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored profile keys as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		store, sc, _, err := openScope()
		if err != nil {
			return err
		}
		defer store.Close()

		w := io.Writer(os.Stdout)
		if output != "" {
			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		n, err := exportScope(w, sc)
		if err != nil {
			return err
		}
		if output != "" {
			printSuccess("Exported %d keys to %s", n, output)
		}
		return nil
	},
}

var dataResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the stored profile (requires --confirm)",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		all, _ := cmd.Flags().GetBool("all")
		if !confirm {
			printWarning("This deletes the saved profile, interests, links, and avatar reference.")
			return fmt.Errorf("pass --confirm to proceed")
		}

		store, sc, cfg, err := openScope()
		if err != nil {
			return err
		}
		defer store.Close()

		healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
		if resp, err := (&http.Client{Timeout: 2 * time.Second}).Get(healthURL); err == nil {
			resp.Body.Close()
			printWarning("profiled is running; its in-memory draft will be saved again on the next edit")
		}

		printStep("Resetting scope %s...", sc.Name())
		if err := resetScope(sc, all); err != nil {
			return err
		}
		printSuccess("Profile data reset")
		return nil
	},
}

func init() {
	dataExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	dataResetCmd.Flags().Bool("confirm", false, "confirm data reset")
	dataResetCmd.Flags().Bool("all", false, "clear every key in the scope, not only the editor's")
	dataCmd.AddCommand(dataExportCmd)
	dataCmd.AddCommand(dataResetCmd)
}
