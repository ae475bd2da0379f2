package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/reportlocator/internal/config"
	"github.com/kalambet/reportlocator/internal/export"
	"github.com/kalambet/reportlocator/internal/report"
	"github.com/kalambet/reportlocator/internal/storage"
)

// --- find ---

var findCmd = &cobra.Command{
	Use:   "find <caseNumber>",
	Short: "Find a case report through the running server",
	Long: `Find a case report through the running server.

Examples:
  reportlocator find 2024-017
  reportlocator find 2024-017 --format yaml
  reportlocator find 2024-017 --format pdf --out 2024-017.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		res, err := findReport(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}
		if err := writeResult(cmd.OutOrStdout(), format, out, res); err != nil {
			return err
		}
		printSuccess("Case %s found in database %s", res.Report.CaseNumber, res.Database)
		return nil
	},
}

func init() {
	findCmd.Flags().String("format", "json", "output format: "+strings.Join(export.Formats, ", "))
	findCmd.Flags().String("out", "", "write to this file instead of stdout (required for pdf)")
}

func findReport(ctx context.Context, client *apiClient, caseNumber string) (report.Result, error) {
	if strings.TrimSpace(caseNumber) == "" {
		return report.Result{}, fmt.Errorf("case number is required")
	}
	resp, err := client.get(ctx, "/find-report/"+url.PathEscape(caseNumber))
	if err != nil {
		return report.Result{}, err
	}
	var res report.Result
	if err := decodeJSON(resp, &res); err != nil {
		return report.Result{}, err
	}
	if res.Report == nil {
		return report.Result{}, fmt.Errorf("server returned no report")
	}
	return res, nil
}

func writeResult(stdout io.Writer, format, out string, res report.Result) error {
	if out == "" {
		if strings.EqualFold(format, "pdf") {
			return fmt.Errorf("--out is required for pdf output")
		}
		return export.Write(stdout, format, res)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := export.Write(f, format, res); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}
	printSuccess("Wrote %s", out)
	return nil
}

// --- databases ---

var databasesCmd = &cobra.Command{
	Use:   "databases",
	Short: "List the databases searched for case reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		dbs, err := listDatabases(cmd.Context(), client)
		if err != nil {
			return err
		}
		if len(dbs) == 0 {
			printWarning("No databases to search")
			return nil
		}
		for _, db := range dbs {
			fmt.Fprintln(cmd.OutOrStdout(), db)
		}
		return nil
	},
}

func listDatabases(ctx context.Context, client *apiClient) ([]string, error) {
	resp, err := client.get(ctx, "/databases")
	if err != nil {
		return nil, err
	}
	var body struct {
		Databases []string `json:"databases"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return nil, err
	}
	return body.Databases, nil
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history [lookup-id]",
	Short: "Show recent lookups, or one lookup by id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		caseNumber, _ := cmd.Flags().GetString("case")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			l, err := getLookup(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}
			printLookup(l)
			return nil
		}
		lookups, err := listLookups(cmd.Context(), client, limit, caseNumber)
		if err != nil {
			return err
		}
		if len(lookups) == 0 {
			printWarning("No lookups recorded")
			return nil
		}
		w := cmd.OutOrStdout()
		for _, l := range lookups {
			db := l.Database
			if db == "" {
				db = "-"
			}
			fmt.Fprintf(w, "%s  %-10s %-24s %-16s probed=%d %dms\n",
				l.CreatedAt.Local().Format(time.DateTime), l.Outcome, l.CaseNumber, db, l.Probed, l.DurationMs)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of lookups to show")
	historyCmd.Flags().String("case", "", "only lookups of this case number")
}

func listLookups(ctx context.Context, client *apiClient, limit int, caseNumber string) ([]storage.Lookup, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if caseNumber != "" {
		q.Set("case", caseNumber)
	}
	resp, err := client.get(ctx, "/lookups?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var body struct {
		Lookups []storage.Lookup `json:"lookups"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return nil, err
	}
	return body.Lookups, nil
}

func getLookup(ctx context.Context, client *apiClient, id string) (storage.Lookup, error) {
	resp, err := client.get(ctx, "/lookups/"+url.PathEscape(id))
	if err != nil {
		return storage.Lookup{}, err
	}
	var l storage.Lookup
	if err := decodeJSON(resp, &l); err != nil {
		return storage.Lookup{}, err
	}
	return l, nil
}

func printLookup(l storage.Lookup) {
	printStatus("Lookup", "%s", l.ID)
	printStatus("Scan", "%s", l.ScanID)
	printStatus("Case", "%s", l.CaseNumber)
	printStatus("Outcome", "%s", l.Outcome)
	if l.Database != "" {
		printStatus("Database", "%s", l.Database)
	}
	printStatus("Probed", "%d", l.Probed)
	printStatus("Duration", "%dms", l.DurationMs)
	printStatus("At", "%s", l.CreatedAt.Local().Format(time.DateTime))
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status and configuration summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := &apiClient{
		baseURL:    cfg.BaseURL(),
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}
	running := false
	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on %s", cfg.BaseURL())
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("MongoDB", "%s", redactURI(cfg.Mongo.URI))
	printStatus("Collection", "%s", cfg.Mongo.Collection)
	printStatus("Strategy", "%s", cfg.Strategy())

	if running {
		client.httpClient.Timeout = 30 * time.Second
		if dbs, err := listDatabases(ctx, client); err == nil {
			printStatus("Databases", "%d", len(dbs))
		} else {
			printStatus("Databases", "unavailable (%v)", err)
		}
	}

	if cfg.Storage.HistoryEnabled {
		printStatus("History", "%s", cfg.Storage.DataDir)
	} else {
		printStatus("History", "disabled")
	}
	return nil
}

// redactURI hides the password of a connection string.
func redactURI(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		printStatus("File", "%s", config.ConfigPath())
		for _, k := range config.ShowAll(cfg) {
			value := k.Value
			if k.Key == "mongo.uri" {
				value = redactURI(value)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  (%s)\n", labelColor.Sprint(k.Key), value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
