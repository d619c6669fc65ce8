// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/colour-white/tablerender/internal/config"
	tberrors "github.com/colour-white/tablerender/internal/errors"
	"github.com/colour-white/tablerender/internal/export"
	"github.com/colour-white/tablerender/internal/metadata"
	"github.com/colour-white/tablerender/internal/output"
	"github.com/colour-white/tablerender/internal/remote"
	"github.com/colour-white/tablerender/internal/row"
	"github.com/colour-white/tablerender/internal/source"
	"github.com/colour-white/tablerender/internal/sqlite"
	"github.com/colour-white/tablerender/internal/state"
	"github.com/spf13/cobra"
)

// exportFlags collects the export command's flag values. The *Set
// fields record whether the user passed the flag explicitly, which is
// what lets config-file defaults apply when they didn't.
type exportFlags struct {
	configPath string
	outputFile string
	format     string
	storePath  string
	endpoint   string
	token      string
	key        string
	filter     string
	fields     []string
	expands    []string
	streaming  bool
	limit      int
	chunkSize  int
	rowNumbers bool

	incremental  bool
	stateDir     string
	saveMetadata bool

	streamingSet bool
	limitSet     bool
}

// exportCmd represents the export command
func newExportCommand() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export <dataset>",
		Short: "Export a dataset as NDJSON or CSV",
		Long: `Export a dataset from the configured record store and write it in
NDJSON or CSV format.

The dataset names a table in the local SQLite store, or a dataset
exposed by the remote record service when --endpoint is set.

Remote endpoints authenticate via bearer token:
  - Use --token flag to provide the token directly
  - Or set the environment variable named by store.token_env
    (TABLERENDER_TOKEN by default)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			flags.streamingSet = cmd.Flags().Changed("streaming")
			flags.limitSet = cmd.Flags().Changed("limit")
			return runExport(ctx, args[0], flags)
		},
	}

	// Define flags
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to config file (default: auto-discovered)")
	cmd.Flags().StringVar(&flags.outputFile, "output", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flags.format, "format", "", "Output format: ndjson or csv (default from config)")

	// Store selection
	cmd.Flags().StringVar(&flags.storePath, "store", "", "Path to SQLite database file (overrides config)")
	cmd.Flags().StringVar(&flags.endpoint, "endpoint", "", "Remote record service GraphQL endpoint (overrides config)")
	cmd.Flags().StringVar(&flags.token, "token", "", "Bearer token for remote endpoints (overrides token env var)")

	// Query shaping
	cmd.Flags().StringVar(&flags.key, "key", "", "Ordering key column (default: id)")
	cmd.Flags().StringSliceVar(&flags.fields, "fields", nil, "Columns to export (default: all)")
	cmd.Flags().StringVar(&flags.filter, "filter", "", "SQL filter expression applied to the dataset")
	cmd.Flags().StringSliceVar(&flags.expands, "expand", nil, "Expand a relation as <field>:<table>:<foreign-key>")

	// Export behavior
	cmd.Flags().BoolVar(&flags.streaming, "streaming", true, "Stream rows incrementally instead of materializing")
	cmd.Flags().IntVar(&flags.limit, "limit", -1, "Maximum number of rows to export (default: unbounded)")
	cmd.Flags().IntVar(&flags.chunkSize, "chunk-size", 0, "Fetch granularity for chunked iteration (default from config)")
	cmd.Flags().BoolVar(&flags.rowNumbers, "row-numbers", false, "Add a row_number column to each exported row")

	// Incremental export
	cmd.Flags().BoolVar(&flags.incremental, "incremental", false, "Export only rows added since the last incremental run")
	cmd.Flags().StringVar(&flags.stateDir, "state-dir", "", "Directory for state files and export manifests (default: ~/.tablerender/state)")
	cmd.Flags().BoolVar(&flags.saveMetadata, "save-metadata", false, "Write an export manifest to the state directory")

	return cmd
}

// runExport executes the export command
func runExport(ctx context.Context, dataset string, flags exportFlags) error {
	cfg, err := loadValidatedConfig(flags.configPath)
	if err != nil {
		return err
	}

	// Resolve effective settings: flags beat env/config, config beats defaults
	streaming := cfg.Defaults.Streaming
	if flags.streamingSet {
		streaming = flags.streaming
	}

	chunkSize := flags.chunkSize
	if chunkSize == 0 {
		chunkSize = cfg.GetChunkSize(dataset)
	}

	limit := flags.limit
	if !flags.limitSet {
		if l := cfg.GetRowLimit(dataset); l > 0 {
			limit = l
		}
	}
	var rowLimit *int
	if limit >= 0 {
		rowLimit = &limit
	}

	format := flags.format
	if format == "" {
		format = cfg.Defaults.OutputFormat
	}

	keyColumn := flags.key
	if keyColumn == "" {
		keyColumn = cfg.GetKey(dataset)
	}
	if keyColumn == "" {
		keyColumn = "id"
	}

	stateDir := flags.stateDir
	if stateDir == "" {
		stateDir = filepath.Dir(state.GetStateFilePath(dataset))
	}
	stateFile := filepath.Join(stateDir, dataset+".state")

	// Load prior state for incremental exports. A missing state file
	// means this is the first run, which falls back to a full export.
	var prior *state.ExportState
	if flags.incremental {
		prior, err = state.LoadState(stateFile)
		if err != nil {
			return err
		}
	}
	var startAfter any
	if prior != nil {
		startAfter = prior.LastKey
	}

	// Open the backing store
	query, closeStore, err := buildQuery(dataset, flags, cfg, startAfter)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck // read-only store, close failure is harmless

	// Create output writer
	writer, err := newOutputWriter(format, flags.outputFile, flags.fields)
	if err != nil {
		return err
	}
	defer writer.Close()

	opts := export.Options{
		Streaming: streaming,
		RowLimit:  rowLimit,
	}
	if flags.rowNumbers {
		opts.Transform = &export.OrdinalTransformer{}
	}

	pipeline := export.New(chunkSize)
	result, err := pipeline.Export(ctx, query, opts)
	if err != nil {
		return err
	}

	tracker := metadata.New()
	track := func(r row.Row) {
		tracker.UpdateRowStats(r[keyColumn])
	}

	startTime := time.Now()
	if result.Streaming() {
		total := datasetTotal(ctx, query, rowLimit)
		if err := writeStreamed(result.Seq(), writer, dataset, total, startTime, track); err != nil {
			return err
		}
	} else {
		for _, r := range result.Rows() {
			if err := writer.Write(r); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
			track(r)
		}
	}

	elapsed := time.Since(startTime)
	if writer.Count() > 0 {
		fmt.Fprintf(os.Stderr, "Exported %d rows from %s in %s\n", writer.Count(), dataset, elapsed.Round(time.Millisecond))
	} else {
		fmt.Fprintf(os.Stderr, "No rows found in %s\n", dataset)
	}

	if err := writer.Close(); err != nil {
		return err
	}

	if flags.incremental || flags.saveMetadata {
		params := metadata.ExportParams{
			Dataset:   dataset,
			Store:     storeDescription(flags, cfg),
			Format:    format,
			Streaming: streaming,
			ChunkSize: chunkSize,
			RowLimit:  rowLimit,
		}
		return finishExport(params, prior, tracker, stateDir, stateFile, flags.incremental)
	}

	return nil
}

// finishExport persists the export manifest and, for incremental runs,
// the state file that the next run resumes from. Called only after the
// export completed successfully.
func finishExport(params metadata.ExportParams, prior *state.ExportState, tracker *metadata.Tracker, stateDir, stateFile string, incremental bool) error {
	var prevRef *metadata.ExportRef
	if prev, err := metadata.LoadLatestMetadata(stateDir, params.Dataset); err == nil && prev != nil {
		prevRef = &metadata.ExportRef{
			ExportID:    prev.ExportID,
			CompletedAt: prev.Results.CompletedAt,
		}
	}

	meta := tracker.GenerateMetadata(version, params, incremental, prevRef)
	if err := metadata.SaveMetadata(meta, stateDir); err != nil {
		return fmt.Errorf("failed to save export metadata: %w", err)
	}

	if !incremental {
		return nil
	}

	// When no new rows arrived, carry the previous key forward so the
	// next incremental run resumes from the same point.
	stats := tracker.Stats()
	lastKey := stats.LastKey
	if lastKey == nil && prior != nil {
		lastKey = prior.LastKey
	}

	st := &state.ExportState{
		Dataset:        params.Dataset,
		LastExportID:   meta.ExportID,
		LastKey:        lastKey,
		LastExportTime: meta.Results.CompletedAt,
		TotalExported:  stats.TotalRows,
	}
	if err := state.SaveState(st, stateFile); err != nil {
		return fmt.Errorf("failed to save export state: %w", err)
	}

	return nil
}

// storeDescription reports which backing store an export ran against,
// for the manifest's parameters block.
func storeDescription(flags exportFlags, cfg *config.Config) string {
	if flags.endpoint != "" {
		return flags.endpoint
	}
	if cfg.Store.Endpoint != "" {
		return cfg.Store.Endpoint
	}
	if flags.storePath != "" {
		return flags.storePath
	}
	return cfg.Store.Path
}

// loadValidatedConfig loads and validates configuration, classifying
// failures as configuration errors for exit-code purposes.
func loadValidatedConfig(configPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tberrors.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", tberrors.ErrConfiguration, err)
	}
	return cfg, nil
}

// buildQuery opens the configured record store and builds the dataset
// query. The returned func closes the store when the export is done.
// A non-nil startAfter bounds the query to rows whose ordering key is
// above it, which is how incremental exports skip already-exported rows.
func buildQuery(dataset string, flags exportFlags, cfg *config.Config, startAfter any) (source.Query, func() error, error) {
	noop := func() error { return nil }

	endpoint := flags.endpoint
	if endpoint == "" {
		endpoint = cfg.Store.Endpoint
	}
	storePath := flags.storePath
	if storePath == "" {
		storePath = cfg.Store.Path
	}

	if endpoint != "" {
		if len(flags.expands) > 0 || flags.filter != "" {
			return nil, noop, fmt.Errorf("%w: --expand and --filter require a local SQLite store", tberrors.ErrConfiguration)
		}
		if flags.incremental {
			return nil, noop, fmt.Errorf("%w: --incremental requires a local SQLite store", tberrors.ErrConfiguration)
		}
		client := remote.NewClient(endpoint, getToken(flags.token, cfg.Store.TokenEnv))
		return client.Dataset(dataset), noop, nil
	}

	if storePath == "" {
		return nil, noop, fmt.Errorf("%w: no record store configured (use --store, --endpoint, or a config file)", tberrors.ErrConfiguration)
	}

	store, err := sqlite.Open(storePath)
	if err != nil {
		return nil, noop, err
	}

	var opts []sqlite.QueryOption
	if key := flags.key; key != "" {
		opts = append(opts, sqlite.WithKey(key))
	} else if key := cfg.GetKey(dataset); key != "" {
		opts = append(opts, sqlite.WithKey(key))
	}
	if len(flags.fields) > 0 {
		opts = append(opts, sqlite.WithColumns(flags.fields...))
	}
	if flags.filter != "" {
		opts = append(opts, sqlite.WithFilter(flags.filter))
	}
	if startAfter != nil {
		opts = append(opts, sqlite.WithStartAfter(startAfter))
	}
	for _, spec := range flags.expands {
		field, table, foreignKey, err := parseExpand(spec)
		if err != nil {
			store.Close() //nolint:errcheck // already failing
			return nil, noop, err
		}
		opts = append(opts, sqlite.WithExpand(field, table, foreignKey))
	}

	return store.Dataset(dataset, opts...), store.Close, nil
}

// parseExpand parses a relation expansion spec in the form
// <field>:<table>:<foreign-key>.
func parseExpand(spec string) (field, table, foreignKey string, err error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("%w: invalid expand spec %q (expected <field>:<table>:<foreign-key>)", tberrors.ErrConfiguration, spec)
	}

	field = strings.TrimSpace(parts[0])
	table = strings.TrimSpace(parts[1])
	foreignKey = strings.TrimSpace(parts[2])

	if field == "" || table == "" || foreignKey == "" {
		return "", "", "", fmt.Errorf("%w: invalid expand spec %q (expected <field>:<table>:<foreign-key>)", tberrors.ErrConfiguration, spec)
	}

	return field, table, foreignKey, nil
}

// getToken returns the bearer token from flag or environment variable
func getToken(flagToken, tokenEnv string) string {
	if flagToken != "" {
		return flagToken
	}
	return os.Getenv(tokenEnv)
}

// newOutputWriter creates the writer for the selected output format.
func newOutputWriter(format, outputFile string, fields []string) (output.OutputWriter, error) {
	switch format {
	case "ndjson":
		if outputFile == "" {
			return output.NewWriter(os.Stdout), nil
		}
		writer, err := output.NewFileWriter(outputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		return writer, nil
	case "csv":
		var opts []output.CSVOption
		if len(fields) > 0 {
			opts = append(opts, output.WithFields(fields))
		}
		if outputFile == "" {
			return output.NewCSVWriter(os.Stdout, opts...), nil
		}
		writer, err := output.NewCSVFileWriter(outputFile, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		return writer, nil
	default:
		return nil, fmt.Errorf("%w: unsupported output format %q (expected ndjson or csv)", tberrors.ErrConfiguration, format)
	}
}

// counter is implemented by queries that can cheaply report the total
// row count, used for progress reporting.
type counter interface {
	Count(ctx context.Context) (int, error)
}

// datasetTotal returns the expected number of exported rows, or 0 when
// the store cannot report one. Used only for progress display.
func datasetTotal(ctx context.Context, q source.Query, rowLimit *int) int {
	c, ok := q.(counter)
	if !ok {
		return 0
	}
	total, err := c.Count(ctx)
	if err != nil {
		return 0
	}
	if rowLimit != nil && *rowLimit < total {
		total = *rowLimit
	}
	return total
}

// writeStreamed drains a lazy export sequence into the writer, showing
// progress on stderr. The track callback observes each written row.
func writeStreamed(seq row.Seq, writer output.OutputWriter, dataset string, total int, startTime time.Time, track func(row.Row)) error {
	for {
		r, err := seq.Next()
		if errors.Is(err, row.Done) {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "\r\033[K") // Clear progress line
			return err
		}

		if err := writer.Write(r); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		track(r)
		updateProgress(writer.Count(), total, dataset, startTime)
	}

	fmt.Fprintf(os.Stderr, "\r\033[K") // Clear progress line
	return nil
}

// updateProgress displays progress with percentage and ETA when the
// total is known, or a plain row count otherwise.
func updateProgress(current, total int, dataset string, startTime time.Time) {
	if total <= 0 {
		fmt.Fprintf(os.Stderr, "\rExporting %s... %d rows", dataset, current)
		return
	}

	percent := float64(current) * 100 / float64(total)
	elapsed := time.Since(startTime)

	// Calculate ETA
	var eta string
	if current > 0 {
		totalTime := elapsed.Seconds() * float64(total) / float64(current)
		remaining := time.Duration(totalTime-elapsed.Seconds()) * time.Second

		if remaining > 0 {
			eta = fmt.Sprintf(" | ETA: %s", remaining.Round(time.Second))
		}
	}

	fmt.Fprintf(os.Stderr, "\rProgress: %d / %d rows [%.1f%%]%s", current, total, percent, eta)
}

// mapErrorToExitCode maps internal errors to appropriate exit codes
func mapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}

	// Check for specific error types
	if errors.Is(err, tberrors.ErrConfiguration) ||
		errors.Is(err, tberrors.ErrDatasetNotFound) {
		return 2 // Configuration/usage errors
	}

	if errors.Is(err, tberrors.ErrStore) ||
		errors.Is(err, tberrors.ErrNetworkFailure) {
		return 3 // Store/network errors
	}

	return 1 // General error
}
