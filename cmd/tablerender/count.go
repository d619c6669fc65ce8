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
	"fmt"
	"time"

	tberrors "github.com/colour-white/tablerender/internal/errors"
	"github.com/spf13/cobra"
)

// countCmd reports the number of rows a dataset would export, without
// exporting it.
func newCountCommand() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "count <dataset>",
		Short: "Count the rows in a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			return runCount(ctx, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to config file (default: auto-discovered)")
	cmd.Flags().StringVar(&flags.storePath, "store", "", "Path to SQLite database file (overrides config)")
	cmd.Flags().StringVar(&flags.endpoint, "endpoint", "", "Remote record service GraphQL endpoint (overrides config)")
	cmd.Flags().StringVar(&flags.token, "token", "", "Bearer token for remote endpoints (overrides token env var)")
	cmd.Flags().StringVar(&flags.filter, "filter", "", "SQL filter expression applied to the dataset")

	return cmd
}

// runCount executes the count command
func runCount(ctx context.Context, dataset string, flags exportFlags) error {
	cfg, err := loadValidatedConfig(flags.configPath)
	if err != nil {
		return err
	}

	query, closeStore, err := buildQuery(dataset, flags, cfg, nil)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck // read-only store, close failure is harmless

	c, ok := query.(counter)
	if !ok {
		return fmt.Errorf("%w: store does not support counting", tberrors.ErrConfiguration)
	}

	total, err := c.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Println(total)
	return nil
}
