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

package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	tberrors "github.com/colour-white/tablerender/internal/errors"
)

// RetryConfig configures the retry behavior for remote calls.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts
	MaxRetries int
	// InitialBackoff is the initial backoff duration
	InitialBackoff time.Duration
	// MaxBackoff is the maximum backoff duration
	MaxBackoff time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// withRetry runs fn, retrying transient network failures with exponential
// backoff. Store errors and missing datasets are never retried.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	backoff := c.retry.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, tberrors.ErrNetworkFailure) {
			return lastErr
		}
		if attempt == c.retry.MaxRetries {
			break
		}

		select {
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * c.retry.BackoffMultiplier)
			if backoff > c.retry.MaxBackoff {
				backoff = c.retry.MaxBackoff
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", c.retry.MaxRetries+1, lastErr)
}

// mapError classifies an error from the GraphQL client into the store's
// sentinel vocabulary.
func (c *Client) mapError(err error, dataset string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isNetworkError(err) {
		return fmt.Errorf("fetching dataset %q: %w: %w", dataset, tberrors.ErrNetworkFailure, err)
	}
	if isNotFoundMessage(err.Error()) {
		return fmt.Errorf("dataset %q: %w: %w", dataset, tberrors.ErrDatasetNotFound, err)
	}
	return fmt.Errorf("fetching dataset %q: %w: %w", dataset, tberrors.ErrStore, err)
}

// isNetworkError reports whether err is a transport-level failure rather
// than a response the server produced.
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
