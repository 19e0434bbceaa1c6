package enhancer

import (
	"context"
	"fmt"
	"sync"

	"image-enhancer/internal/domain"

	"golang.org/x/sync/errgroup"
)

// FetchCatalog loads the algorithm→models catalog. Any failure, including a
// payload that does not form a usable catalog, is ErrServiceUnavailable.
func (c *Client) FetchCatalog(ctx context.Context) (domain.Catalog, error) {
	var (
		raw map[string][]string
		err error
	)

	if len(c.algorithms) > 0 {
		raw, err = c.fetchPerAlgorithm(ctx)
	} else {
		raw, err = c.fetchAll(ctx)
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to fetch model catalog")
		return domain.Catalog{}, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	catalog, err := domain.NewCatalog(raw)
	if err != nil {
		c.logger.Error().Err(err).Msg("Service returned an unusable model catalog")
		return domain.Catalog{}, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	c.logger.Debug().Int("algorithms", len(catalog.Algorithms)).Msg("Model catalog fetched")
	return catalog, nil
}

func (c *Client) fetchAll(ctx context.Context) (map[string][]string, error) {
	var raw map[string][]string

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&raw).
		Get(pathModels)
	if err != nil {
		return nil, fmt.Errorf("failed to request models: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("models returned status %d", resp.StatusCode())
	}

	return raw, nil
}

func (c *Client) fetchPerAlgorithm(ctx context.Context) (map[string][]string, error) {
	var mu sync.Mutex
	raw := make(map[string][]string, len(c.algorithms))

	g, gctx := errgroup.WithContext(ctx)
	for _, algo := range c.algorithms {
		g.Go(func() error {
			var models []string

			resp, err := c.http.R().
				SetContext(gctx).
				SetQueryParam("algo", algo).
				SetResult(&models).
				Get(pathModels)
			if err != nil {
				return fmt.Errorf("failed to request models for %s: %w", algo, err)
			}
			if resp.IsError() {
				return fmt.Errorf("models for %s returned status %d", algo, resp.StatusCode())
			}

			mu.Lock()
			raw[algo] = models
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return raw, nil
}
