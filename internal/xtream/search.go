package xtream

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Search matches a query against all three catalog sections. The section
// listings are fetched concurrently; any section failure fails the search.
func (c *Client) Search(ctx context.Context, query string) (*SearchResults, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	results := &SearchResults{}

	if query == "" {
		return results, nil
	}

	wg, ctx := errgroup.WithContext(ctx)

	wg.Go(func() error {
		streams, err := c.LiveStreams(ctx, "")
		if err != nil {
			return err
		}

		for _, s := range streams {
			if strings.Contains(strings.ToLower(s.Name), query) {
				results.Live = append(results.Live, s)
			}
		}

		return nil
	})

	wg.Go(func() error {
		items, err := c.VODStreams(ctx, "")
		if err != nil {
			return err
		}

		for _, item := range items {
			if strings.Contains(strings.ToLower(item.Name), query) {
				results.VOD = append(results.VOD, item)
			}
		}

		return nil
	})

	wg.Go(func() error {
		items, err := c.Series(ctx, "")
		if err != nil {
			return err
		}

		for _, item := range items {
			if strings.Contains(strings.ToLower(item.Name), query) {
				results.Series = append(results.Series, item)
			}
		}

		return nil
	})

	if err := wg.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
