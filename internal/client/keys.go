package client

import (
	"context"
	"fmt"
)

// scanBatchSize is the COUNT hint passed to SCAN.
const scanBatchSize = 500

// keyFetchLimit caps how many keys a single fetch will accumulate, so a
// huge keyspace cannot balloon the cache.
const keyFetchLimit = 100_000

// FetchKeys enumerates keys matching the glob pattern with a full SCAN
// cursor walk. Implements completion.KeyFetcher.
func (c *Client) FetchKeys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	var keys []string
	cursor := "0"
	for {
		reply, err := c.Execute(ctx, "SCAN", cursor, "MATCH", pattern, "COUNT", fmt.Sprint(scanBatchSize))
		if err != nil {
			return nil, err
		}
		if reply.IsError() {
			return nil, fmt.Errorf("SCAN failed: %s", reply.Str)
		}
		if len(reply.Elems) != 2 {
			return nil, fmt.Errorf("SCAN returned %d elements, want 2", len(reply.Elems))
		}

		for _, elem := range reply.Elems[1].Elems {
			keys = append(keys, elem.Text())
		}
		if len(keys) >= keyFetchLimit {
			break
		}

		cursor = reply.Elems[0].Text()
		if cursor == "0" {
			break
		}
	}
	return keys, nil
}
