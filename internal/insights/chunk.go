package insights

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the id-list size of a single IN lookup.
const DefaultChunkSize = 50

// maxInflightChunks bounds concurrent lookups per call.
const maxInflightChunks = 4

// ChunkIDs de-duplicates ids, drops blanks and splits them into chunks of at most size.
func ChunkIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var chunks [][]string
	for start := 0; start < len(unique); start += size {
		end := min(start+size, len(unique))
		chunks = append(chunks, unique[start:end])
	}
	return chunks
}

// FetchInChunks resolves ids through fetch, one call per chunk, with bounded
// concurrency. Results are merged into one map; arrival order does not matter.
// The first failing chunk cancels the rest and its error is returned.
func FetchInChunks[V any](
	ctx context.Context,
	ids []string,
	size int,
	fetch func(ctx context.Context, chunk []string) (map[string]V, error),
) (map[string]V, error) {
	chunks := ChunkIDs(ids, size)
	partials := make([]map[string]V, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInflightChunks)
	for i, chunk := range chunks {
		i, chunk := i, chunk // per-iteration copies; go.mod targets go1.21 loop semantics
		g.Go(func() error {
			part, err := fetch(gctx, chunk)
			if err != nil {
				return fmt.Errorf("lookup chunk %d: %w", i, err)
			}
			partials[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]V, len(ids))
	for _, part := range partials {
		for k, v := range part {
			merged[k] = v
		}
	}
	return merged, nil
}
