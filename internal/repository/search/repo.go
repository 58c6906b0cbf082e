// Package search adapts Redis FT.SEARCH as the pipeline's external
// vector and text ranking sources. The nearest-neighbor search itself
// runs inside the backend; this adapter only asks for ranked lists.
package search

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/fusegate/fusegate/internal/domain"
	"github.com/fusegate/fusegate/internal/domain/search/result"
)

// Config holds connection parameters for the search backend.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	KeyPrefix string
}

// Repo implements the vector and text searcher contracts via rueidis.
type Repo struct {
	client rueidis.Client
	prefix string
}

// New connects to the search backend.
func New(cfg Config) (*Repo, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "fusegate:"
	}
	return &Repo{client: client, prefix: prefix}, nil
}

// Ping checks connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	cmd := r.client.B().Ping().Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the backend responds or timeout expires.
func (r *Repo) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for search backend: %w", ctx.Err())
		case <-ticker.C:
			if err := r.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close shuts down the client.
func (r *Repo) Close() {
	r.client.Close()
}

// SearchVectors runs a KNN similarity query and returns the ranked list.
func (r *Repo) SearchVectors(
	ctx context.Context, datasetID string, vector []float32, candidates int,
) (result.List, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if candidates <= 0 {
		return nil, fmt.Errorf("candidates must be positive")
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @vector $BLOB]", candidates)
	cmd := r.client.B().Arbitrary("FT.SEARCH").Args(
		r.indexName(datasetID), queryStr,
		"RETURN", "1", "__vector_score",
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"DIALECT", "2",
	).Build()

	raw, err := r.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, r.mapErr("search vectors", datasetID, err)
	}
	return r.parseKNN(raw, datasetID)
}

// SearchText runs a BM25 relevance query and returns the ranked list.
func (r *Repo) SearchText(
	ctx context.Context, datasetID, query string, candidates int,
) (result.List, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if candidates <= 0 {
		return nil, fmt.Errorf("candidates must be positive")
	}

	queryStr := fmt.Sprintf("@__content:(%s)", escapeQuery(query))
	cmd := r.client.B().Arbitrary("FT.SEARCH").Args(
		r.indexName(datasetID), queryStr,
		"WITHSCORES",
		"NOCONTENT",
		"LIMIT", "0", strconv.Itoa(candidates),
		"DIALECT", "2",
	).Build()

	raw, err := r.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, r.mapErr("search text", datasetID, err)
	}
	return r.parseBM25(raw, datasetID)
}

func (r *Repo) indexName(datasetID string) string {
	return fmt.Sprintf("%s%s:idx", r.prefix, datasetID)
}

// parseKNN walks the 2-stride RESP2 reply: [total, key1, fields1, ...].
// Distance is converted to similarity so higher is better.
func (r *Repo) parseKNN(raw []rueidis.RedisMessage, datasetID string) (result.List, error) {
	total, err := parseTotal(raw)
	if err != nil || total == 0 {
		return nil, err
	}

	prefix := fmt.Sprintf("%s%s:", r.prefix, datasetID)
	list := make(result.List, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		score := 0.0
		for j := 0; j+1 < len(fields); j += 2 {
			if name, _ := fields[j].ToString(); name == "__vector_score" {
				if value, err := fields[j+1].ToString(); err == nil {
					if dist, err := strconv.ParseFloat(value, 64); err == nil {
						score = max(0, 1.0-dist) // cosine distance → similarity
					}
				}
			}
		}
		list = append(list, result.New(strings.TrimPrefix(key, prefix), score))
	}
	return list, nil
}

// parseBM25 walks the 2-stride WITHSCORES NOCONTENT reply:
// [total, key1, score1, key2, score2, ...].
func (r *Repo) parseBM25(raw []rueidis.RedisMessage, datasetID string) (result.List, error) {
	total, err := parseTotal(raw)
	if err != nil || total == 0 {
		return nil, err
	}

	prefix := fmt.Sprintf("%s%s:", r.prefix, datasetID)
	list := make(result.List, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}
		list = append(list, result.New(strings.TrimPrefix(key, prefix), score))
	}
	return list, nil
}

func parseTotal(raw []rueidis.RedisMessage) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse total: %w", err)
	}
	return int(total), nil
}

// mapErr translates backend failures onto the domain taxonomy:
// a missing index means the dataset does not exist.
func (r *Repo) mapErr(op, datasetID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", op, datasetID, err)
	}
	if re, ok := rueidis.IsRedisErr(err); ok {
		msg := strings.ToLower(re.Error())
		if strings.Contains(msg, "no such index") || strings.Contains(msg, "unknown index") {
			return fmt.Errorf("%s %s: %w", op, datasetID, domain.ErrNotFound)
		}
	}
	return fmt.Errorf("%s %s: %w", op, datasetID, err)
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return rueidis.BinaryString(buf)
}

// escapeQuery escapes RediSearch special characters in user query text.
func escapeQuery(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	for _, c := range q {
		if strings.ContainsRune(`,.<>{}[]"':;!@#$%^&*()-+=~|/\`, c) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(c)
	}
	return strings.TrimSpace(b.String())
}
