package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"dailyowo/internal/core"
)

// SnapshotCache memoizes budget snapshots. The key is a content hash of
// everything the snapshot is derived from, so a hit is always equal to a
// fresh computation and no explicit invalidation is needed.
type SnapshotCache struct {
	lru *LRUCache[core.BudgetData]
}

var _ Cache[core.BudgetData] = (*SnapshotCache)(nil)

func NewSnapshotCache(maxSize int, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{lru: NewLRUCache[core.BudgetData](maxSize, ttl)}
}

type snapshotInput struct {
	Budget       *core.Budget       `json:"budget"`
	Transactions []core.Transaction `json:"transactions"`
	AsOf         time.Time          `json:"asOf"`
}

// SnapshotKey hashes the snapshot inputs.
func SnapshotKey(b *core.Budget, txs []core.Transaction, asOf time.Time) (string, error) {
	raw, err := json.Marshal(snapshotInput{Budget: b, Transactions: txs, AsOf: asOf.UTC()})
	if err != nil {
		return "", fmt.Errorf("encode snapshot key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Get returns a copy of the cached snapshot so callers cannot mutate the
// shared entry.
func (c *SnapshotCache) Get(key string) (core.BudgetData, bool) {
	data, ok := c.lru.Get(key)
	if !ok {
		return core.BudgetData{}, false
	}
	return cloneSnapshot(data), true
}

func (c *SnapshotCache) Set(key string, data core.BudgetData) {
	c.lru.Set(key, cloneSnapshot(data))
}

func (c *SnapshotCache) Delete(key string) { c.lru.Delete(key) }
func (c *SnapshotCache) CleanExpired() int { return c.lru.CleanExpired() }
func (c *SnapshotCache) Size() int         { return c.lru.Size() }
func (c *SnapshotCache) Stats() Stats      { return c.lru.Stats() }

func cloneSnapshot(d core.BudgetData) core.BudgetData {
	out := d
	out.Health.Suggestions = cloneSlice(d.Health.Suggestions)
	out.Performance = cloneSlice(d.Performance)
	out.Alerts = cloneSlice(d.Alerts)
	out.Categories = cloneSlice(d.Categories)
	for i := range out.Categories {
		out.Categories[i].TransactionCategories = cloneSlice(out.Categories[i].TransactionCategories)
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
