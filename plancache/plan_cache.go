package plancache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"mazeworld/geometry"
)

// Cache 按输入摘要缓存推导结果；推导是纯函数，相同输入必得相同计划
type Cache struct {
	c *ristretto.Cache[string, *geometry.Plan]
}

// New maxDirectives 为缓存总成本上限（按指令条数计）
func New(maxDirectives int64) (*Cache, error) {
	if maxDirectives <= 0 {
		maxDirectives = 1 << 20
	}
	c, err := ristretto.NewCache[string, *geometry.Plan](&ristretto.Config[string, *geometry.Plan]{
		NumCounters: 10000,
		MaxCost:     maxDirectives,
		BufferItems: 64,
		// 成本按指令条数计，不叠加内部元数据开销
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create plan cache: %w", err)
	}
	return &Cache{c: c}, nil
}

// Key 输入的 SHA-256 摘要
func Key(w *geometry.World) (string, error) {
	b, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("encode world: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Compile 命中则直接返回缓存的计划，否则推导并写入；hit 表示是否命中
func (c *Cache) Compile(w *geometry.World) (plan *geometry.Plan, hit bool, err error) {
	key, err := Key(w)
	if err != nil {
		return nil, false, err
	}
	if p, ok := c.c.Get(key); ok {
		return p, true, nil
	}
	plan, err = geometry.Compile(w.Tiles, w.Obstacles)
	if err != nil {
		return nil, false, err
	}
	cost := int64(len(plan.Directives))
	if cost == 0 {
		cost = 1
	}
	c.c.Set(key, plan, cost)
	c.c.Wait()
	return plan, false, nil
}

func (c *Cache) Close() {
	c.c.Close()
}
