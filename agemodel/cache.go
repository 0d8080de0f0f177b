package agemodel

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/amazon-ion/ion-go/ion"
	"go.uber.org/zap"
)

// Cache keeps fitted models on disk so reruns over the same corpus skip the
// expensive sampling. Entries are keyed by a content hash of the sampler
// input, any change to the chronology produces a fresh fit.
type Cache struct {
	dir string
	log *zap.Logger
}

// NewCache opens the cache under dir, creating it when missing.
func NewCache(dir string, log *zap.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating age model cache: %w", err)
	}
	return &Cache{dir: dir, log: log}, nil
}

// Key derives the cache key for an input/draws pair.
func (c *Cache) Key(in *Input, draws int) string {
	h := sha256.New()
	put := func(v float64) {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	for i := range in.Points {
		p := &in.Points[i]
		h.Write([]byte(p.Labcode))
		put(p.Depth)
		put(p.Age)
		put(p.Error)
		put(p.DeltaR)
		put(p.DeltaRError)
		put(float64(p.Curve))
	}
	put(in.DepthMin)
	put(in.DepthMax)
	put(in.MinYear)
	put(in.MaxYear)
	put(float64(draws))
	return hex.EncodeToString(h.Sum(nil))[:24]
}

type cacheEntry struct {
	Depths   []float64   `ion:"depths"`
	Ensemble [][]float64 `ion:"ensemble"`
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".ion")
}

// Load returns the cached result for key, ok false on a miss. A corrupt
// entry counts as a miss and is logged, never fatal.
func (c *Cache) Load(key string) (*Result, bool) {
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var ent cacheEntry
	if err := ion.Unmarshal(raw, &ent); err != nil {
		c.log.Warn("Discarding corrupt age model cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	c.log.Debug("Age model cache hit", zap.String("key", key))
	return &Result{Depths: ent.Depths, Ensemble: ent.Ensemble}, true
}

// Store writes the result under key.
func (c *Cache) Store(key string, res *Result) error {
	raw, err := ion.MarshalBinary(cacheEntry{Depths: res.Depths, Ensemble: res.Ensemble})
	if err != nil {
		return fmt.Errorf("encoding age model: %w", err)
	}
	if err := os.WriteFile(c.path(key), raw, 0600); err != nil {
		return fmt.Errorf("storing age model: %w", err)
	}
	return nil
}

// Fit runs the sampler through the cache.
func (c *Cache) Fit(ctx context.Context, s Sampler, in *Input, draws int) (*Result, error) {
	key := c.Key(in, draws)
	if res, ok := c.Load(key); ok {
		return res, nil
	}
	res, err := s.Sample(ctx, in, draws)
	if err != nil {
		return nil, err
	}
	if err := c.Store(key, res); err != nil {
		return nil, err
	}
	return res, nil
}
