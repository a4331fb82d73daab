// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/zeebo/blake3"
)

const DefaultLocalCacheSize = 32

var ErrInvalidCacheSize = errors.New("cache size must be positive")

// ResultCache stores compressed run documents in a process local LRU with an
// optional redis tier shared between instances
type ResultCache struct {
	local *lru.Cache
	rdb   *redis.Client
	ttl   time.Duration
}

// CacheKey digests parts into a hex encoded blake3 hash. Each part is length
// prefixed so ("ab", "c") and ("a", "bc") produce different keys.
func CacheKey(parts ...[]byte) string {
	h := blake3.New()
	var size [8]byte
	for _, part := range parts {
		binary.LittleEndian.PutUint64(size[:], uint64(len(part)))
		_, _ = h.Write(size[:])
		_, _ = h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewResultCache creates a cache holding up to size entries locally. When
// redisURL is non-empty entries are also written to redis with the given ttl.
func NewResultCache(size int, redisURL string, ttl time.Duration) (*ResultCache, error) {
	if size <= 0 {
		return nil, ErrInvalidCacheSize
	}

	local, err := lru.New(size)
	if err != nil {
		log.Error().Err(err).Msg("could not create LRU cache")
		return nil, err
	}

	c := &ResultCache{
		local: local,
		ttl:   ttl,
	}

	if redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Error().Err(err).Msg("could not parse redis URL")
			return nil, err
		}
		c.rdb = redis.NewClient(opt)
	}

	return c, nil
}

// NewResultCacheFromConfig builds a cache from the cache.* settings
func NewResultCacheFromConfig() (*ResultCache, error) {
	size := viper.GetInt("cache.local_size")
	if size == 0 {
		size = DefaultLocalCacheSize
	}
	redisURL := ""
	if viper.GetBool("cache.redis") {
		redisURL = viper.GetString("cache.redis_url")
	}
	return NewResultCache(size, redisURL, time.Duration(viper.GetInt("cache.ttl"))*time.Second)
}

// Set stores value under key
func (c *ResultCache) Set(ctx context.Context, key string, value []byte) error {
	compressed, err := Compress(value)
	if err != nil {
		return err
	}
	c.local.Add(key, compressed)

	if c.rdb != nil {
		return c.rdb.Set(ctx, key, compressed, c.ttl).Err()
	}
	return nil
}

// Get returns the value stored under key. The second return value reports
// whether the key was found in either tier.
func (c *ResultCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if val, ok := c.local.Get(key); ok {
		out, err := Decompress(val.([]byte))
		return out, err == nil, err
	}

	if c.rdb == nil {
		return nil, false, nil
	}

	val, err := c.rdb.GetEx(ctx, key, c.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("Key", key).Msg("redis lookup failed")
		return nil, false, err
	}

	// promote into the local tier
	c.local.Add(key, val)

	out, err := Decompress(val)
	return out, err == nil, err
}

// Len returns the number of locally cached entries
func (c *ResultCache) Len() int {
	return c.local.Len()
}

// Close releases the redis connection, if any
func (c *ResultCache) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}
