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

package handler

import (
	"context"
	"errors"
	"sync"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pv-dca/common"
	"github.com/penny-vault/pv-dca/report"
	"github.com/rs/zerolog/log"
)

var ErrNotReady = errors.New("no results have been published yet")

// Results holds the most recently published run document. Documents are kept
// in the result cache under their cache key so instances sharing a redis tier
// can serve each other's runs.
type Results struct {
	cache *common.ResultCache

	mu  sync.RWMutex
	key string
}

func NewResults(cache *common.ResultCache) *Results {
	return &Results{cache: cache}
}

// Publish stores doc under key and makes it the current document
func (r *Results) Publish(ctx context.Context, key string, doc *report.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := r.cache.Set(ctx, key, payload); err != nil {
		log.Warn().Err(err).Str("Key", key).Msg("could not cache document")
		return err
	}

	r.mu.Lock()
	r.key = key
	r.mu.Unlock()

	log.Info().Str("Key", key).Str("RunID", doc.RunID).Msg("published results")
	return nil
}

// Lookup makes the document cached under key current, returning false if it
// is not cached
func (r *Results) Lookup(ctx context.Context, key string) (bool, error) {
	_, ok, err := r.cache.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}

	r.mu.Lock()
	r.key = key
	r.mu.Unlock()
	return true, nil
}

// Current returns the current document
func (r *Results) Current(ctx context.Context) (*report.Document, error) {
	r.mu.RLock()
	key := r.key
	r.mu.RUnlock()

	if key == "" {
		return nil, ErrNotReady
	}

	payload, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotReady
	}

	return report.ReadDocumentJSON(payload)
}
