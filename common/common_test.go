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

package common_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	"github.com/penny-vault/pv-dca/common"
)

var _ = Describe("Common", func() {
	Describe("CacheKey", func() {
		It("is deterministic", func() {
			Expect(common.CacheKey([]byte("a"), []byte("b"))).To(Equal(common.CacheKey([]byte("a"), []byte("b"))))
		})

		It("is a 256-bit hex digest", func() {
			Expect(common.CacheKey([]byte("config"))).To(HaveLen(64))
		})

		It("distinguishes part boundaries", func() {
			Expect(common.CacheKey([]byte("ab"), []byte("c"))).ToNot(Equal(common.CacheKey([]byte("a"), []byte("bc"))))
		})

		It("prefixes each part with its little endian length", func() {
			h := blake3.New()
			_, _ = h.Write([]byte{3, 0, 0, 0, 0, 0, 0, 0})
			_, _ = h.Write([]byte("abc"))
			Expect(common.CacheKey([]byte("abc"))).To(Equal(hex.EncodeToString(h.Sum(nil))))
		})
	})

	Describe("ResultCache", func() {
		var (
			cache *common.ResultCache
			ctx   context.Context
		)

		BeforeEach(func() {
			var err error
			ctx = context.Background()
			cache, err = common.NewResultCache(2, "", 0)
			Expect(err).To(BeNil())
		})

		It("returns stored values", func() {
			payload := []byte(strings.Repeat(`{"startYear":2000}`, 50))
			Expect(cache.Set(ctx, "k1", payload)).To(Succeed())

			val, ok, err := cache.Get(ctx, "k1")
			Expect(err).To(BeNil())
			Expect(ok).To(BeTrue())
			Expect(val).To(Equal(payload))
		})

		It("reports misses", func() {
			val, ok, err := cache.Get(ctx, "missing")
			Expect(err).To(BeNil())
			Expect(ok).To(BeFalse())
			Expect(val).To(BeNil())
		})

		It("evicts the least recently used entry", func() {
			Expect(cache.Set(ctx, "k1", []byte("1"))).To(Succeed())
			Expect(cache.Set(ctx, "k2", []byte("2"))).To(Succeed())
			Expect(cache.Set(ctx, "k3", []byte("3"))).To(Succeed())
			Expect(cache.Len()).To(Equal(2))

			_, ok, _ := cache.Get(ctx, "k1")
			Expect(ok).To(BeFalse())
			_, ok, _ = cache.Get(ctx, "k3")
			Expect(ok).To(BeTrue())
		})

		It("rejects a non-positive size", func() {
			_, err := common.NewResultCache(0, "", 0)
			Expect(err).To(MatchError(common.ErrInvalidCacheSize))
		})

		It("rejects a malformed redis url", func() {
			_, err := common.NewResultCache(1, "not a url", 0)
			Expect(err).ToNot(BeNil())
		})
	})

	Describe("lz4 compression", func() {
		It("round trips", func() {
			in := bytes.Repeat([]byte("dollar cost averaging "), 100)
			compressed, err := common.Compress(in)
			Expect(err).To(BeNil())
			Expect(len(compressed)).To(BeNumerically("<", len(in)))

			out, err := common.Decompress(compressed)
			Expect(err).To(BeNil())
			Expect(out).To(Equal(in))
		})
	})

	DescribeTable("ParseLevel",
		func(name string, expected zerolog.Level) {
			Expect(common.ParseLevel(name)).To(Equal(expected))
		},
		Entry("debug", "debug", zerolog.DebugLevel),
		Entry("upper case", "INFO", zerolog.InfoLevel),
		Entry("warning alias", "warning", zerolog.WarnLevel),
		Entry("error", "error", zerolog.ErrorLevel),
		Entry("unknown falls back to warn", "chatty", zerolog.WarnLevel),
	)

	Describe("Version", func() {
		It("formats release versions", func() {
			Expect(common.Version{Major: 1, Minor: 2, Patch: 3}.String()).To(Equal("1.2.3"))
		})

		It("formats pre-release versions", func() {
			Expect(common.Version{Major: 0, Minor: 3, Patch: 0, Suffix: "dev"}.String()).To(HavePrefix("0.3.0-dev"))
		})

		It("names the program in the build string", func() {
			Expect(common.BuildVersionString(false)).To(HavePrefix("pvdca v"))
			Expect(common.BuildVersionString(false)).ToNot(ContainSubstring("Dependencies"))
		})
	})
})
