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

package cmd

import (
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeConfig(cmd)
	},
}

// secrets never printed by the config command
var redactedKeys = []string{"database.url", "cache.redis_url"}

func writeConfig(cmd *cobra.Command) error {
	settings := viper.AllSettings()
	for _, key := range redactedKeys {
		redact(settings, key)
	}

	enc := toml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndentTables(true)
	return enc.Encode(settings)
}

func redact(settings map[string]interface{}, key string) {
	if !viper.IsSet(key) || viper.GetString(key) == "" {
		return
	}
	section, name := splitKey(key)
	if m, ok := settings[section].(map[string]interface{}); ok {
		m[name] = "<redacted>"
	}
}

func splitKey(key string) (string, string) {
	idx := strings.LastIndex(key, ".")
	if idx == -1 {
		return "", key
	}
	return key[:idx], key[idx+1:]
}
