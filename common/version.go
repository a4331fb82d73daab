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
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

// set with -ldflags by the mage build
var (
	commitHash string
	buildDate  string
	vendorInfo string
)

const program = "pvdca"

// Version is a SemVer 2.0.0 build version
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Suffix string
}

func (v Version) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Suffix != "" {
		sb.WriteString("-" + v.Suffix)
		if commitHash != "" {
			sb.WriteString("+" + strings.ToLower(commitHash))
		}
	}
	return sb.String()
}

// DependencyList returns the module dependencies compiled into the binary as
// sorted path="version" pairs
func DependencyList() []string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return []string{}
	}

	deps := make([]string, 0, len(bi.Deps))
	for _, dep := range bi.Deps {
		deps = append(deps, fmt.Sprintf("%s=%q", dep.Path, dep.Version))
	}
	sort.Strings(deps)
	return deps
}

// BuildVersionString is printed by `pvdca version`
func BuildVersionString(withDeps bool) string {
	date := buildDate
	if date == "" {
		date = "unknown"
	}
	commit := commitHash
	if commit == "" {
		commit = "unknown"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s v%s %s/%s\n\n", program, CurrentVersion.String(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "Build Date: %s\nCommit: %s\nBuilt with: %s", date, commit, runtime.Version())
	if vendorInfo != "" {
		sb.WriteString("\nVendor Info: " + vendorInfo)
	}

	if withDeps {
		sb.WriteString("\n\nDependencies:\n\n")
		sb.WriteString(strings.Join(DependencyList(), "\n"))
	}

	return sb.String()
}
