//go:build mage

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

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "pvdca"
	modulePath = "github.com/penny-vault/pv-dca"
	coverFile  = "coverage.out"
)

var ldflags = "-X " + modulePath + "/common.commitHash=$COMMIT_HASH -X " + modulePath + "/common.buildDate=$BUILD_DATE"

// allow user to override go executable by running as GOEXE=xxx mage ...
var goexe = "go"

func init() {
	if exe := os.Getenv("GOEXE"); exe != "" {
		goexe = exe
	}
}

// Build the pvdca binary stamped with the commit hash and build date
func Build() error {
	fmt.Println("Building...")
	return sh.RunWith(versionEnv(), goexe, goArgs("build", "-o", binaryName, "-ldflags", ldflags, ".")...)
}

// Install pvdca into GOBIN
func Install() error {
	return sh.RunWith(versionEnv(), goexe, goArgs("install", "-ldflags", ldflags, ".")...)
}

// Clean removes the binary, reports and coverage output
func Clean() {
	fmt.Println("Cleaning...")
	for _, fn := range []string{binaryName, "output", coverFile} {
		os.RemoveAll(fn)
	}
}

// Download CPI from FRED into data/cpi_data.csv
func FetchCpi() error {
	mg.Deps(Build)
	return sh.RunV("./"+binaryName, "fetch", "cpi", "--output", filepath.Join("data", "cpi_data.csv"))
}

// Run the cohort backtest with the configured defaults and write reports to output/
func Simulate() error {
	mg.Deps(Build)
	return sh.RunV("./"+binaryName, "run", "--output-dir", "output", "--chart")
}

// Check runs the formatters, vet and the race enabled test suite
func Check() {
	mg.SerialDeps(Fmt, Vet, TestRace)
}

// Run tests
func Test() error {
	fmt.Println("Go Test")
	return runQuiet(goexe, goArgs("test", "./...")...)
}

// Run tests with race detector
func TestRace() error {
	fmt.Println("Go Test Race")
	return runQuiet(goexe, goArgs("test", "-race", "./...")...)
}

// Cover writes a coverage profile for every package and opens it as HTML
func Cover() error {
	if err := runQuiet(goexe, goArgs("test", "-covermode=count", "-coverprofile="+coverFile, "./...")...); err != nil {
		return err
	}
	return sh.Run(goexe, "tool", "cover", "-html="+coverFile)
}

// Fmt fails when any package directory holds files gofmt would change
func Fmt() error {
	fmt.Println("Go Format")

	dirs, err := sh.Output(goexe, "list", "-f", "{{.Dir}}", "./...")
	if err != nil {
		return err
	}

	args := append([]string{"-l"}, strings.Fields(dirs)...)
	out, err := sh.Output("gofmt", args...)
	if err != nil {
		return fmt.Errorf("running gofmt: %w", err)
	}
	if out != "" {
		fmt.Println("The following files are not gofmt'ed:")
		fmt.Println(out)
		return errors.New("improperly formatted go files")
	}
	return nil
}

// Run go vet
func Vet() error {
	fmt.Println("Go Vet")
	if err := sh.Run(goexe, "vet", "./..."); err != nil {
		return fmt.Errorf("error running go vet: %w", err)
	}
	return nil
}

// goArgs appends the platform build mode and any PVDCA_BUILD_TAGS to a go subcommand
func goArgs(subcommand string, args ...string) []string {
	out := []string{subcommand}
	if runtime.GOOS == "windows" {
		out = append(out, "-buildmode", "exe")
	}
	if tags := os.Getenv("PVDCA_BUILD_TAGS"); tags != "" {
		out = append(out, "-tags", tags)
	}
	return append(out, args...)
}

func versionEnv() map[string]string {
	hash, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	return map[string]string{
		"COMMIT_HASH": hash,
		"BUILD_DATE":  time.Now().Format("2006-01-02T15:04:05Z0700"),
	}
}

// runQuiet only prints the command output when it fails, unless mage -v
func runQuiet(cmd string, args ...string) error {
	if mg.Verbose() {
		return sh.RunV(cmd, args...)
	}
	out, err := sh.Output(cmd, args...)
	if err != nil {
		fmt.Fprint(os.Stderr, out)
	}
	return err
}
