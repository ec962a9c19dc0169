// Copyright 2025 The Authentidb Authors. All Rights Reserved.
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

// Command merkleproof is a thin external collaborator (component C11)
// that wires the storage core (C4-C9) together over a throwaway
// in-memory view and formats its results: it never duplicates engine
// logic.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/authentidb/merkledb/path"
	"github.com/authentidb/merkledb/prooflist"
	"github.com/authentidb/merkledb/proofmap"
	"github.com/authentidb/merkledb/store"
)

func readLines(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", file, err)
	}
	defer f.Close()

	var lines []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return lines, nil
}

func buildList(file string) (*prooflist.List, error) {
	lines, err := readLines(file)
	if err != nil {
		return nil, err
	}
	l, err := prooflist.Open(store.NewMemView(), "cli")
	if err != nil {
		return nil, fmt.Errorf("opening list index: %w", err)
	}
	for _, line := range lines {
		l.Append([]byte(line))
	}
	return l, nil
}

func buildMap(file string) (*proofmap.Map, error) {
	lines, err := readLines(file)
	if err != nil {
		return nil, err
	}
	m, err := proofmap.Open(store.NewMemView(), "cli", path.HashedKey{})
	if err != nil {
		return nil, fmt.Errorf("opening map index: %w", err)
	}
	for _, line := range lines {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed key=value line: %q", line)
		}
		m.Put([]byte(k), []byte(v))
	}
	return m, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdListRoot(c *cli.Context) error {
	l, err := buildList(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Printf("object_hash %s\n", l.ObjectHash())
	fmt.Printf("length %d\n", l.Len())
	return nil
}

func cmdListProve(c *cli.Context) error {
	l, err := buildList(c.Args().Get(0))
	if err != nil {
		return err
	}
	index, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
	if err != nil {
		return fmt.Errorf("parsing index: %w", err)
	}
	if index >= l.Len() {
		return fmt.Errorf("index %d out of range, length %d", index, l.Len())
	}
	return printJSON(l.GetProof(index))
}

func cmdMapRoot(c *cli.Context) error {
	m, err := buildMap(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Printf("object_hash %s\n", m.ObjectHash())
	return nil
}

func cmdMapProve(c *cli.Context) error {
	m, err := buildMap(c.Args().Get(0))
	if err != nil {
		return err
	}
	key := c.Args().Get(1)
	if key == "" {
		return fmt.Errorf("missing key argument")
	}
	return printJSON(m.GetProof([]byte(key)))
}

func main() {
	app := &cli.App{
		Name:  "merkleproof",
		Usage: "exercise the ProofList and ProofMap engines over a newline-delimited input file",
		Commands: []*cli.Command{
			{
				Name:      "list-root",
				Usage:     "append each line of FILE as a ProofList value and print its object_hash and length",
				ArgsUsage: "FILE",
				Action:    cmdListRoot,
			},
			{
				Name:      "list-prove",
				Usage:     "print the JSON ListProof for INDEX after appending each line of FILE",
				ArgsUsage: "FILE INDEX",
				Action:    cmdListProve,
			},
			{
				Name:      "map-root",
				Usage:     "put each key=value line of FILE into a ProofMap and print its object_hash",
				ArgsUsage: "FILE",
				Action:    cmdMapRoot,
			},
			{
				Name:      "map-prove",
				Usage:     "print the JSON map proof for KEY after putting each line of FILE",
				ArgsUsage: "FILE KEY",
				Action:    cmdMapProve,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("merkleproof: %v", err)
	}
}
