// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/chaokunyang/slimgraph"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spaolacci/murmur3"
)

// ============================================================================
// Helper functions
// ============================================================================

var dataFileFlag = flag.String("file", "", "stream file (defaults to $DATA_FILE)")

func getDataFile() string {
	if *dataFileFlag != "" {
		return *dataFileFlag
	}
	dataFile := os.Getenv("DATA_FILE")
	if dataFile == "" {
		panic("neither -file nor DATA_FILE is set")
	}
	return dataFile
}

func readFile(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("Failed to read file %s: %v", path, err))
	}
	return data
}

func writeFile(path string, data []byte) {
	err := os.WriteFile(path, data, 0644)
	if err != nil {
		panic(fmt.Sprintf("Failed to write file %s: %v", path, err))
	}
}

func assertEqual(expected, actual interface{}, name string) {
	if !reflect.DeepEqual(expected, actual) {
		panic(fmt.Sprintf("%s: expected %v, got %v", name, expected, actual))
	}
}

func murmurHash3_x64_128(data []byte, seed int64) (uint64, uint64) {
	h := murmur3.New128WithSeed(uint32(seed))
	h.Write(data)
	h1, h2 := h.Sum128()
	return h1, h2
}

// ============================================================================
// Fixture graph
// ============================================================================

type Color int32

const (
	RED   Color = 0
	GREEN Color = 1
	BLUE  Color = 2
)

type Item struct {
	Name   string
	Amount int32
	Price  decimal.Decimal
}

type Node struct {
	ID    uuid.UUID
	Color Color
	Items []*Item
	Next  *Node
	Attrs map[string]any
}

func init() {
	if err := slimgraph.Register[Node](); err != nil {
		panic(err)
	}
}

func fixture() *Node {
	shared := &Item{Name: "shared", Amount: 3, Price: decimal.RequireFromString("19.99")}
	a := &Node{
		ID:    uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Color: GREEN,
		Items: []*Item{shared, {Name: "solo", Amount: -1}},
		Attrs: map[string]any{
			"created": time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),
			"tags":    []string{"a", "b"},
			"weight":  1.5,
		},
	}
	b := &Node{Color: BLUE, Items: []*Item{shared}, Next: a}
	a.Next = b
	return a
}

func codec() *slimgraph.Codec {
	return slimgraph.New(slimgraph.WithCompatTypeNames(*compatFlag))
}

var compatFlag = flag.Bool("compat", true, "write portable module tokens")

// ============================================================================
// Cases
// ============================================================================

func testWriteFixture() {
	data, err := codec().Marshal(fixture())
	if err != nil {
		panic(fmt.Sprintf("Failed to serialize: %v", err))
	}
	writeFile(getDataFile(), data)
	printDigest(data)
}

func testVerifyFixture() {
	data := readFile(getDataFile())
	got, err := slimgraph.Unmarshal[*Node](codec(), data)
	if err != nil {
		panic(fmt.Sprintf("Failed to deserialize: %v", err))
	}
	want := fixture()
	assertEqual(want.ID, got.ID, "id")
	assertEqual(want.Color, got.Color, "color")
	assertEqual(len(want.Items), len(got.Items), "items")
	assertEqual(true, want.Items[0].Price.Equal(got.Items[0].Price), "price")
	assertEqual(want.Attrs["tags"], got.Attrs["tags"], "tags")
	assertEqual(want.Attrs["weight"], got.Attrs["weight"], "weight")
	if got.Next.Next != got {
		panic("cycle: a.next.next is not a")
	}
	if got.Next.Items[0] != got.Items[0] {
		panic("shared item was copied")
	}
	printDigest(data)
}

// testEcho reads every graph in the file and writes them back re-encoded.
func testEcho() {
	dataFile := getDataFile()
	r := bytes.NewReader(readFile(dataFile))
	c := codec()
	var graphs []any
	for r.Len() > 0 {
		obj, err := c.Deserialize(r)
		if err != nil {
			panic(fmt.Sprintf("Failed to deserialize graph %d: %v", len(graphs), err))
		}
		graphs = append(graphs, obj)
	}
	var out bytes.Buffer
	for _, g := range graphs {
		if err := c.Serialize(&out, g); err != nil {
			panic(fmt.Sprintf("Failed to serialize: %v", err))
		}
	}
	writeFile(dataFile, out.Bytes())
	printDigest(out.Bytes())
}

func testDigest() {
	printDigest(readFile(getDataFile()))
}

func printDigest(data []byte) {
	h1, h2 := murmurHash3_x64_128(data, 47)
	fmt.Printf("%d bytes, murmur3 %016x%016x\n", len(data), h1, h2)
}

// ============================================================================
// Main
// ============================================================================

func main() {
	caseName := flag.String("case", "", "case name: write_fixture, verify_fixture, echo, digest")
	flag.Parse()

	if *caseName == "" {
		fmt.Println("Usage: slimgraph-interop -case <case_name> [-file <path>] [-compat=false]")
		os.Exit(1)
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Case %s failed: %v\n", *caseName, r)
			os.Exit(1)
		}
	}()

	switch *caseName {
	case "write_fixture":
		testWriteFixture()
	case "verify_fixture":
		testVerifyFixture()
	case "echo":
		testEcho()
	case "digest":
		testDigest()
	default:
		panic(fmt.Sprintf("Unknown case: %s", *caseName))
	}

	fmt.Printf("Case %s passed\n", *caseName)
}
