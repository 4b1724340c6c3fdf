// Command zspyinfo dumps the tree of a zspy store: groups, arrays with
// their shape/dtype/chunking, and attribute documents.
//
// Usage:
//
//	zspyinfo <store-path>
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/scisig/zspy/store"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: zspyinfo <store-path>")
		os.Exit(2)
	}

	st, err := store.Open(os.Args[1], true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zspyinfo: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := dumpGroup(st.Root(), 0); err != nil {
		fmt.Fprintf(os.Stderr, "zspyinfo: %v\n", err)
		os.Exit(1)
	}
}

func dumpGroup(g *store.Group, depth int) error {
	indent := strings.Repeat("  ", depth)
	fmt.Printf("%s%s/\n", indent, g.Name())

	if err := dumpAttrs(g.Attrs, depth+1); err != nil {
		return err
	}

	arrays, err := g.Arrays()
	if err != nil {
		return err
	}
	sort.Strings(arrays)
	for _, name := range arrays {
		arr, err := g.OpenArray(name)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s: shape=%v chunks=%v dtype=%s compressor=%s\n",
			indent, name, arr.Shape(), arr.Chunks(), arr.DType(), arr.Compression())
		if err := dumpAttrs(arr.Attrs, depth+2); err != nil {
			return err
		}
	}

	groups, err := g.Groups()
	if err != nil {
		return err
	}
	sort.Strings(groups)
	for _, name := range groups {
		child, err := g.OpenGroup(name)
		if err != nil {
			return err
		}
		if err := dumpGroup(child, depth+1); err != nil {
			return err
		}
	}

	return nil
}

func dumpAttrs(load func() (map[string]any, error), depth int) error {
	attrs, err := load()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	indent := strings.Repeat("  ", depth)
	for _, k := range keys {
		fmt.Printf("%s@%s = %v\n", indent, k, attrs[k])
	}

	return nil
}
