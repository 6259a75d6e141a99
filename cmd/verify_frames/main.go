// verify_frames checks that a persisted frame sequence is complete: every id
// from 0 to the last one present, zero-padded to one width, same image size.
// Usage: go run ./cmd/verify_frames <output-folder> <series-name>
package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run ./cmd/verify_frames <output-folder> <series-name>")
		os.Exit(1)
	}
	dir, series := os.Args[1], os.Args[2]

	start := time.Now()
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	re := regexp.MustCompile(`^` + regexp.QuoteMeta(series) + `(\d{3,})\.png$`)
	var ids []int
	widths := map[int]int{}
	for _, e := range entries {
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ids = append(ids, id)
		widths[len(m[1])]++
	}
	sort.Ints(ids)

	if len(ids) == 0 {
		fmt.Printf("No frames for series %q in %s\n", series, dir)
		os.Exit(1)
	}

	failed := false
	if len(widths) > 1 {
		fmt.Printf("✗ mixed id widths: %v\n", widths)
		failed = true
	}
	for i, id := range ids {
		if id != i {
			fmt.Printf("✗ gap: expected frame %d, found %d\n", i, id)
			failed = true
			break
		}
	}

	var bounds image.Rectangle
	for _, id := range ids {
		name := fmt.Sprintf("%s%0*d.png", series, digitsOf(widths), id)
		img, err := imaging.Open(filepath.Join(dir, name))
		if err != nil {
			fmt.Printf("✗ frame %d unreadable: %v\n", id, err)
			failed = true
			continue
		}
		if bounds.Empty() {
			bounds = img.Bounds()
		} else if img.Bounds() != bounds {
			fmt.Printf("✗ frame %d is %v, first frame is %v\n", id, img.Bounds(), bounds)
			failed = true
		}
	}

	fmt.Printf("Checked %d frames (%dx%d) in %v\n", len(ids), bounds.Dx(), bounds.Dy(), time.Since(start))
	if failed {
		fmt.Println("✗ FAIL")
		os.Exit(1)
	}
	fmt.Println("✓ PASS")
}

// digitsOf returns the most common id width.
func digitsOf(widths map[int]int) int {
	best, n := 0, -1
	for w, c := range widths {
		if c > n {
			best, n = w, c
		}
	}
	return best
}
