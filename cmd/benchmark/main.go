package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"songrec/config"
	"songrec/internal/adapter/store"
	"songrec/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding .songrec/songrec.db")
	every := flag.Int("every", 100, "Replay every Nth row as a query")
	topK := flag.Int("k", 0, "Number of neighbors (0 = index default)")
	flag.Parse()

	if *every <= 0 {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir . -every 100 -k 15")
		fmt.Println("\nTests:")
		fmt.Println("  1. Query latency over stored rows")
		fmt.Println("  2. Reflexivity (each row finds itself at distance 0)")
		os.Exit(1)
	}

	st, err := store.OpenReadOnly(config.StoreDBPath(*dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	idx, err := usecase.LoadIndex(st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading index: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("SIMILARITY INDEX BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Rows indexed: %d\n", idx.Len())
	fmt.Printf("Dimension:    %d\n", idx.Dim())
	fmt.Printf("Default k:    %d\n", idx.KDefault())
	fmt.Println()

	var (
		latencies  []time.Duration
		reflexive  int
		zeroRows   int
		queries    int
		firstWrong []int
	)

	for row := 0; row < idx.Len(); row += *every {
		v := idx.Row(row)

		start := time.Now()
		results, err := idx.Query(v, *topK)
		latencies = append(latencies, time.Since(start))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query error on row %d: %v\n", row, err)
			os.Exit(1)
		}
		queries++

		if isZero(v) {
			zeroRows++
			continue
		}

		found := false
		for _, r := range results {
			if r.Row == row && r.Distance == 0 {
				found = true
				break
			}
		}
		if found {
			reflexive++
		} else if len(firstWrong) < 5 {
			firstWrong = append(firstWrong, row)
		}
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var total time.Duration
	for _, l := range latencies {
		total += l
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("LATENCY (%d queries):\n", queries)
	if queries > 0 {
		fmt.Printf("  Average: %s\n", total/time.Duration(queries))
		fmt.Printf("  p50:     %s\n", percentile(latencies, 0.50))
		fmt.Printf("  p95:     %s\n", percentile(latencies, 0.95))
		fmt.Printf("  Max:     %s\n", latencies[len(latencies)-1])
	}

	checked := queries - zeroRows
	fmt.Printf("\nREFLEXIVITY:\n")
	fmt.Printf("  Rows found at distance 0: %d/%d\n", reflexive, checked)
	if zeroRows > 0 {
		fmt.Printf("  Zero vectors skipped:     %d\n", zeroRows)
	}
	if len(firstWrong) > 0 {
		fmt.Printf("  Not reflexive (first %d): %v\n", len(firstWrong), firstWrong)
		fmt.Println("  Status: POOR - duplicate rows beyond k or a corrupt index")
	} else {
		fmt.Println("  Status: GOOD - every sampled row finds itself")
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := int(float64(len(sorted)-1) * p)
	return sorted[i]
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
