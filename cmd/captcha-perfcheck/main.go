// Command captcha-perfcheck compares two `go test -bench` outputs and fails
// when a tracked engine benchmark got slower than the allowed ratio.
//
//	go test -run '^$' -bench . -count 5 . > new.txt
//	captcha-perfcheck -baseline old.txt -candidate new.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const defaultThreshold = 0.30

var trackedBenchmarks = map[string][]string{
	"BenchmarkIssueChallenge":   {"ns/op", "allocs/op"},
	"BenchmarkVerifyAnswer":     {"ns/op", "allocs/op"},
	"BenchmarkVerifyCredential": {"ns/op"},
}

// samples holds every value seen per benchmark and unit.
type samples map[string]map[string][]float64

type comparison struct {
	Benchmark string
	Unit      string
	Baseline  float64
	Candidate float64
}

func (c comparison) delta() float64 {
	return (c.Candidate - c.Baseline) / c.Baseline
}

func main() {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
	)
	flag.StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	flag.StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	flag.Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed slowdown (0.30 = +30%)")
	flag.Parse()

	if baselinePath == "" || candidatePath == "" || threshold < 0 {
		fmt.Fprintln(os.Stderr, "-baseline and -candidate are required and -threshold must be >= 0")
		os.Exit(2)
	}

	baseline, err := parseFile(baselinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse baseline: %v\n", err)
		os.Exit(1)
	}
	candidate, err := parseFile(candidatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse candidate: %v\n", err)
		os.Exit(1)
	}

	rows, failures := compare(baseline, candidate, threshold)
	fmt.Println("benchmark unit baseline candidate delta")
	for _, r := range rows {
		fmt.Printf("%s %s %.1f %.1f %+0.2f%%\n", r.Benchmark, r.Unit, r.Baseline, r.Candidate, r.delta()*100)
	}
	if len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "performance regression threshold exceeded:")
		for _, f := range failures {
			fmt.Fprintf(os.Stderr, "  - %s\n", f)
		}
		os.Exit(1)
	}
}

// compare takes the median of every tracked benchmark and unit. Missing
// samples count as failures.
func compare(baseline, candidate samples, threshold float64) ([]comparison, []string) {
	names := make([]string, 0, len(trackedBenchmarks))
	for name := range trackedBenchmarks {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		rows     []comparison
		failures []string
	)
	for _, name := range names {
		for _, unit := range trackedBenchmarks[name] {
			base, cand := baseline[name][unit], candidate[name][unit]
			if len(base) == 0 || len(cand) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", name, unit))
				continue
			}
			c := comparison{Benchmark: name, Unit: unit, Baseline: median(base), Candidate: median(cand)}
			if c.Baseline <= 0 {
				// 0 allocs/op stays fine as long as the candidate is 0 too.
				if c.Candidate > 0 {
					failures = append(failures, fmt.Sprintf("%s %s went from 0 to %.1f", name, unit, c.Candidate))
				}
				continue
			}
			rows = append(rows, c)
			if d := c.delta(); d > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", name, unit, d*100, threshold*100))
			}
		}
	}
	return rows, failures
}

func parseFile(path string) (samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

// parse reads lines such as
//
//	BenchmarkVerifyAnswer-8   120000   9500 ns/op   2100 B/op   31 allocs/op
func parse(r io.Reader) (samples, error) {
	out := samples{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || !strings.HasPrefix(fields[0], "Benchmark") {
			continue
		}
		name := trimProcs(fields[0])
		if _, ok := trackedBenchmarks[name]; !ok {
			continue
		}
		if out[name] == nil {
			out[name] = map[string][]float64{}
		}
		for i := 2; i+1 < len(fields); i += 2 {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			out[name][fields[i+1]] = append(out[name][fields[i+1]], v)
		}
	}
	return out, scanner.Err()
}

// trimProcs drops the GOMAXPROCS suffix go test appends.
func trimProcs(raw string) string {
	if i := strings.LastIndexByte(raw, '-'); i > 0 {
		if _, err := strconv.Atoi(raw[i+1:]); err == nil {
			return raw[:i]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
