package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/limaJavier/dccheck/pkg/milp"
	"github.com/limaJavier/dccheck/pkg/stnu"

	log "github.com/golang/glog"
	"github.com/samber/lo"
)

const (
	executablePath    = "../../bin/dccheck"
	networksDirectory = "../../testdata/networks/"
	timeLimit         = "60s"
)

const MB float32 = 1024

type ResultType int

const (
	controllable ResultType = iota
	notControllable
	timeout
	failure
)

var resultTypes = map[ResultType]string{
	controllable:    "dc",
	notControllable: "not-dc",
	timeout:         "timeout",
	failure:         "failure",
}

type TestMetadata struct {
	Name         string
	Controllable bool
	Events       int
	Constraints  int
	Contingents  int
}

type BenchmarkResult struct {
	Solver        string
	Test          TestMetadata
	Duration      int64
	Memory        float32
	CpuPercentage int64
	Result        ResultType
}

func main() {
	tests := getTests()
	solvers := getSolvers()
	results := make([]BenchmarkResult, 0, len(tests)*len(solvers))

	for _, test := range tests {
		for _, solver := range solvers {
			fmt.Printf("Benchmarking network \"%v\" with solver \"%v\"\n", test.Name, solver)

			duration, maxMemory, cpuPercentage, result := measure(solver, test.Name)
			if result == failure || (result != timeout && (result == controllable) != test.Controllable) {
				log.Errorf("solver %v gave %v on %v", solver, resultTypes[result], test.Name)
			}

			results = append(results, BenchmarkResult{
				Solver:        solver,
				Test:          test,
				Duration:      duration,
				Memory:        maxMemory,
				CpuPercentage: cpuPercentage,
				Result:        result,
			})
		}
	}

	toCsv(results)
}

func getTests() []TestMetadata {
	files, err := os.ReadDir(networksDirectory)
	if err != nil {
		log.Fatalf("cannot read directory: %v", err)
	}

	tests := make([]TestMetadata, 0, len(files))
	for _, file := range files {
		filename := filepath.Join(networksDirectory, file.Name())
		raw, err := stnu.RawFromFile(filename)
		if err != nil {
			log.Fatalf("cannot parse network file: %v", err)
		}
		network, err := stnu.ProcessRawNetwork(raw)
		if err != nil {
			log.Fatalf("invalid network file: %v", err)
		} else if raw.Controllable == nil {
			log.Fatalf("network file %v does not state its expected verdict", filename)
		}

		tests = append(tests, TestMetadata{
			Name:         filename,
			Controllable: *raw.Controllable,
			Events:       len(network.Events()),
			Constraints:  len(network.Constraints()),
			Contingents:  len(network.Contingents()),
		})
	}
	return tests
}

// getSolvers returns the backends whose executable can be found on PATH
func getSolvers() []string {
	executables := map[string]string{"highs": "highs", "cbc": "cbc", "glpk": "glpsol", "gurobi": "gurobi_cl"}
	return lo.Filter(milp.Solvers(), func(solver string, _ int) bool {
		_, err := exec.LookPath(executables[solver])
		if err != nil {
			log.Warningf("skipping %v: %v", solver, err)
		}
		return err == nil
	})
}

func measure(solver string, testFile string) (duration int64, maxMemory float32, cpuPercentage int64, result ResultType) {
	cmd := exec.Command("/usr/bin/time", "-v", executablePath, "check", "-solver", solver, "-timeout", timeLimit, "-nocolor", testFile)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	cmd.Run()
	switch cmd.ProcessState.ExitCode() {
	case 10:
		result = controllable
	case 20:
		result = notControllable
	case 30:
		result = timeout
	default:
		log.Errorf("an error occurred during the execution of \"dccheck\" on \"%v\" using solver \"%v\": %v", testFile, solver, stdErr.String())
		result = failure
	}

	splits := strings.Split(stdErr.String(), "\n")
	getLine := func(substr string) string {
		line, ok := lo.Find(splits, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
		if !ok {
			log.Fatalf("Substring \"%v\" could not be found", substr)
		}
		return line
	}

	duration = parseDurationLine(getLine("wall clock"))
	maxMemory = parseMemoryLine(getLine("maximum resident set size"))
	cpuPercentage = parseCpuPercentageLine(getLine("percent of cpu"))

	return duration, maxMemory, cpuPercentage, result
}

func toCsv(results []BenchmarkResult) {
	file, err := os.Create("benchmark_results.csv")
	if err != nil {
		log.Fatalf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Solver", "Network", "Controllable", "Events", "Constraints", "Contingents", "Duration(ms)", "Memory(MB)", "CPU(%)", "Result"}
	if err := writer.Write(header); err != nil {
		log.Fatalf("cannot write CSV header: %v", err)
	}

	for _, result := range results {
		record := []string{
			result.Solver,
			result.Test.Name,
			fmt.Sprintf("%v", result.Test.Controllable),
			fmt.Sprintf("%d", result.Test.Events),
			fmt.Sprintf("%d", result.Test.Constraints),
			fmt.Sprintf("%d", result.Test.Contingents),
			fmt.Sprintf("%d", result.Duration),
			fmt.Sprintf("%.1f", result.Memory),
			fmt.Sprintf("%d", result.CpuPercentage),
			resultTypes[result.Result],
		}
		if err := writer.Write(record); err != nil {
			log.Fatalf("cannot write CSV record: %v", err)
		}
	}
}

func parseDurationLine(line string) int64 {
	_, durationStr, _ := strings.Cut(line, "(h:mm:ss or m:ss): ")
	return parseDuration(strings.TrimSpace(durationStr))
}

// parseDuration converts the elapsed time printed by GNU time (h:mm:ss.cc or m:ss.cc) into milliseconds
func parseDuration(durationStr string) int64 {
	parts := strings.Split(durationStr, ":")
	secondsParts := strings.Split(parts[len(parts)-1], ".")
	if len(secondsParts) != 2 {
		log.Fatalf("unexpected duration format: %v", durationStr)
	}
	seconds := lo.Must(strconv.Atoi(secondsParts[0]))
	hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))

	var minutes, hours int
	switch len(parts) {
	case 3: // h:mm:ss
		hours = lo.Must(strconv.Atoi(parts[0]))
		minutes = lo.Must(strconv.Atoi(parts[1]))
	case 2: // m:ss
		minutes = lo.Must(strconv.Atoi(parts[0]))
	default:
		log.Fatalf("unexpected duration format: %v", durationStr)
	}
	return int64(hours*3600+minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
}

// parseMemoryLine reads the maximum resident set size, reported by GNU time in kilobytes
func parseMemoryLine(line string) float32 {
	_, memoryStr, _ := strings.Cut(line, ": ")
	return float32(lo.Must(strconv.ParseFloat(strings.TrimSpace(memoryStr), 32))) / MB
}

func parseCpuPercentageLine(line string) int64 {
	_, percentageStr, _ := strings.Cut(line, ": ")
	percentageStr = strings.TrimSuffix(strings.TrimSpace(percentageStr), "%")
	if percentageStr == "?" {
		return 0
	}
	return int64(lo.Must(strconv.Atoi(percentageStr)))
}
