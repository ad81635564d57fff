// Package staticanalyzer implements the Static Analyzer (C3): a syntax and
// complexity scan of every candidate test plus optional external linter and
// type-checker subprocesses, bounded by timeouts and a concurrency cap.
package staticanalyzer

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/deepaksaipendyala/quest/internal/model"
	"github.com/deepaksaipendyala/quest/internal/ratelimit"
)

// Tool describes one external linter or type-checker subprocess.
type Tool struct {
	Name string
	// Command and Args build the subprocess invocation; the test file path
	// is appended as the final argument.
	Command string
	Args    []string
}

// Analyzer runs syntax/complexity checks and optional external tool
// subprocesses against a candidate test.
type Analyzer struct {
	Tools     []Tool
	Timeout   time.Duration
	sem       *ratelimit.Semaphore
	available map[string]bool
	mu        sync.Mutex
}

// New builds an Analyzer. maxConcurrentTools bounds how many tool
// subprocesses may run at once across concurrent Analyze calls; <= 0 means
// unbounded.
func New(tools []Tool, timeout time.Duration, maxConcurrentTools int) *Analyzer {
	return &Analyzer{
		Tools:     tools,
		Timeout:   timeout,
		sem:       ratelimit.NewSemaphore(maxConcurrentTools),
		available: make(map[string]bool),
	}
}

var (
	defRe       = regexp.MustCompile(`^\s*def\s+[A-Za-z_][A-Za-z0-9_]*\s*\(`)
	classRe     = regexp.MustCompile(`^\s*class\s+[A-Za-z_][A-Za-z0-9_]*`)
	branchWords = regexp.MustCompile(`\b(if|elif|for|while|except|and|or)\b`)
)

// Analyze runs the full static report for source, writing it to a temp file
// so external tool subprocesses have a real path to operate on.
func (a *Analyzer) Analyze(ctx context.Context, source string) model.StaticReport {
	report := model.StaticReport{Lints: make(map[string]model.LintResult)}

	syntaxOK, syntaxErr := checkSyntax(source)
	report.SyntaxOK = syntaxOK
	report.SyntaxError = syntaxErr

	lines := strings.Split(source, "\n")
	report.LineCount = len(lines)
	report.ClassCount, report.FunctionCount, report.MaxFunctionLines, report.AvgFunctionLines = functionStats(lines)
	report.CyclomaticComplexity = cyclomaticComplexity(source)

	if len(a.Tools) == 0 {
		return report
	}

	path, cleanup, err := writeTempTestFile(source)
	if err != nil {
		return report
	}
	defer cleanup()

	total := 0
	for _, tool := range a.Tools {
		result := a.runTool(ctx, tool, path)
		report.Lints[tool.Name] = result
		total += result.IssueCount
	}
	report.LintIssueCount = total

	return report
}

// checkSyntax is a line-oriented sanity check: it looks for unterminated
// triple-quoted strings and unbalanced parentheses, the two failure modes a
// drafted test is most likely to exhibit. It does not implement a full
// Python grammar.
func checkSyntax(source string) (ok bool, syntaxErr string) {
	if n := strings.Count(source, `"""`) + strings.Count(source, `'''`); n%2 != 0 {
		return false, "unterminated triple-quoted string"
	}

	depth := 0
	for i, r := range source {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return false, "unbalanced closing bracket at offset " + strconv.Itoa(i)
			}
		}
	}
	if depth != 0 {
		return false, "unbalanced opening bracket"
	}
	return true, ""
}

// functionStats computes class/function counts and function-length stats
// from top-level/indented def boundaries: each def line starts a function
// whose body extends until the next line at the same or lesser indentation.
func functionStats(lines []string) (classCount, functionCount, maxLen int, avgLen float64) {
	var lengths []int

	for i, line := range lines {
		if classRe.MatchString(line) {
			classCount++
			continue
		}
		if !defRe.MatchString(line) {
			continue
		}
		functionCount++
		indent := leadingSpaces(line)
		length := 1
		for j := i + 1; j < len(lines); j++ {
			trimmed := strings.TrimRight(lines[j], " \t")
			if trimmed == "" {
				length++
				continue
			}
			if leadingSpaces(lines[j]) <= indent {
				break
			}
			length++
		}
		lengths = append(lengths, length)
	}

	for _, l := range lengths {
		if l > maxLen {
			maxLen = l
		}
		avgLen += float64(l)
	}
	if len(lengths) > 0 {
		avgLen /= float64(len(lengths))
	}

	return classCount, functionCount, maxLen, avgLen
}

func leadingSpaces(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 4
		} else {
			break
		}
	}
	return n
}

// cyclomaticComplexity = 1 + count of branching constructs: conditionals,
// loops, except handlers, and boolean operators.
func cyclomaticComplexity(source string) int {
	return 1 + len(branchWords.FindAllString(source, -1))
}

func writeTempTestFile(source string) (path string, cleanup func(), err error) {
	dir, err := os.MkdirTemp("", "quest-static-*")
	if err != nil {
		return "", nil, err
	}
	path = filepath.Join(dir, "candidate_test.py")
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		os.RemoveAll(dir)
		return "", nil, err
	}
	return path, func() { os.RemoveAll(dir) }, nil
}

// runTool invokes tool against path, bounded by a.Timeout and a.sem. Tool
// unavailability (missing from PATH) is recorded as {Available: false},
// never treated as fatal.
func (a *Analyzer) runTool(ctx context.Context, tool Tool, path string) model.LintResult {
	if !a.isAvailable(tool.Command) {
		return model.LintResult{Tool: tool.Name, Available: false}
	}

	if err := a.sem.Acquire(ctx); err != nil {
		return model.LintResult{Tool: tool.Name, Available: false}
	}
	defer a.sem.Release()

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, tool.Args...), path)
	cmd := exec.CommandContext(cmdCtx, tool.Command, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return model.LintResult{Tool: tool.Name, Available: true, ExitCode: -1, OutputExcerpt: runErr.Error()}
		}
	}

	excerpt := out.String()
	if len(excerpt) > 2000 {
		excerpt = excerpt[:2000]
	}

	return model.LintResult{
		Tool:          tool.Name,
		Available:     true,
		ExitCode:      exitCode,
		IssueCount:    countIssues(excerpt),
		OutputExcerpt: excerpt,
	}
}

// countIssues approximates a tool's issue count from its output by
// counting non-empty lines, a convention most lint tools follow (one
// finding per line).
func countIssues(output string) int {
	if strings.TrimSpace(output) == "" {
		return 0
	}
	n := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// isAvailable probes and caches whether tool.Command exists on PATH.
func (a *Analyzer) isAvailable(command string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.available[command]; ok {
		return v
	}
	_, err := exec.LookPath(command)
	v := err == nil
	a.available[command] = v
	return v
}
