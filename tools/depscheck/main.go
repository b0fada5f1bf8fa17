package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePath = "nightshift/server"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// rule restricts what the packages matched by pattern may import.
type rule struct {
	pattern string
	allowed func(imp string) bool
}

var rules = []rule{
	{
		// Ward entities stay free of logging, transport and third-party code.
		pattern: "./internal/ward/...",
		allowed: isStdlib,
	},
	{
		pattern: "./internal/shift/...",
		allowed: func(imp string) bool {
			return !strings.HasPrefix(imp, modulePath+"/internal/net") && imp != modulePath
		},
	},
}

func main() {
	var violations []string
	for _, r := range rules {
		found, err := check(r)
		if err != nil {
			fmt.Fprintf(os.Stderr, "depscheck: %v\n", err)
			os.Exit(1)
		}
		violations = append(violations, found...)
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func check(r rule) ([]string, error) {
	cmd := exec.Command("go", "list", "-json", r.pattern)
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Stderr.Write(exitErr.Stderr)
		}
		return nil, fmt.Errorf("failed to list packages %s: %w", r.pattern, err)
	}
	return violations(bytes.NewReader(output), r.allowed)
}

func violations(r io.Reader, allowed func(string) bool) ([]string, error) {
	decoder := json.NewDecoder(r)
	var found []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return found, nil
			}
			return nil, fmt.Errorf("failed to decode package info: %w", err)
		}
		for _, imp := range pkg.Imports {
			if !allowed(imp) {
				found = append(found, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
			}
		}
	}
}

// isStdlib reports whether imp names a standard library package, which
// never carries a dot in its first path element.
func isStdlib(imp string) bool {
	first, _, _ := strings.Cut(imp, "/")
	return !strings.Contains(first, ".") && first != strings.Split(modulePath, "/")[0]
}
