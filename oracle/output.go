package oracle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hupe1980/radbase/scenario"
)

// errorMarker prefixes the first output line of a failed simulation.
const errorMarker = "ERROR"

// firstValueLine is the 1-indexed line holding the first output quantity.
const firstValueLine = 5

// ParseOutput parses an oracle report.
//
// If the first line starts with ERROR a *SimulationError is returned and the
// rest of the report is ignored. Otherwise lines 5 through 9 each hold one
// quantity as the last tab-separated field. Malformed reports yield an
// *OutputError.
func ParseOutput(r io.Reader) ([scenario.NumOutputs]float64, error) {
	var out [scenario.NumOutputs]float64

	sc := bufio.NewScanner(r)
	line := 0
	found := 0
	for sc.Scan() {
		line++
		text := sc.Text()

		if line == 1 && strings.HasPrefix(text, errorMarker) {
			return out, &SimulationError{Line: strings.TrimSpace(text)}
		}

		if line < firstValueLine {
			continue
		}

		fields := strings.Split(text, "\t")
		raw := strings.TrimSpace(fields[len(fields)-1])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return out, &OutputError{Line: line, cause: err}
		}
		out[found] = v
		found++

		if found == scenario.NumOutputs {
			return out, nil
		}
	}
	if err := sc.Err(); err != nil {
		return out, &OutputError{cause: err}
	}

	return out, &OutputError{
		Line:  line + 1,
		cause: fmt.Errorf("report ends after %d lines, want %d", line, firstValueLine+scenario.NumOutputs-1),
	}
}

// readOutput parses the report at path.
func readOutput(path string) ([scenario.NumOutputs]float64, error) {
	f, err := os.Open(path) //nolint:gosec // G304: workspace path
	if err != nil {
		return [scenario.NumOutputs]float64{}, &OutputError{Path: path, cause: err}
	}
	defer func() { _ = f.Close() }()

	out, err := ParseOutput(f)

	var oe *OutputError
	if errors.As(err, &oe) {
		oe.Path = path
	}

	return out, err
}
