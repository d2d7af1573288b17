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

// DefaultTitle is written to the HEADER record of every input file.
const DefaultTitle = "radbase"

// ErrNamelist is returned when an input file cannot be parsed.
var ErrNamelist = errors.New("oracle: malformed namelist")

// WriteInput renders sc as a namelist input file.
//
// Field order is fixed and every value is written with %.16E, so rendering
// the same scenario twice yields identical bytes.
func WriteInput(w io.Writer, title string, sc *scenario.Scenario) error {
	if title == "" {
		title = DefaultTitle
	}

	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "&HEADER TITLE='%s' CHID='%s' /\n", title, title)
	fmt.Fprintf(bw, "&BAND OMMIN = %.16E, OMMAX = %.16E /\n", sc.OmegaMin, sc.OmegaMax)
	fmt.Fprintf(bw, "&WALL TWALL = %.16E /\n", sc.TWall)

	fmt.Fprintf(bw, "&PATH_SEGMENT T = %.16E, LENGTH = %.16E, PRESSURE = %.16E", sc.T, sc.Length, sc.Pressure)
	for i, name := range scenario.Species {
		fmt.Fprintf(bw, ", X%s = %.16E", name, sc.X[i])
	}
	fmt.Fprintf(bw, ", FV = %.16E /\n", sc.FV)

	fmt.Fprint(bw, "&TAIL /\n")

	return bw.Flush()
}

// writeInputFile renders sc to path, replacing any previous file.
func writeInputFile(path, title string, sc *scenario.Scenario) error {
	f, err := os.Create(path) //nolint:gosec // G304: workspace path
	if err != nil {
		return err
	}
	if err := WriteInput(f, title, sc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ParseInput parses a namelist input file back into a scenario.
//
// Only the BAND, WALL and PATH_SEGMENT records carry values; every field
// WriteInput emits must be present.
func ParseInput(r io.Reader) (scenario.Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return scenario.Scenario{}, err
	}

	fields := make(map[string]float64)

	for _, rec := range strings.Split(string(data), "&")[1:] {
		body, ok := strings.CutSuffix(strings.TrimSpace(rec), "/")
		if !ok {
			return scenario.Scenario{}, fmt.Errorf("%w: unterminated record %q", ErrNamelist, firstWord(rec))
		}

		name, rest, _ := strings.Cut(strings.TrimSpace(body), " ")
		switch name {
		case "BAND", "WALL", "PATH_SEGMENT":
		default:
			continue
		}

		for _, kv := range strings.Split(rest, ",") {
			kv = strings.TrimSpace(kv)
			if kv == "" {
				continue
			}
			key, val, ok := strings.Cut(kv, "=")
			if !ok {
				return scenario.Scenario{}, fmt.Errorf("%w: %s: field %q", ErrNamelist, name, kv)
			}
			key = strings.TrimSpace(key)
			v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return scenario.Scenario{}, fmt.Errorf("%w: %s.%s: %v", ErrNamelist, name, key, err)
			}
			fields[key] = v
		}
	}

	var sc scenario.Scenario

	targets := []namelistField{
		{"OMMIN", &sc.OmegaMin},
		{"OMMAX", &sc.OmegaMax},
		{"TWALL", &sc.TWall},
		{"T", &sc.T},
		{"LENGTH", &sc.Length},
		{"PRESSURE", &sc.Pressure},
		{"FV", &sc.FV},
	}
	for i, name := range scenario.Species {
		targets = append(targets, namelistField{"X" + name, &sc.X[i]})
	}

	for _, t := range targets {
		v, ok := fields[t.key]
		if !ok {
			return scenario.Scenario{}, fmt.Errorf("%w: missing field %s", ErrNamelist, t.key)
		}
		*t.dst = v
	}

	return sc, nil
}

type namelistField struct {
	key string
	dst *float64
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \n\t"); i >= 0 {
		return s[:i]
	}
	return s
}
