package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// FakeMode selects the behavior of a fake simulator executable.
type FakeMode int

const (
	// FakeSuccess writes a well-formed report with FakeOutputs.
	FakeSuccess FakeMode = iota
	// FakeError writes a report whose first line starts with ERROR.
	FakeError
	// FakeHang sleeps far longer than any test timeout.
	FakeHang
	// FakeNoOutput exits without writing a report.
	FakeNoOutput
	// FakeGarbled writes a report with a non-numeric value line.
	FakeGarbled
	// FakeExitNonZero writes a well-formed report and exits with status 3.
	FakeExitNonZero
)

// FakeOutputs are the quantities reported by FakeSuccess.
var FakeOutputs = [5]float64{1.25e3, 3.5e-1, 2.25e-1, 4.5e-1, 5.5e-1}

// FakeOracle writes a shell script emulating the simulator and returns its
// path. The script reads RADCAL.in from its working directory and writes
// RADCAL.out and TRANSCRIPT.out next to it.
//
// The test is skipped on Windows.
func FakeOracle(tb testing.TB, mode FakeMode) string {
	tb.Helper()

	if runtime.GOOS == "windows" {
		tb.Skip("fake oracle requires a POSIX shell")
	}

	path := filepath.Join(tb.TempDir(), "radcal")
	if err := os.WriteFile(path, []byte(fakeScript(mode)), 0o755); err != nil { //nolint:gosec // test executable
		tb.Fatalf("write fake oracle: %v", err)
	}

	return path
}

func fakeScript(mode FakeMode) string {
	var b strings.Builder

	b.WriteString("#!/bin/sh\n")
	b.WriteString("test -f RADCAL.in || { echo 'RADCAL.in not found' >&2; exit 2; }\n")
	b.WriteString("cp RADCAL.in TRANSCRIPT.out\n")

	switch mode {
	case FakeSuccess, FakeExitNonZero:
		b.WriteString(report(FakeOutputs, ""))
	case FakeError:
		b.WriteString("echo 'ERROR: mole fractions do not sum to unity' > RADCAL.out\n")
	case FakeHang:
		b.WriteString("exec sleep 60\n")
	case FakeNoOutput:
	case FakeGarbled:
		b.WriteString(report(FakeOutputs, "not-a-number"))
	}

	if mode == FakeExitNonZero {
		b.WriteString("exit 3\n")
	}

	return b.String()
}

// report renders a heredoc writing a five-quantity report. A non-empty
// garble replaces the third value.
func report(values [5]float64, garble string) string {
	labels := [5]string{
		"Received intensity\tW/m2/sr",
		"Planck-mean absorption coefficient\t1/m",
		"Effective absorption coefficient\t1/m",
		"Total emissivity\t-",
		"Total transmissivity\t-",
	}

	var b strings.Builder
	b.WriteString("cat > RADCAL.out <<'EOF'\n")
	b.WriteString(" RADCAL integrated quantities\n")
	b.WriteString(" \n")
	b.WriteString(" Quantity\tUnit\tValue\n")
	b.WriteString(" --------\n")
	for i, v := range values {
		val := fmt.Sprintf("%.16E", v)
		if i == 2 && garble != "" {
			val = garble
		}
		fmt.Fprintf(&b, "%s\t%s\n", labels[i], val)
	}
	b.WriteString("EOF\n")

	return b.String()
}
