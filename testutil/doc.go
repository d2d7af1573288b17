// Package testutil provides testing utilities for radbase.
//
// This package is intended for use in tests only. It provides a seeded,
// thread-safe generator for scenarios and result rows, and a fake simulator
// executable for exercising the subprocess protocol without the real oracle.
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	sc := rng.Scenario()     // closure holds
//	rows := rng.Rows(9)      // distinct rows with non-zero outputs
//
// # Fake Simulator
//
//	path := testutil.FakeOracle(t, testutil.FakeSuccess)
//	p, err := oracle.NewProcess(path)
package testutil
