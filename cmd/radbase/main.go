// Command radbase generates radiative-property datasets by running the
// simulator over sampled scenarios.
//
// Usage:
//
//	radbase generate --oracle /opt/radcal/bin/radcal --repeats 10 --samplesize 1000 --out radcal.rdb
//	radbase inspect radcal.rdb
//	radbase scaler fit radcal.rdb --out scaler.yaml
//
// Every generate setting can also come from a YAML file given with --config
// or from RADBASE_* environment variables, e.g. RADBASE_RUN_WORKERS=8.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd(newViper()).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
