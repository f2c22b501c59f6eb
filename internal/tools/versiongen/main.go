// Command versiongen prints the version stamped into release builds.
//
//	go build -ldflags "$(go run ./internal/tools/versiongen -ldflags)" ./cmd/termfolio
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"pkt.systems/termfolio/internal/version"
)

const versionSymbol = "pkt.systems/termfolio/internal/version.buildVersion"

func main() {
	var ldflags bool
	var dirty bool
	flag.BoolVar(&ldflags, "ldflags", false, "print a -X flag for go build instead of the bare version")
	flag.BoolVar(&dirty, "dirty", true, "keep the +dirty suffix for modified trees")
	flag.Parse()

	ver := strings.TrimSpace(version.Read(dirty).Version)
	if ver == "" {
		ver = "v0.0.0-unknown"
	}
	if ldflags {
		fmt.Fprintln(os.Stdout, ldflagsFor(ver))
		return
	}
	fmt.Fprintln(os.Stdout, ver)
}

func ldflagsFor(ver string) string {
	return fmt.Sprintf("-X %s=%s", versionSymbol, ver)
}
