package bom

import (
	"context"
	"os/exec"
	"regexp"
)

var probeVersionRe = regexp.MustCompile(`\d+\.\d+\.\d+`)

// probe flags tried in order against an installed tool.
var probeFlags = []string{"--version", "-v", "version"}

// Prober discovers a tool's installed version, returning "" when it
// cannot be determined.
type Prober func(ctx context.Context, tool string) string

// CommandProber runs the tool with each candidate flag and extracts the
// first version token from the first successful invocation.
func CommandProber(ctx context.Context, tool string) string {
	for _, flag := range probeFlags {
		out, err := exec.CommandContext(ctx, tool, flag).CombinedOutput()
		if err != nil {
			continue
		}
		if v := probeVersionRe.FindString(string(out)); v != "" {
			return v
		}
	}
	return ""
}

// ResolveDynamic replaces dynamic version sentinels in the report with
// probed versions. Tools that cannot be probed are marked unknown. A
// nil prober uses CommandProber.
func ResolveDynamic(ctx context.Context, report *Report, probe Prober) {
	if probe == nil {
		probe = CommandProber
	}
	for i := range report.Entries {
		if report.Entries[i].Version != DynamicVersion {
			continue
		}
		if v := probe(ctx, report.Entries[i].Name); v != "" {
			report.Entries[i].Version = v
		} else {
			report.Entries[i].Version = UnknownVersion
		}
	}
}
