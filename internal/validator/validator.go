// Package validator checks that an installed extension actually works.
// Checks come from the extension's validate block: version commands
// matched against a pattern, mise-managed tool listings, or a script
// judged by its exit code. All checks for one extension share a single
// deadline.
package validator

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/devforge-labs/devforge/internal/extension"
)

// DynamicPattern is the expectedPattern sentinel accepting any release
// version in the command output.
const DynamicPattern = "dynamic"

var versionRe = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// FailedError reports an extension with one or more failed checks.
type FailedError struct {
	Name     string
	Failures []string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("validation of %s failed: %s", e.Name, strings.Join(e.Failures, "; "))
}

// TimeoutError reports an extension whose checks exceeded the deadline.
type TimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("validation of %s timed out after %s", e.Name, e.Timeout)
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name   string
	OK     bool
	Detail string
}

// Validator runs post-install checks.
type Validator struct{}

// New creates a validator.
func New() *Validator { return &Validator{} }

// Validate runs every check declared by the extension. dir is the
// extension's catalog directory for script checks. A nil validate block
// passes vacuously. The error is a TimeoutError when the deadline
// expired, a FailedError when any check failed, nil otherwise; the
// results always cover the checks that ran.
func (v *Validator) Validate(ctx context.Context, ext *extension.Extension, dir string) ([]CheckResult, error) {
	spec := ext.Validate
	if spec == nil {
		return nil, nil
	}

	timeout := time.Duration(spec.Timeout) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(extension.DefaultValidateTimeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var results []CheckResult
	add := func(r CheckResult) { results = append(results, r) }

	for _, c := range spec.Commands {
		add(v.checkCommand(ctx, c))
		if ctx.Err() == context.DeadlineExceeded {
			return results, &TimeoutError{Name: ext.Name(), Timeout: timeout}
		}
	}
	if spec.Mise != nil {
		add(v.checkMise(ctx, spec.Mise))
		if ctx.Err() == context.DeadlineExceeded {
			return results, &TimeoutError{Name: ext.Name(), Timeout: timeout}
		}
	}
	if spec.Script != nil {
		add(v.checkScript(ctx, spec.Script, dir))
		if ctx.Err() == context.DeadlineExceeded {
			return results, &TimeoutError{Name: ext.Name(), Timeout: timeout}
		}
	}

	var failures []string
	for _, r := range results {
		if !r.OK {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failures) > 0 {
		return results, &FailedError{Name: ext.Name(), Failures: failures}
	}
	return results, nil
}

// Hosts checks that every hostname the extension downloads binaries
// from resolves in DNS. Extensions without binary downloads produce no
// results.
func (v *Validator) Hosts(ctx context.Context, ext *extension.Extension) []CheckResult {
	var results []CheckResult
	seen := map[string]bool{}
	for _, step := range ext.Install.Steps() {
		if step.Method != extension.MethodBinary {
			continue
		}
		for _, dl := range step.Binary.Downloads {
			u, err := url.Parse(dl.URL)
			if err != nil || u.Hostname() == "" {
				results = append(results, CheckResult{Name: "dns " + dl.Name, Detail: fmt.Sprintf("no host in URL %q", dl.URL)})
				continue
			}
			host := u.Hostname()
			if seen[host] {
				continue
			}
			seen[host] = true
			if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
				results = append(results, CheckResult{Name: "dns " + host, Detail: err.Error()})
				continue
			}
			results = append(results, CheckResult{Name: "dns " + host, OK: true, Detail: "resolves"})
		}
	}
	return results
}

func (v *Validator) checkCommand(ctx context.Context, c extension.CommandCheck) CheckResult {
	flag := c.VersionFlag
	if flag == "" {
		flag = extension.DefaultVersionFlag
	}
	out, err := exec.CommandContext(ctx, c.Name, flag).CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return CheckResult{Name: c.Name, Detail: fmt.Sprintf("%v (%s)", err, output)}
	}

	switch c.ExpectedPattern {
	case "":
		return CheckResult{Name: c.Name, OK: true, Detail: output}
	case DynamicPattern:
		if versionRe.MatchString(output) {
			return CheckResult{Name: c.Name, OK: true, Detail: output}
		}
		return CheckResult{Name: c.Name, Detail: fmt.Sprintf("no version in output %q", output)}
	default:
		re, rerr := regexp.Compile(c.ExpectedPattern)
		if rerr != nil {
			return CheckResult{Name: c.Name, Detail: fmt.Sprintf("bad pattern %q: %v", c.ExpectedPattern, rerr)}
		}
		if re.MatchString(output) {
			return CheckResult{Name: c.Name, OK: true, Detail: output}
		}
		return CheckResult{Name: c.Name, Detail: fmt.Sprintf("output %q does not match %q", output, c.ExpectedPattern)}
	}
}

// checkMise lists mise-managed tools and verifies the declared names
// appear, and that at least minToolCount are present.
func (v *Validator) checkMise(ctx context.Context, c *extension.MiseCheck) CheckResult {
	out, err := exec.CommandContext(ctx, "mise", "ls").CombinedOutput()
	if err != nil {
		return CheckResult{Name: "mise", Detail: fmt.Sprintf("mise ls: %v", err)}
	}

	var tools []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			tools = append(tools, fields[0])
		}
	}

	var missing []string
	for _, want := range c.Tools {
		found := false
		for _, have := range tools {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return CheckResult{Name: "mise", Detail: fmt.Sprintf("tools not managed by mise: %s", strings.Join(missing, ", "))}
	}
	if c.MinToolCount > 0 && len(tools) < c.MinToolCount {
		return CheckResult{Name: "mise", Detail: fmt.Sprintf("%d tools managed, want at least %d", len(tools), c.MinToolCount)}
	}
	return CheckResult{Name: "mise", OK: true, Detail: fmt.Sprintf("%d tools managed", len(tools))}
}

func (v *Validator) checkScript(ctx context.Context, c *extension.ScriptCheck, dir string) CheckResult {
	path := c.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	scriptCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		scriptCtx, cancel = context.WithTimeout(ctx, time.Duration(c.Timeout)*time.Second)
		defer cancel()
	}
	cmd := exec.CommandContext(scriptCtx, "bash", path)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return CheckResult{Name: c.Path, Detail: fmt.Sprintf("%v (%s)", err, strings.TrimSpace(string(out)))}
	}
	return CheckResult{Name: c.Path, OK: true, Detail: strings.TrimSpace(string(out))}
}
