package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	adoc "github.com/alnah/go-adoc"
	"github.com/alnah/go-adoc/internal/config"
	"github.com/alnah/go-adoc/internal/fileutil"
	"github.com/alnah/go-adoc/internal/hints"
)

// doctorReport holds the diagnostics printed by `adoc doctor`.
type doctorReport struct {
	Status     string       `json:"status"` // "ready", "warnings", "errors"
	Version    string       `json:"version"`
	Backends   []string     `json:"backends"`
	Extensions []string     `json:"extensions"`
	Config     []string     `json:"config_files,omitempty"`
	Browser    browserCheck `json:"browser"`
	Platform   string       `json:"platform"`
	Container  bool         `json:"container"`
	CI         bool         `json:"ci"`
	TempDir    string       `json:"temp_dir"`
	Warnings   []string     `json:"warnings,omitempty"`
	Errors     []string     `json:"errors,omitempty"`
}

// browserCheck describes the browser used by --pdf.
type browserCheck struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// lookBrowser locates Chrome; replaced in tests.
var lookBrowser = func() (string, bool) {
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		return bin, fileutil.FileExists(bin)
	}
	return launcher.LookPath()
}

// browserVersion runs the browser with --version; replaced in tests.
var browserVersion = func(path string) (string, error) {
	out, err := exec.Command(path, "--version").Output() // #nosec G204 -- path comes from the local browser lookup
	return strings.TrimSpace(string(out)), err
}

// runDoctorCmd checks the installation and returns an exit code.
// Only problems preventing HTML conversion make it fail; a missing browser
// is a warning since it only affects --pdf.
func runDoctorCmd(args []string, env *Environment) int {
	var jsonOutput bool
	fs := flag.NewFlagSet("adoc doctor", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	fs.BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(env.Stderr, "adoc doctor: %v\n", err)
		return ExitUsage
	}

	report := runDoctor()
	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	} else {
		printDoctorReport(env.Stdout, report)
	}

	if report.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

func runDoctor() *doctorReport {
	r := &doctorReport{
		Status:     "ready",
		Version:    adoc.Version,
		Backends:   adoc.DefaultConverterFactory().Backends(),
		Extensions: config.Extensions,
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		Container:  hints.IsInContainer() || os.Getenv("KUBERNETES_SERVICE_HOST") != "",
		TempDir:    os.TempDir(),
	}
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if os.Getenv(v) != "" {
			r.CI = true
			break
		}
	}
	for _, p := range config.SearchPaths("default") {
		if fileutil.FileExists(p) {
			r.Config = append(r.Config, p)
		}
	}

	checkBrowser(r)
	checkTempDir(r)

	switch {
	case len(r.Errors) > 0:
		r.Status = "errors"
	case len(r.Warnings) > 0:
		r.Status = "warnings"
	}
	return r
}

func checkBrowser(r *doctorReport) {
	path, found := lookBrowser()
	if !found {
		r.Warnings = append(r.Warnings, "Chrome/Chromium not found; --pdf is unavailable. Install Chrome or set ROD_BROWSER_BIN")
		return
	}
	r.Browser.Found = true
	r.Browser.Path = path
	if v, err := browserVersion(path); err == nil {
		r.Browser.Version = v
	} else {
		r.Warnings = append(r.Warnings, fmt.Sprintf("could not get browser version: %v", err))
	}

	noSandbox := os.Getenv("ROD_NO_SANDBOX") == "1"
	r.Browser.Sandbox = !noSandbox
	if (r.Container || r.CI) && !noSandbox {
		r.Warnings = append(r.Warnings, "container or CI detected; set ROD_NO_SANDBOX=1 if Chrome fails to start")
	}
}

// checkTempDir verifies --pdf can write its temporary HTML pages.
func checkTempDir(r *doctorReport) {
	_, cleanup, err := fileutil.WriteTempFile("<p>doctor</p>", "html")
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("temp directory not writable: %s", r.TempDir))
		return
	}
	cleanup()
}

func printDoctorReport(w io.Writer, r *doctorReport) {
	fmt.Fprintf(w, "adoc %s (%s)\n", r.Version, r.Platform)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  [OK] Backends: %s\n", strings.Join(r.Backends, ", "))
	fmt.Fprintf(w, "  [OK] Extensions: %s\n", strings.Join(r.Extensions, ", "))
	if len(r.Config) > 0 {
		fmt.Fprintf(w, "  [OK] Config: %s\n", strings.Join(r.Config, ", "))
	}
	if r.Browser.Found {
		fmt.Fprintf(w, "  [OK] Browser: %s", r.Browser.Path)
		if r.Browser.Version != "" {
			fmt.Fprintf(w, " (%s)", r.Browser.Version)
		}
		fmt.Fprintln(w)
		if !r.Browser.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	}
	if r.Container {
		fmt.Fprintln(w, "  [OK] Container: detected")
	}
	if r.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  [WARN] %s\n", warn)
	}
	for _, err := range r.Errors {
		fmt.Fprintf(w, "  [ERROR] %s\n", err)
	}
	fmt.Fprintln(w)

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to convert")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
