package cmdline

import (
	"os"
	"path/filepath"
	"testing"
)

// Test that the parser detects when defaults are overridden on the command line for the pull command
func TestParsePull(t *testing.T) {
	ClearParse()
	td := t.TempDir()
	afile := filepath.Join(td, "images.txt")
	os.WriteFile(afile, []byte("docker.io/hello-world:latest\n"), 0644)

	os.Args = []string{"bin/airgap", "--log-level", "info", "--config-file", afile, "--log-file", "/tmp/airgap.log",
		"pull", "--image-file", afile, "--workers", "3", "--skip-existing", "--save", "--save-dir", td,
		"--keep-blank-lines", "--backend", "crane", "--docker-binary", "podman", "--layout-dir", td, "--pull-timeout", "5000",
		"--os", "linux", "--arch", "arm64", "--report", "result.txt", "--bundle", "images.tgz",
		"--upload", "gs://smp-airgap-bundles", "--credentials", afile, "--metrics-textfile", "airgap.prom"}
	fromCmdline, cfg, err := Parse()
	if err != nil {
		t.Fatal(err)
	}
	if fromCmdline.Command != "pull" {
		t.Fail()
	}
	switch {
	case !fromCmdline.LogLevel:
		t.Fail()
	case !fromCmdline.ConfigFile:
		t.Fail()
	case !fromCmdline.LogFile:
		t.Fail()
	case !fromCmdline.ImageFile:
		t.Fail()
	case !fromCmdline.Workers:
		t.Fail()
	case !fromCmdline.SkipExisting:
		t.Fail()
	case !fromCmdline.Save:
		t.Fail()
	case !fromCmdline.SaveDir:
		t.Fail()
	case !fromCmdline.KeepBlankLines:
		t.Fail()
	case !fromCmdline.Backend:
		t.Fail()
	case !fromCmdline.DockerBinary:
		t.Fail()
	case !fromCmdline.LayoutDir:
		t.Fail()
	case !fromCmdline.PullTimeout:
		t.Fail()
	case !fromCmdline.Os:
		t.Fail()
	case !fromCmdline.Arch:
		t.Fail()
	case !fromCmdline.Report:
		t.Fail()
	case !fromCmdline.Bundle:
		t.Fail()
	case !fromCmdline.Upload:
		t.Fail()
	case !fromCmdline.Credentials:
		t.Fail()
	case !fromCmdline.Metrics:
		t.Fail()
	}
	switch {
	case cfg.Workers != 3:
		t.Fail()
	case cfg.PullTimeout != 5000:
		t.Fail()
	case cfg.Backend != "crane":
		t.Fail()
	case !cfg.Bundle.Enabled || cfg.Bundle.Path != "images.tgz":
		t.Fail()
	case cfg.Upload.Url != "gs://smp-airgap-bundles" || cfg.Upload.Credentials != afile:
		t.Fail()
	case cfg.Report.Path != "result.txt":
		t.Fail()
	case cfg.Metrics.Textfile != "airgap.prom":
		t.Fail()
	}
}

// Test that defaults are populated and not flagged as coming from the command line
func TestParseDefaults(t *testing.T) {
	ClearParse()
	afile := filepath.Join(t.TempDir(), "images.txt")
	os.WriteFile(afile, []byte(""), 0644)

	os.Args = []string{"bin/airgap", "pull", "--image-file", afile}
	fromCmdline, cfg, err := Parse()
	if err != nil {
		t.Fatal(err)
	}
	if fromCmdline.Workers || fromCmdline.Backend || fromCmdline.SaveDir || fromCmdline.Bundle || !fromCmdline.ImageFile {
		t.Fail()
	}
	switch {
	case cfg.Workers != 10:
		t.Fail()
	case cfg.Backend != "docker":
		t.Fail()
	case cfg.SaveDir != "harness-airgapped":
		t.Fail()
	case cfg.LogLevel != "error":
		t.Fail()
	case cfg.PullTimeout != 0:
		t.Fail()
	case cfg.Bundle.Enabled:
		t.Fail()
	case cfg.SkipExisting || cfg.Save:
		t.Fail()
	}
}

func TestParseVersion(t *testing.T) {
	ClearParse()
	os.Args = []string{"bin/airgap", "version"}
	fromCmdline, _, err := Parse()
	if err != nil || fromCmdline.Command != "version" {
		t.Fail()
	}
}

// Test that the validators reject bad values
func TestParseInvalid(t *testing.T) {
	afile := filepath.Join(t.TempDir(), "images.txt")
	os.WriteFile(afile, []byte(""), 0644)
	tests := [][]string{
		{"bin/airgap", "--log-level", "chatty", "version"},
		{"bin/airgap", "--config-file", "/no/such/file", "version"},
		{"bin/airgap", "pull", "--image-file", "/no/such/file"},
		{"bin/airgap", "pull", "--image-file", filepath.Dir(afile)},
		{"bin/airgap", "pull", "--image-file", afile, "--backend", "containerd"},
		{"bin/airgap", "pull", "--image-file", afile, "--workers", "ten"},
		{"bin/airgap", "pull", "--image-file", afile, "--credentials", "/no/such/key.json"},
	}
	for _, args := range tests {
		ClearParse()
		os.Args = args
		if _, _, err := Parse(); err == nil {
			t.Errorf("expected error parsing %v", args)
		}
	}
}
