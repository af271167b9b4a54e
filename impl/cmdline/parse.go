package cmdline

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/aceeric/airgap/impl/config"
	"github.com/aceeric/airgap/impl/globals"
	"github.com/aceeric/airgap/impl/store"

	"github.com/urfave/cli/v3"
)

// fromCmdline will be populated with flags indicating which configuration settings were
// specified on the command line.
var fromCmdline config.FromCmdLine

// cfg has the parsed configuration - including defaults (e.g. workers) if the user does not override
var cfg = config.Configuration{}

// isFile validates that a path names an existing regular file.
func isFile(path string) error {
	if fi, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found")
	} else if fi.IsDir() {
		return fmt.Errorf("not a file")
	}
	return nil
}

// oneOf returns a validator that accepts only the passed values, ignoring case.
func oneOf(validValues ...string) func(string) error {
	return func(val string) error {
		if !slices.Contains(validValues, strings.ToLower(val)) {
			return fmt.Errorf("must be one of %s", strings.Join(validValues, ", "))
		}
		return nil
	}
}

// newCommand builds the command definition for the command line parser urfave/cli. The
// parser keeps per-run state in the flags so each parse gets a fresh definition.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "airgap",
		Usage: "bulk pulls container images and bundles them for transfer into air-gapped environments",
		// define this or the parser terminates the program
		ExitErrHandler: func(_ context.Context, _ *cli.Command, _ error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Value:       "error",
				Usage:       "Sets the minimum value for logging: debug, warn, info, or error",
				Destination: &cfg.LogLevel,
				Validator:   oneOf("debug", "warn", "info", "error"),
				Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
					fromCmdline.LogLevel = true
					return nil
				},
			},
			&cli.StringFlag{
				Name:        "config-file",
				Usage:       "A file to load configuration values from (cmdline overrides file settings)",
				Destination: &cfg.ConfigFile,
				Validator:   isFile,
				Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
					fromCmdline.ConfigFile = true
					return nil
				},
			},
			&cli.StringFlag{
				Name:        "log-file",
				Value:       "",
				Usage:       "log to the specified file rather than the console",
				Destination: &cfg.LogFile,
				Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
					fromCmdline.LogFile = true
					return nil
				},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "pull",
				Usage: "Pulls every image in an image list file, optionally saving, bundling, and uploading them",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "pull"
					return nil
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "image-file",
						Usage:       "A file containing a list of image refs, one per line",
						Destination: &cfg.ImageFile,
						Validator:   isFile,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.ImageFile = true
							return nil
						},
					},
					&cli.IntFlag{
						Name:        "workers",
						Value:       globals.DefaultWorkers,
						Usage:       "The number of images to transfer concurrently",
						Destination: &cfg.Workers,
						Action: func(ctx context.Context, cmd *cli.Command, _ int) error {
							fromCmdline.Workers = true
							return nil
						},
					},
					&cli.BoolFlag{
						Name:        "skip-existing",
						Value:       false,
						Usage:       "Does not pull images that are already in the local store",
						Destination: &cfg.SkipExisting,
						Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
							fromCmdline.SkipExisting = true
							return nil
						},
					},
					&cli.BoolFlag{
						Name:        "save",
						Value:       false,
						Usage:       "Saves each pulled image to a tarball in the save directory",
						Destination: &cfg.Save,
						Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
							fromCmdline.Save = true
							return nil
						},
					},
					&cli.StringFlag{
						Name:        "save-dir",
						Value:       "harness-airgapped",
						Usage:       "The directory to save image tarballs to",
						Destination: &cfg.SaveDir,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.SaveDir = true
							return nil
						},
					},
					&cli.BoolFlag{
						Name:        "keep-blank-lines",
						Value:       false,
						Usage:       "Treats blank and comment lines in the image file as images rather than skipping them",
						Destination: &cfg.KeepBlankLines,
						Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
							fromCmdline.KeepBlankLines = true
							return nil
						},
					},
					&cli.StringFlag{
						Name:        "backend",
						Value:       store.BackendDocker,
						Usage:       "The local image store: docker (the docker CLI), engine (the Docker Engine API), or crane (a daemonless OCI layout)",
						Destination: &cfg.Backend,
						Validator:   oneOf(store.BackendDocker, store.BackendEngine, store.BackendCrane),
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.Backend = true
							return nil
						},
					},
					&cli.StringFlag{
						Name:        "docker-binary",
						Value:       "docker",
						Usage:       "The docker-compatible CLI used by the docker backend",
						Destination: &cfg.DockerBinary,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.DockerBinary = true
							return nil
						},
					},
					&cli.StringFlag{
						Name:        "layout-dir",
						Value:       "airgap-layout",
						Usage:       "The OCI image layout directory used by the crane backend",
						Destination: &cfg.LayoutDir,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.LayoutDir = true
							return nil
						},
					},
					&cli.IntFlag{
						Name:        "pull-timeout",
						Value:       0,
						Usage:       "The max time for each pull or save in milliseconds before timing out (zero means no limit)",
						Destination: &cfg.PullTimeout,
						Action: func(ctx context.Context, cmd *cli.Command, _ int) error {
							fromCmdline.PullTimeout = true
							return nil
						},
					},
					&cli.StringFlag{
						Name:        "os",
						Usage:       "The operating system to pull images for",
						Destination: &cfg.Os,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.Os = true
							return nil
						},
					},
					&cli.StringFlag{
						Name:        "arch",
						Usage:       "The architecture to pull images for",
						Destination: &cfg.Arch,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.Arch = true
							return nil
						},
					},
					&cli.StringFlag{
						Name:        "report",
						Usage:       "Writes the run summary to the specified file, e.g. result.txt",
						Destination: &cfg.Report.Path,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.Report = true
							return nil
						},
					},
					&cli.StringFlag{
						Name:        "bundle",
						Usage:       "Bundles all saved image tarballs into the specified gzipped tarball, e.g. images.tgz",
						Destination: &cfg.Bundle.Path,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.Bundle = true
							cfg.Bundle.Enabled = true
							return nil
						},
					},
					&cli.StringFlag{
						Name:        "upload",
						Usage:       "Uploads the bundle and the report to object storage, e.g. gs://bucket/prefix or s3://bucket/prefix",
						Destination: &cfg.Upload.Url,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.Upload = true
							return nil
						},
					},
					&cli.StringFlag{
						Name:        "credentials",
						Usage:       "The credentials file for the upload: a service account key for gs://, a shared credentials file for s3://",
						Destination: &cfg.Upload.Credentials,
						Validator:   isFile,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.Credentials = true
							return nil
						},
					},
					&cli.StringFlag{
						Name:        "metrics-textfile",
						Usage:       "Writes run metrics to the specified file for the node exporter textfile collector",
						Destination: &cfg.Metrics.Textfile,
						Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
							fromCmdline.Metrics = true
							return nil
						},
					},
				},
			},
			{
				Name:  "version",
				Usage: "Displays the version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fromCmdline.Command = "version"
					return nil
				},
			},
		},
	}
}

// Parse parses the command line. It returns the following:
//
//  1. A FromCmdLine struct which has the command to run ("pull" or "version"). If the command
//     is the empty string then no sub-command was specified in which case the parser auto-displays
//     help. This struct also has flags telling you which configuration values were provided by the
//     user on the command line.
//  2. A Configuration struct containing the parsed configuration values. For any configuration flag
//     in the FromCmdLine struct with a false value, the corresponding configuration value in *this*
//     struct will be the default.
//  3. An error, if the parser returned one, else nil.
func Parse() (config.FromCmdLine, config.Configuration, error) {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		return config.FromCmdLine{}, config.Configuration{}, err
	}
	return fromCmdline, cfg, nil
}

// ClearParse supports unit testing
func ClearParse() {
	fromCmdline = config.FromCmdLine{}
	cfg = config.Configuration{}
}
