package subcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aceeric/airgap/impl/auth"
	"github.com/aceeric/airgap/impl/batch"
	"github.com/aceeric/airgap/impl/bundle"
	"github.com/aceeric/airgap/impl/config"
	"github.com/aceeric/airgap/impl/globals"
	"github.com/aceeric/airgap/impl/imagelist"
	"github.com/aceeric/airgap/impl/metrics"
	"github.com/aceeric/airgap/impl/report"
	"github.com/aceeric/airgap/impl/store"
	"github.com/aceeric/airgap/impl/upload"

	log "github.com/sirupsen/logrus"
)

// Pull transfers every image in the configured image file, writing per-image progress
// and the run summary to the passed writer. Then, as configured, it persists the
// summary, bundles the saved images, and uploads the bundle and summary. A run in
// which some images failed is still a successful run. An error is returned only if
// the run could not be started or completed: the image file could not be read, the
// store could not be initialized, or the report, bundle, or upload failed.
func Pull(ctx context.Context, out io.Writer) error {
	if err := validate(); err != nil {
		return err
	}
	refs, err := loadImages(config.GetImageFile())
	if err != nil {
		return err
	}
	if err := initAuth(ctx); err != nil {
		return fmt.Errorf("error initializing registry auth: %w", err)
	}
	st, err := store.New(store.Opts{
		Backend:      config.GetBackend(),
		DockerBinary: config.GetDockerBinary(),
		LayoutDir:    config.GetLayoutDir(),
	})
	if err != nil {
		return err
	}
	metricsCfg := config.GetMetrics()
	if metricsCfg.Textfile != "" || metricsCfg.Pushgateway != "" {
		metrics.Init()
	}

	worker := &batch.Worker{
		Store:        st,
		Console:      globals.NewConsole(out),
		SkipExisting: config.GetSkipExisting(),
		Save:         config.GetSave(),
		SaveDir:      config.GetSaveDir(),
		Timeout:      time.Duration(config.GetPullTimeout()) * time.Millisecond,
	}
	log.Infof("transferring images from %s, this can take a while", config.GetImageFile())
	result := batch.NewCoordinator(config.GetWorkers(), worker).Run(ctx, refs)
	summary := report.Summarize(result.Outcomes, result.Elapsed)
	if err := report.Write(out, summary); err != nil {
		return err
	}
	writeMetrics(summary)

	reportPath := config.GetReport().Path
	uploadUrl := config.GetUpload().Url
	if reportPath == "" && uploadUrl != "" {
		// the report is always uploaded with the bundle so it needs a file
		tmp, err := os.MkdirTemp("", "airgap-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
		reportPath = filepath.Join(tmp, globals.ReportName)
	}
	if reportPath != "" {
		if err := report.Persist(reportPath, summary); err != nil {
			return err
		}
	}

	bundlePath := ""
	if config.GetBundle().Enabled {
		bundlePath = bundleFile(config.GetBundle().Path)
		if err := bundle.Create(bundlePath, result.Saved(), config.GetBundle().Checksums); err != nil {
			return fmt.Errorf("error creating bundle %s: %w", bundlePath, err)
		}
	}

	if uploadUrl != "" {
		uploader, target, err := upload.New(ctx, config.GetUpload())
		if err != nil {
			return err
		}
		files := []string{}
		if bundlePath != "" {
			files = append(files, bundlePath)
		}
		files = append(files, reportPath)
		if err := upload.Files(ctx, uploader, target, files...); err != nil {
			return err
		}
	}
	return nil
}

// validate checks configuration combinations that can't be checked by the command
// line parser because they can also come from the config file.
func validate() error {
	if config.GetImageFile() == "" {
		return errors.New("an image file is required (--image-file)")
	}
	if config.GetBundle().Enabled && !config.GetSave() {
		return errors.New("bundling requires saving the images (--save)")
	}
	return nil
}

// loadImages reads the image file honoring the blank line setting.
func loadImages(imageFile string) ([]string, error) {
	if config.GetKeepBlankLines() {
		return imagelist.LoadRaw(imageFile)
	}
	return imagelist.Load(imageFile)
}

// initAuth registers a token provider for every registry configured with one. The
// providers refresh their credentials until the passed context is done.
func initAuth(ctx context.Context) error {
	for _, reg := range config.GetRegistries() {
		if reg.Auth.Provider == "" || auth.IsRegistered(reg.Name) {
			continue
		}
		log.Infof("registering token provider %q for registry %s", reg.Auth.Provider, reg.Name)
		if err := auth.Register(ctx, reg.Name, reg.Auth.Provider, reg.Auth.ProviderOpts, reg.Auth.Expiry); err != nil {
			return err
		}
	}
	return nil
}

// bundleFile returns the bundle path, defaulting the file name.
func bundleFile(path string) string {
	if path == "" {
		return globals.BundleName
	}
	return path
}

// writeMetrics records the run in the metrics and writes them out. Metrics are
// informational so failures are only logged.
func writeMetrics(summary report.Summary) {
	metricsCfg := config.GetMetrics()
	metrics.SetRunSeconds(summary.Elapsed.Seconds())
	metrics.SetRunImages(float64(summary.Total))
	if err := metrics.Write(metricsCfg.Textfile); err != nil {
		log.Errorf("error writing metrics to %s: %s", metricsCfg.Textfile, err)
	}
	if err := metrics.Push(metricsCfg.Pushgateway, metricsCfg.Job); err != nil {
		log.Errorf("error pushing metrics to %s: %s", metricsCfg.Pushgateway, err)
	}
}
