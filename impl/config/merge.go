package config

// Merge takes a struct indicating which configuration options have been provided on the command
// line, as well as a configuration struct parsed from the command line which ALSO includes defaults
// that the user didn't specify. For example the default worker count is 10 and if you don't specify
// that on the command line - it gets defaulted into the parsed configuration struct. So:
//
//  1. User provided a value: overwrite current config using the user's value
//  2. User did not provide a value, current config is unspecified: use the default in the parsed config
//  3. User did not provide a value, current config is specified: leave the current config untouched
func Merge(fromCmdline FromCmdLine, cfg Configuration) {
	if fromCmdline.LogLevel || config.LogLevel == "" {
		config.LogLevel = cfg.LogLevel
	}
	if fromCmdline.LogFile || config.LogFile == "" {
		config.LogFile = cfg.LogFile
	}
	if fromCmdline.ConfigFile || config.ConfigFile == "" {
		config.ConfigFile = cfg.ConfigFile
	}
	if fromCmdline.ImageFile || config.ImageFile == "" {
		config.ImageFile = cfg.ImageFile
	}
	if fromCmdline.Workers || config.Workers == 0 {
		config.Workers = cfg.Workers
	}
	if fromCmdline.Backend || config.Backend == "" {
		config.Backend = cfg.Backend
	}
	if fromCmdline.DockerBinary || config.DockerBinary == "" {
		config.DockerBinary = cfg.DockerBinary
	}
	if fromCmdline.LayoutDir || config.LayoutDir == "" {
		config.LayoutDir = cfg.LayoutDir
	}
	if fromCmdline.SkipExisting || !config.SkipExisting {
		config.SkipExisting = cfg.SkipExisting
	}
	if fromCmdline.Save || !config.Save {
		config.Save = cfg.Save
	}
	if fromCmdline.SaveDir || config.SaveDir == "" {
		config.SaveDir = cfg.SaveDir
	}
	if fromCmdline.KeepBlankLines || !config.KeepBlankLines {
		config.KeepBlankLines = cfg.KeepBlankLines
	}
	if fromCmdline.PullTimeout || config.PullTimeout == 0 {
		config.PullTimeout = cfg.PullTimeout
	}
	if fromCmdline.Os || config.Os == "" {
		config.Os = cfg.Os
	}
	if fromCmdline.Arch || config.Arch == "" {
		config.Arch = cfg.Arch
	}
	if fromCmdline.Report || config.Report == (ReportConfig{}) {
		config.Report = cfg.Report
	}
	// the bundle is enabled by giving it a path on the command line. Other bundle
	// settings only come from the config file
	if fromCmdline.Bundle {
		config.Bundle.Enabled = true
		config.Bundle.Path = cfg.Bundle.Path
	} else if config.Bundle == (BundleConfig{}) {
		config.Bundle = cfg.Bundle
	}
	if fromCmdline.Upload || config.Upload.Url == "" {
		config.Upload.Url = cfg.Upload.Url
	}
	if fromCmdline.Credentials || config.Upload.Credentials == "" {
		config.Upload.Credentials = cfg.Upload.Credentials
	}
	if fromCmdline.Metrics || config.Metrics.Textfile == "" {
		config.Metrics.Textfile = cfg.Metrics.Textfile
	}
	clearParsed()
}
