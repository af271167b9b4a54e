package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

// authCfg holds basic auth user/pass for registry access, or the name of a token
// provider (presently only "ecr") that supplies the password.
type authCfg struct {
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	PasswordFromEnv string `yaml:"passwordFromEnv"`
	Provider        string `yaml:"provider"`
	ProviderOpts    string `yaml:"providerOpts"`
	Expiry          string `yaml:"expiry"`
}

// tlsCfg holds TLS configuration for registry access
type tlsCfg struct {
	Cert               string `yaml:"cert"`
	Key                string `yaml:"key"`
	CA                 string `yaml:"ca"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
}

// RegistryConfig combines authCfg and tlsCfg and configures the pull client
// for access to one upstream registry
type RegistryConfig struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Auth        authCfg `yaml:"auth"`
	Tls         tlsCfg  `yaml:"tls"`
	Scheme      string  `yaml:"scheme"`
}

// ReportConfig configures where the run summary is persisted
type ReportConfig struct {
	Path string `yaml:"path"`
}

// BundleConfig configures the archive that all saved images are bundled into
type BundleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Checksums bool   `yaml:"checksums"`
}

// UploadConfig configures the object store that the bundle and the report are
// uploaded to. The URL scheme selects the store: gs:// or s3://
type UploadConfig struct {
	Url         string `yaml:"url"`
	Credentials string `yaml:"credentials"`
	Region      string `yaml:"region"`
	Profile     string `yaml:"profile"`
	Endpoint    string `yaml:"endpoint"`
}

// MetricsConfig configures where run metrics are written at the end of a run
type MetricsConfig struct {
	Textfile    string `yaml:"textfile"`
	Pushgateway string `yaml:"pushgateway"`
	Job         string `yaml:"job"`
}

// Configuration represents the totality of configuration knobs and dials for a run.
type Configuration struct {
	LogLevel       string           `yaml:"logLevel"`
	LogFile        string           `yaml:"logFile"`
	ConfigFile     string           `yaml:"configFile"`
	ImageFile      string           `yaml:"imageFile"`
	Workers        int              `yaml:"workers"`
	Backend        string           `yaml:"backend"`
	DockerBinary   string           `yaml:"dockerBinary"`
	LayoutDir      string           `yaml:"layoutDir"`
	SkipExisting   bool             `yaml:"skipExisting"`
	Save           bool             `yaml:"save"`
	SaveDir        string           `yaml:"saveDir"`
	KeepBlankLines bool             `yaml:"keepBlankLines"`
	PullTimeout    int              `yaml:"pullTimeout"`
	Os             string           `yaml:"os"`
	Arch           string           `yaml:"arch"`
	Registries     []RegistryConfig `yaml:"registries"`
	Report         ReportConfig     `yaml:"report"`
	Bundle         BundleConfig     `yaml:"bundle"`
	Upload         UploadConfig     `yaml:"upload"`
	Metrics        MetricsConfig    `yaml:"metrics"`
}

// FromCmdLine has a flag for every command-line option. The parsing code
// sets the flag to true if the option was explicitly provided on the command
// line by the user.
type FromCmdLine struct {
	Command        string
	LogLevel       bool
	LogFile        bool
	ConfigFile     bool
	ImageFile      bool
	Workers        bool
	Backend        bool
	DockerBinary   bool
	LayoutDir      bool
	SkipExisting   bool
	Save           bool
	SaveDir        bool
	KeepBlankLines bool
	PullTimeout    bool
	Os             bool
	Arch           bool
	Report         bool
	Bundle         bool
	Upload         bool
	Credentials    bool
	Metrics        bool
}

// RegistryOpts is the parsed form of a RegistryConfig, ready for a puller to use
type RegistryOpts struct {
	Scheme   string
	Username string
	Password string
	Provider string
	TlsCfg   *tls.Config
	OStype   string
	ArchType string
}

var (
	config    Configuration
	emptyAuth = authCfg{}
	emptyTls  = tlsCfg{}
	// parsed holds already-parsed registry options keyed by registry name. Workers
	// call ConfigFor concurrently so access is guarded.
	parsed = struct {
		sync.Mutex
		opts map[string]RegistryOpts
	}{opts: make(map[string]RegistryOpts)}
)

func GetLogLevel() string {
	return config.LogLevel
}

func GetLogFile() string {
	return config.LogFile
}

func GetConfigFile() string {
	return config.ConfigFile
}

func GetImageFile() string {
	return config.ImageFile
}

func GetWorkers() int {
	return config.Workers
}

func GetBackend() string {
	return config.Backend
}

func GetDockerBinary() string {
	return config.DockerBinary
}

func GetLayoutDir() string {
	return config.LayoutDir
}

func GetSkipExisting() bool {
	return config.SkipExisting
}

func GetSave() bool {
	return config.Save
}

func GetSaveDir() string {
	return config.SaveDir
}

func GetKeepBlankLines() bool {
	return config.KeepBlankLines
}

func GetPullTimeout() int {
	return config.PullTimeout
}

func GetOs() string {
	return config.Os
}

func GetArch() string {
	return config.Arch
}

func GetRegistries() []RegistryConfig {
	return config.Registries
}

func GetReport() ReportConfig {
	return config.Report
}

func GetBundle() BundleConfig {
	return config.Bundle
}

func GetUpload() UploadConfig {
	return config.Upload
}

func GetMetrics() MetricsConfig {
	return config.Metrics
}

// Get gets the current configuration
func Get() Configuration {
	return config
}

// Set replaces the configuration with the passed configuration
func Set(cfg Configuration) {
	config = cfg
	clearParsed()
}

// SetConfigFromStr parses the yaml input and sets the configuration from it
func SetConfigFromStr(configBytes []byte) error {
	var cfg Configuration
	if err := yaml.Unmarshal(configBytes, &cfg); err != nil {
		return err
	}
	Set(cfg)
	return nil
}

// Load loads the passed configuration file into the configuration struct
func Load(configFile string) error {
	if _, err := os.Stat(configFile); err != nil {
		return fmt.Errorf("unable to stat configuration file: %s", configFile)
	}
	if contents, err := os.ReadFile(configFile); err != nil {
		return fmt.Errorf("error reading configuration file: %s", configFile)
	} else if err := SetConfigFromStr(contents); err != nil {
		return fmt.Errorf("error parsing configuration file: %s, the error was: %s", configFile, err)
	}
	return nil
}

// ConfigFor looks for a configuration entry keyed by the passed 'registry' arg (e.g.
// 'index.docker.io') and returns configuration options for that registry from the config.
// If no matching config is found, then a default configuration is returned specifying
// https, and the configured (or runtime) OS and architecture.
//
// Since the config might involve loading a tls.Config with certs, once parsing is
// complete the result is saved for reuse so it doesn't need to be re-parsed.
func ConfigFor(registry string) (RegistryOpts, error) {
	opts := RegistryOpts{
		Scheme:   "https",
		OStype:   orDefault(config.Os, runtime.GOOS),
		ArchType: orDefault(config.Arch, runtime.GOARCH),
	}

	found := RegistryConfig{}
	for _, reg := range config.Registries {
		if reg.Name == registry {
			found = reg
			break
		}
	}
	if found.Name == "" {
		return opts, nil
	}

	parsed.Lock()
	defer parsed.Unlock()
	if cached, ok := parsed.opts[registry]; ok {
		return cached, nil
	}

	if found.Scheme != "" {
		opts.Scheme = found.Scheme
	}

	if found.Auth != emptyAuth {
		opts.Username = found.Auth.User
		opts.Password = found.Auth.Password
		if found.Auth.PasswordFromEnv != "" {
			opts.Password = os.Getenv(found.Auth.PasswordFromEnv)
		}
		opts.Provider = found.Auth.Provider
	}

	if found.Tls != emptyTls {
		var cp *x509.CertPool
		var clientCerts []tls.Certificate = []tls.Certificate{}
		if found.Tls.CA != "" {
			cp = x509.NewCertPool()
			caCert, err := os.ReadFile(found.Tls.CA)
			if err == nil {
				cp.AppendCertsFromPEM(caCert)
			} else {
				return opts, fmt.Errorf("unable to load CA for config entry %s from file: %s", registry, found.Tls.CA)
			}
		}
		if found.Tls.Cert != "" && found.Tls.Key != "" {
			cert, err := tls.LoadX509KeyPair(found.Tls.Cert, found.Tls.Key)
			if err == nil {
				clientCerts = []tls.Certificate{cert}
			} else {
				return opts, fmt.Errorf("unable to load client cert and/or key for config entry %s from files: cert: %s, key: %s", registry, found.Tls.Cert, found.Tls.Key)
			}
		}
		opts.TlsCfg = &tls.Config{
			InsecureSkipVerify: found.Tls.InsecureSkipVerify,
			RootCAs:            cp,
			Certificates:       clientCerts,
		}
	}
	parsed.opts[registry] = opts
	return opts, nil
}

// clearParsed discards cached registry options, e.g. when the configuration is replaced
func clearParsed() {
	parsed.Lock()
	defer parsed.Unlock()
	parsed.opts = make(map[string]RegistryOpts)
}

func orDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
