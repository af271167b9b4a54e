package store

import (
	"fmt"

	"github.com/aceeric/airgap/impl/auth"
	"github.com/aceeric/airgap/impl/config"
)

// registryOpts gets the configuration for the passed registry host. If the registry
// gets its password from a token provider then the current provider credential
// replaces any configured user and password.
func registryOpts(registry string) (config.RegistryOpts, error) {
	opts, err := config.ConfigFor(registry)
	if err != nil {
		return opts, err
	}
	if opts.Provider != "" {
		cred, ok := auth.Lookup(registry)
		if !ok {
			return opts, fmt.Errorf("token provider %q for registry %s is not registered", opts.Provider, registry)
		}
		opts.Username, opts.Password = cred.Username, cred.Password
	}
	return opts, nil
}
