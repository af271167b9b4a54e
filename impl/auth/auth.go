// Package auth supplies registry credentials from token providers. A token provider
// is a cloud service that hands out short-lived registry passwords, like AWS Elastic
// Container Registry. Each registry configured with a provider is registered once
// before a run. Its credential is then refreshed in the background until the run
// context is cancelled, so long batches don't fail part way through on an expired
// password.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// defaultRefresh is used when a registry doesn't configure an expiry.
	defaultRefresh = 12 * time.Hour
	// refreshMargin is how long before a provider-reported expiration a credential
	// is refreshed.
	refreshMargin = 10 * time.Minute
	// minRefresh keeps a credential that expires very soon (or already has) from
	// turning the refresher into a busy loop.
	minRefresh = time.Second
)

// Credential is a registry user name and password issued by a token provider.
type Credential struct {
	Username string
	Password string
}

// credentialGetter gets a credential for a registry using the provider options
// configured for the registry. It also returns the time the credential expires, or
// the zero time if the provider doesn't say.
type credentialGetter func(ctx context.Context, registry string, options string) (Credential, time.Time, error)

// getters has the credential getter for each supported provider, keyed by the
// lower case provider name used in the configuration.
var getters = map[string]credentialGetter{
	"ecr": getECRCredential,
}

// registration holds the current credential for one registry.
type registration struct {
	sync.RWMutex
	registry string
	provider string
	options  string
	getter   credentialGetter
	refresh  time.Duration
	cred     Credential
	expires  time.Time
}

var (
	mu            sync.RWMutex
	registrations = make(map[string]*registration)
)

// IsRegistered returns true if the passed registry already has a token provider.
func IsRegistered(registry string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registrations[registry]
	return ok
}

// Register sets up the named provider for the passed registry. It gets an initial
// credential to fail early if the provider can't issue one, and then starts a goroutine
// that refreshes the credential until the passed context is done. The credential is
// refreshed every 'expiry' (12h if empty) or shortly before the provider says it
// expires, whichever comes first.
func Register(ctx context.Context, registry, provider, options, expiry string) error {
	getter, ok := getters[strings.ToLower(provider)]
	if !ok {
		return fmt.Errorf("unknown token provider %q for registry %s", provider, registry)
	}
	refresh := defaultRefresh
	if expiry != "" {
		parsed, err := time.ParseDuration(expiry)
		if err != nil {
			return fmt.Errorf("invalid expiry %q for registry %s: %w", expiry, registry, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("expiry for registry %s must be positive, got %s", registry, expiry)
		}
		refresh = parsed
	}
	if IsRegistered(registry) {
		return fmt.Errorf("token provider already registered for registry %s", registry)
	}
	cred, expires, err := getter(ctx, registry, options)
	if err != nil {
		return fmt.Errorf("unable to get %s credential for registry %s: %w", provider, registry, err)
	}
	r := &registration{
		registry: registry,
		provider: strings.ToLower(provider),
		options:  options,
		getter:   getter,
		refresh:  refresh,
		cred:     cred,
		expires:  expires,
	}
	mu.Lock()
	registrations[registry] = r
	mu.Unlock()
	go r.refresher(ctx)
	return nil
}

// Lookup returns the current credential for the passed registry. The bool is false
// if no provider was registered for the registry.
func Lookup(registry string) (Credential, bool) {
	mu.RLock()
	r, ok := registrations[registry]
	mu.RUnlock()
	if !ok {
		return Credential{}, false
	}
	r.RLock()
	defer r.RUnlock()
	return r.cred, true
}

// nextRefresh is the wait until the next credential refresh.
func (r *registration) nextRefresh() time.Duration {
	r.RLock()
	defer r.RUnlock()
	wait := r.refresh
	if !r.expires.IsZero() {
		if untilExpiry := time.Until(r.expires) - refreshMargin; untilExpiry < wait {
			wait = untilExpiry
		}
	}
	return max(wait, minRefresh)
}

// refresher replaces the credential on a schedule until the context is done. A
// failed refresh keeps the old credential and is retried on the next schedule.
func (r *registration) refresher(ctx context.Context) {
	for {
		timer := time.NewTimer(r.nextRefresh())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		log.Debugf("refreshing %s credential for registry %s", r.provider, r.registry)
		cred, expires, err := r.getter(ctx, r.registry, r.options)
		if err != nil {
			log.Errorf("error refreshing %s credential for registry %s: %s", r.provider, r.registry, err)
			continue
		}
		r.Lock()
		r.cred, r.expires = cred, expires
		r.Unlock()
	}
}
