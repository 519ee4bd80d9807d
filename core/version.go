package core

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

const negotiationKey = "cdi-version"

// VersionSelector picks the protocol version used for the session out of the
// versions the core reports, in the core's preference order.
type VersionSelector func(versions []string) (string, error)

// SelectPreferredVersion picks the first, most preferred, version offered by the core.
func SelectPreferredVersion(versions []string) (string, error) {
	if len(versions) == 0 {
		return "", noSupportedVersionError("core: core reported no supported versions", nil)
	}
	return strings.TrimSpace(versions[0]), nil
}

// SelectHighestSupported picks the highest version offered by the core that
// this client also understands. Without a supported list it behaves like
// SelectPreferredVersion.
func SelectHighestSupported(supported ...string) VersionSelector {
	allowed := make(map[string]struct{}, len(supported))
	for _, version := range supported {
		if trimmed := strings.TrimSpace(version); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}
	return func(versions []string) (string, error) {
		if len(allowed) == 0 {
			return SelectPreferredVersion(versions)
		}
		if len(versions) == 0 {
			return "", noSupportedVersionError("core: core reported no supported versions", nil)
		}
		best := ""
		for _, version := range versions {
			version = strings.TrimSpace(version)
			if _, ok := allowed[version]; !ok {
				continue
			}
			if best == "" || compareVersions(version, best) > 0 {
				best = version
			}
		}
		if best == "" {
			return "", noSupportedVersionError(
				"core: no protocol version is supported by both client and core",
				map[string]any{
					"offered":   append([]string(nil), versions...),
					"supported": sortedKeys(allowed),
				},
			)
		}
		return best, nil
	}
}

// VersionNegotiator resolves the protocol version once per client and caches
// it. Concurrent first resolutions share a single discovery request.
type VersionNegotiator struct {
	discoverer VersionDiscoverer
	selector   VersionSelector
	cache      VersionCache
	group      singleflight.Group
}

func NewVersionNegotiator(discoverer VersionDiscoverer, selector VersionSelector, cache VersionCache) *VersionNegotiator {
	if selector == nil {
		selector = SelectPreferredVersion
	}
	if cache == nil {
		cache = NewMemoryVersionCache()
	}
	return &VersionNegotiator{
		discoverer: discoverer,
		selector:   selector,
		cache:      cache,
	}
}

// Resolve returns the cached version or negotiates it. The shared discovery
// request keeps the starting caller's context values but not its
// cancelation, so one caller giving up does not fail the others. Each caller
// stops waiting only when its own context is done; the request itself is
// bounded by the transport timeout.
func (n *VersionNegotiator) Resolve(ctx context.Context) (string, error) {
	if n == nil || n.discoverer == nil {
		return "", internalError("core: version negotiator is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shared := context.WithoutCancel(ctx)
	results := n.group.DoChan(negotiationKey, func() (any, error) {
		return n.cache.GetOrFetch(shared, n.negotiate)
	})
	select {
	case <-ctx.Done():
		return "", transportFailure(ctx.Err(), map[string]any{"path": PathAPIVersion})
	case result := <-results:
		if result.Err != nil {
			return "", result.Err
		}
		version, _ := result.Val.(string)
		return version, nil
	}
}

// Invalidate drops the cached version; the next Resolve negotiates again.
func (n *VersionNegotiator) Invalidate(ctx context.Context) error {
	if n == nil {
		return nil
	}
	n.group.Forget(negotiationKey)
	return n.cache.Invalidate(ctx)
}

func (n *VersionNegotiator) negotiate(ctx context.Context) (string, error) {
	versions, err := n.discoverer.SupportedVersions(ctx)
	if err != nil {
		return "", err
	}
	return n.selector(versions)
}

// MemoryVersionCache is the default per-client cache.
type MemoryVersionCache struct {
	mu         sync.RWMutex
	version    string
	cached     bool
	generation uint64
}

func NewMemoryVersionCache() *MemoryVersionCache {
	return &MemoryVersionCache{}
}

func (c *MemoryVersionCache) GetOrFetch(ctx context.Context, fetch func(ctx context.Context) (string, error)) (string, error) {
	c.mu.RLock()
	if c.cached {
		version := c.version
		c.mu.RUnlock()
		return version, nil
	}
	generation := c.generation
	c.mu.RUnlock()

	version, err := fetch(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// an Invalidate during the fetch wins over the fetched value
	if c.generation == generation {
		c.version = version
		c.cached = true
	}
	return version, nil
}

func (c *MemoryVersionCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = ""
	c.cached = false
	c.generation++
	return nil
}

func compareVersions(left string, right string) int {
	leftParts := strings.Split(left, ".")
	rightParts := strings.Split(right, ".")
	for index := 0; index < len(leftParts) || index < len(rightParts); index++ {
		l, r := "0", "0"
		if index < len(leftParts) {
			l = leftParts[index]
		}
		if index < len(rightParts) {
			r = rightParts[index]
		}
		ln, lerr := strconv.Atoi(l)
		rn, rerr := strconv.Atoi(r)
		if lerr != nil || rerr != nil {
			if cmp := strings.Compare(l, r); cmp != 0 {
				return cmp
			}
			continue
		}
		if ln != rn {
			if ln > rn {
				return 1
			}
			return -1
		}
	}
	return 0
}

func sortedKeys(values map[string]struct{}) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return compareVersions(keys[i], keys[j]) < 0
	})
	return keys
}
