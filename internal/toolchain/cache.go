package toolchain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Increment when the payload format changes.
const probeCacheSchemaVersion uint16 = 1

// ProbeCache persists version-probe results across runs so repeat
// invocations skip the external probe processes. Thread-safe.
type ProbeCache struct {
	mu  sync.RWMutex
	dir string
}

type probePayload struct {
	Schema  uint16
	Version string
	Target  string
}

// OpenProbeCache initializes the cache at the standard XDG location.
func OpenProbeCache(app string) (*ProbeCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app, "probes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ProbeCache{dir: dir}, nil
}

// keyFor hashes the executable's identity: path, mtime and size.
// Replacing or upgrading the binary invalidates its entry naturally.
func (c *ProbeCache) keyFor(executable string) (string, error) {
	info, err := os.Stat(executable)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d", executable, info.ModTime().UnixNano(), info.Size())
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns a cached probe result if present and valid.
func (c *ProbeCache) Get(executable string) (probeResult, bool) {
	if c == nil {
		return probeResult{}, false
	}
	key, err := c.keyFor(executable)
	if err != nil {
		return probeResult{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// #nosec G304 -- path is derived from a content hash under our dir
	data, err := os.ReadFile(filepath.Join(c.dir, key+".mp"))
	if err != nil {
		return probeResult{}, false
	}
	var payload probePayload
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		return probeResult{}, false
	}
	if payload.Schema != probeCacheSchemaVersion {
		return probeResult{}, false
	}
	return probeResult{Version: payload.Version, Target: payload.Target}, true
}

// Put stores a probe result, replacing the file atomically.
func (c *ProbeCache) Put(executable string, res probeResult) {
	if c == nil {
		return
	}
	key, err := c.keyFor(executable)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	payload := probePayload{
		Schema:  probeCacheSchemaVersion,
		Version: res.Version,
		Target:  res.Target,
	}
	data, err := msgpack.Marshal(&payload)
	if err != nil {
		return
	}
	tmp, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return
	}
	name := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(name)
		return
	}
	if err := os.Rename(name, filepath.Join(c.dir, key+".mp")); err != nil {
		_ = os.Remove(name)
	}
}

// Clear removes every cached entry.
func (c *ProbeCache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	var firstErr error
	for _, entry := range entries {
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil && !errors.Is(firstErr, os.ErrNotExist) {
		return firstErr
	}
	return nil
}
