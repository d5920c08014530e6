package config

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Key names a client parameter. The key set is fixed; asking for any other
// key is a programming error.
type Key string

const (
	KeyHostname      Key = "HOSTNAME"
	KeyPort          Key = "WRTCTLD_DEFAULT_PORT"
	KeySSLPort       Key = "WRTCTL_SSL_PORT"
	KeyDaemonSSLPort Key = "WRTCTLD_SSL_PORT"
	KeyKeyPath       Key = "DEFAULT_KEY_PATH"
	KeyUseSSL        Key = "USE_SSL"
	KeyNetOK         Key = "NET_OK"
	KeyNetErrTimeout Key = "NET_ERR_TIMEOUT"
)

type kind int

const (
	kindString kind = iota
	kindPort
	kindBool
	kindCode
)

var keyKinds = map[Key]kind{
	KeyHostname:      kindString,
	KeyPort:          kindPort,
	KeySSLPort:       kindPort,
	KeyDaemonSSLPort: kindPort,
	KeyKeyPath:       kindString,
	KeyUseSSL:        kindBool,
	KeyNetOK:         kindCode,
	KeyNetErrTimeout: kindCode,
}

// Keys returns every known key in stable order.
func Keys() []Key {
	keys := make([]Key, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Params holds the mutable defaults of one client. An override passed to a
// Resolve call becomes the new default for every later call.
type Params struct {
	mu     sync.RWMutex
	values map[Key]string
}

func newParams(values map[Key]string) *Params {
	p := &Params{values: make(map[Key]string, len(keyKinds))}
	for k := range keyKinds {
		v, ok := values[k]
		if !ok {
			panic(fmt.Sprintf("config: no value for parameter %s", k))
		}
		p.values[k] = v
	}
	return p
}

func mustKind(k Key) kind {
	kd, ok := keyKinds[k]
	if !ok {
		panic(fmt.Sprintf("config: unknown parameter %q", string(k)))
	}
	return kd
}

// Get returns the current value of k.
func (p *Params) Get(k Key) string {
	mustKind(k)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values[k]
}

// Set validates v against the type of k and stores it.
func (p *Params) Set(k Key, v string) error {
	if err := validateValue(k, mustKind(k), v); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[k] = v
	return nil
}

// Int returns a port or code parameter as an int.
func (p *Params) Int(k Key) int {
	switch mustKind(k) {
	case kindPort, kindCode:
	default:
		panic(fmt.Sprintf("config: parameter %s is not numeric", k))
	}
	n, _ := strconv.Atoi(p.Get(k))
	return n
}

// Bool returns a boolean parameter.
func (p *Params) Bool(k Key) bool {
	if mustKind(k) != kindBool {
		panic(fmt.Sprintf("config: parameter %s is not boolean", k))
	}
	b, _ := strconv.ParseBool(p.Get(k))
	return b
}

// ResolveString stores *override as the new default when it is non-nil and
// returns the effective value.
func (p *Params) ResolveString(k Key, override *string) (string, error) {
	if override != nil {
		if err := p.Set(k, *override); err != nil {
			return "", err
		}
	}
	return p.Get(k), nil
}

// ResolveInt is ResolveString for numeric parameters.
func (p *Params) ResolveInt(k Key, override *int) (int, error) {
	if override != nil {
		if err := p.Set(k, strconv.Itoa(*override)); err != nil {
			return 0, err
		}
	}
	return p.Int(k), nil
}

// ResolveBool is ResolveString for boolean parameters.
func (p *Params) ResolveBool(k Key, override *bool) (bool, error) {
	if override != nil {
		if err := p.Set(k, strconv.FormatBool(*override)); err != nil {
			return false, err
		}
	}
	return p.Bool(k), nil
}

// Snapshot returns a copy of all values.
func (p *Params) Snapshot() map[Key]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[Key]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	return newParams(p.Snapshot())
}

func validateValue(k Key, kd kind, v string) error {
	switch kd {
	case kindPort:
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("%s: invalid port %q", k, v)
		}
	case kindBool:
		if _, err := strconv.ParseBool(v); err != nil {
			return fmt.Errorf("%s: invalid boolean %q", k, v)
		}
	case kindCode:
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%s: invalid status code %q", k, v)
		}
	case kindString:
		if v == "" {
			return fmt.Errorf("%s: value cannot be empty", k)
		}
	}
	return nil
}
