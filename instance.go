package discover

import (
	"fmt"
	"sort"
	"strings"
)

// Instance is the unit of advertisement registered into, and discovered
// from, the coordination tree. Appid is the parent directory under which
// the instance's leaf lives; Addrs may carry more than one endpoint.
type Instance struct {
	// Zone is the deployment zone.
	Zone string

	// Env is the environment tag (e.g. "prod", "test").
	Env string

	// Appid is the path-like application identifier beginning with "/"
	// (e.g. "/org/provider"). It is the parent directory in the
	// coordination tree under which this instance's leaf is created.
	Appid string

	// Hostname identifies the host this instance runs on.
	Hostname string

	// Addrs is an ordered sequence of endpoint URIs. Order is preserved on
	// the wire but is not significant for identity (see Identity).
	Addrs []string

	// Version is the instance's version string.
	Version string

	// Metadata is free-form. The recognised key "dynamic" selects persistent
	// registration when its value is "false"; any other value, or no key,
	// selects ephemeral registration (see Dynamic).
	Metadata map[string]string
}

// metadataDynamicKey is the recognised metadata key controlling ephemeral
// vs. persistent registration semantics.
const metadataDynamicKey = "dynamic"

// Dynamic reports whether this instance should be registered as an
// ephemeral node: Metadata["dynamic"] != "false", with an absent key
// defaulting to true.
func (ins *Instance) Dynamic() bool {
	if ins.Metadata == nil {
		return true
	}
	v, ok := ins.Metadata[metadataDynamicKey]
	if !ok {
		return true
	}
	return v != "false"
}

// Validate checks the invariants an Instance must satisfy before it is
// handed to the registration engine: Appid must begin with "/" and contain
// no empty path segments.
func (ins *Instance) Validate() error {
	if !strings.HasPrefix(ins.Appid, "/") {
		return fmt.Errorf("appid %q must begin with \"/\"", ins.Appid)
	}
	for _, seg := range strings.Split(ins.Appid, "/")[1:] {
		if seg == "" {
			return fmt.Errorf("appid %q contains an empty path segment", ins.Appid)
		}
	}
	return nil
}

// Identity is the de-duplication key used by the watch engine's consumer
// mirror: two instances that agree on Appid, Version, Env, and Addrs
// (compared without regard to order) are considered the same member.
// Hostname, Zone, and Metadata do not participate.
type Identity struct {
	Appid   string
	Version string
	Env     string
	addrs   string // sorted Addrs joined with a separator that cannot appear unescaped
}

// identityAddrSep joins Addrs for identity comparison. Addresses are URIs
// and may legitimately contain "&", so a separator outside the printable
// ASCII range used by URIs is used instead.
const identityAddrSep = "\x00"

// Identity computes the de-duplication identity for this instance.
func (ins *Instance) Identity() Identity {
	addrs := append([]string(nil), ins.Addrs...)
	sort.Strings(addrs)
	return Identity{
		Appid:   ins.Appid,
		Version: ins.Version,
		Env:     ins.Env,
		addrs:   strings.Join(addrs, identityAddrSep),
	}
}
