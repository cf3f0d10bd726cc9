// Package discover is a service-discovery client library for hierarchical
// coordination trees (ZooKeeper-shaped: a tree of named nodes where leaves
// may be ephemeral, deleted automatically when the creating session ends, or
// persistent, surviving until explicitly removed).
//
// Components use it to advertise themselves under an application identifier
// and to receive a live stream of peer-appearance and peer-disappearance
// events for building a load-balancer membership set.
//
// # Core concepts
//
//   - Instance: the unit of advertisement (zone, env, appid, hostname,
//     addrs, version, metadata).
//   - Codec: the bi-directional mapping between an Instance and the bytes
//     stored in the coordination tree.
//   - CoordClient: the external coordination-service contract this library
//     is built against (exists, exists_w, get_children_w, create, delete).
//     The etcdcoord subpackage provides one concrete implementation; any
//     type satisfying CoordClient can be substituted.
//   - Registry: the façade bundling a CoordClient and a Codec behind
//     Register, Deregister, and Watch.
//
// # Architecture
//
// The registration engine creates missing ancestor nodes exactly once (using
// an in-memory ancestor-exists cache) and writes the leaf node with
// ephemeral or persistent semantics. The watch engine maintains a recursive,
// self-rearming subscription on an application's child set plus per-child
// existence, diffs successive snapshots, decodes raw child names into
// Instance records, and surfaces a de-duplicated, ordered event stream.
//
// This package does not implement the coordination protocol itself, does
// not persist state across restarts, and does not reconcile after a lost
// session; session loss surfaces as a terminal error on the watch stream
// and callers must re-subscribe.
package discover
