// Package settings persists the authentication configuration as flat
// key/value pairs and exposes the admin save endpoint.
//
// # Overview
//
// Configuration lives in the janus_settings table, one row per key, using
// the original flat key names (cas_server_hostname, cas_protocol_version,
// cas_disable_logout, ...). Provider.Load assembles those rows into a
// validated cas.Config. Handler accepts the admin settings form, validates
// the combined result, and writes only recognized keys.
//
// # Related Packages
//
//   - pkg/cas: the Config type assembled here
//   - pkg/api: mounts the admin save route
package settings
