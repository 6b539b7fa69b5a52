package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/janusgate/janus/pkg/cas"
	"github.com/janusgate/janus/pkg/observability"
)

// Setting keys, matching the flat key names of the original admin app
const (
	KeyServerHostname       = "cas_server_hostname"
	KeyServerPort           = "cas_server_port"
	KeyServerPath           = "cas_server_path"
	KeyProtocolVersion      = "cas_protocol_version"
	KeyForceLogin           = "cas_force_login"
	KeyForceLoginExceptions = "cas_force_login_exceptions"
	KeyDisableLogout        = "cas_disable_logout"
	KeyLogoutServers        = "cas_handlelogout_servers"
	KeyLoginURL             = "cas_login_url"
	KeyLogoutURL            = "cas_logout_url"
	KeyUserIDLowercase      = "cas_userid_lowercase"
	KeyKeepTicketIDs        = "cas_keep_ticket_ids"
	KeySyncAttributes       = "cas_sync_attributes"
	KeyDisplayNameMapping   = "cas_displayname_mapping"
	KeyEmailMapping         = "cas_email_mapping"
	KeyGroupMapping         = "cas_group_mapping"
	KeyQuotaMapping         = "cas_quota_mapping"
	KeyEnabledMapping       = "cas_enabled_mapping"
)

// recognizedKeys is the closed set the admin save endpoint will persist
var recognizedKeys = map[string]bool{
	KeyServerHostname:       true,
	KeyServerPort:           true,
	KeyServerPath:           true,
	KeyProtocolVersion:      true,
	KeyForceLogin:           true,
	KeyForceLoginExceptions: true,
	KeyDisableLogout:        true,
	KeyLogoutServers:        true,
	KeyLoginURL:             true,
	KeyLogoutURL:            true,
	KeyUserIDLowercase:      true,
	KeyKeepTicketIDs:        true,
	KeySyncAttributes:       true,
	KeyDisplayNameMapping:   true,
	KeyEmailMapping:         true,
	KeyGroupMapping:         true,
	KeyQuotaMapping:         true,
	KeyEnabledMapping:       true,
}

// Provider assembles a validated cas.Config from the settings store
type Provider struct {
	store  Store
	logger *observability.Logger
}

// NewProvider creates a config provider backed by the given store
func NewProvider(store Store, logger *observability.Logger) *Provider {
	return &Provider{store: store, logger: logger}
}

// Load reads every stored key and assembles the authentication config.
// Missing keys fall back to defaults; the result is validated before it is
// returned.
func (p *Provider) Load(ctx context.Context) (*cas.Config, error) {
	values, err := p.store.All(ctx)
	if err != nil {
		return nil, err
	}
	return configFromValues(values)
}

// configFromValues builds and validates a config from raw key/value pairs
func configFromValues(values map[string]string) (*cas.Config, error) {
	cfg := &cas.Config{
		ServerHost:           values[KeyServerHostname],
		ServerPath:           values[KeyServerPath],
		ProtocolVersion:      cas.ProtocolV2,
		ForceLogin:           parseBool(values[KeyForceLogin]),
		ForceLoginExceptions: parseList(values[KeyForceLoginExceptions]),
		DisableLogout:        parseBool(values[KeyDisableLogout]),
		LogoutAllowedServers: parseList(values[KeyLogoutServers]),
		LoginURLOverride:     values[KeyLoginURL],
		LogoutURLOverride:    values[KeyLogoutURL],
		ValidateTimeout:      cas.DefaultValidateTimeout,
		LowercasePrincipal:   parseBool(values[KeyUserIDLowercase]),
		KeepTicketIDs:        parseBool(values[KeyKeepTicketIDs]),
		SyncAttributes:       parseBool(values[KeySyncAttributes]),
		Attributes:           cas.DefaultAttributeMapping(),
	}

	if raw := values[KeyServerPort]; raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", KeyServerPort, raw, err)
		}
		cfg.ServerPort = port
	}

	if raw := values[KeyProtocolVersion]; raw != "" {
		version, err := cas.ParseProtocolVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", KeyProtocolVersion, err)
		}
		cfg.ProtocolVersion = version
	}

	if v := values[KeyDisplayNameMapping]; v != "" {
		cfg.Attributes.DisplayName = v
	}
	if v := values[KeyEmailMapping]; v != "" {
		cfg.Attributes.Email = v
	}
	if v := values[KeyGroupMapping]; v != "" {
		cfg.Attributes.Groups = v
	}
	if v := values[KeyQuotaMapping]; v != "" {
		cfg.Attributes.Quota = v
	}
	if v := values[KeyEnabledMapping]; v != "" {
		cfg.Attributes.Enabled = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseBool accepts the truthy spellings HTML checkbox forms send
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// parseList splits a comma-separated value, dropping empty entries
func parseList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
