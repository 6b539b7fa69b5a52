package cas

import "strings"

// AttributeMapping names the CAS attributes that map onto local user fields.
// Attributes the server sends under other names are ignored, not errors.
type AttributeMapping struct {
	DisplayName string
	Email       string
	Groups      string
	Quota       string
	Enabled     string
}

// DefaultAttributeMapping matches the attribute names most CAS deployments
// release out of the box.
func DefaultAttributeMapping() AttributeMapping {
	return AttributeMapping{
		DisplayName: "displayName",
		Email:       "mail",
		Groups:      "memberOf",
		Quota:       "quota",
		Enabled:     "enabled",
	}
}

// Identity is the canonical identity extracted from a validation success.
// Every field except UID is optional: a nil field means CAS did not release
// that attribute, and the corresponding local value must be left untouched.
type Identity struct {
	UID         string
	DisplayName *string
	Email       *string
	Groups      []string
	Quota       *string
	Enabled     *bool
}

// MapIdentity extracts an Identity from a validation success using the
// configured attribute mapping. The principal is taken verbatim, lower-cased
// only when the configuration says so; this is the single place a uid is
// derived from a principal.
func (c *Config) MapIdentity(result *SuccessResult) Identity {
	uid := result.Principal
	if c.LowercasePrincipal {
		uid = strings.ToLower(uid)
	}
	identity := Identity{UID: uid}
	if !c.SyncAttributes {
		return identity
	}

	mapping := c.Attributes
	if name := firstAttribute(result.Attributes, mapping.DisplayName); name != "" {
		identity.DisplayName = &name
	}
	if email := firstAttribute(result.Attributes, mapping.Email); email != "" {
		identity.Email = &email
	}
	if mapping.Groups != "" {
		for _, group := range result.Attributes[mapping.Groups] {
			if group != "" {
				identity.Groups = append(identity.Groups, group)
			}
		}
	}
	if quota := firstAttribute(result.Attributes, mapping.Quota); quota != "" {
		identity.Quota = &quota
	}
	if enabled := firstAttribute(result.Attributes, mapping.Enabled); enabled != "" {
		value := enabled == "true" || enabled == "1"
		identity.Enabled = &value
	}
	return identity
}

// firstAttribute returns the first value of the named attribute, or ""
func firstAttribute(attrs map[string][]string, name string) string {
	if name == "" {
		return ""
	}
	values := attrs[name]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
