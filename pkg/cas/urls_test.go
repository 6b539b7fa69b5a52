package cas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baseConfig() *Config {
	return &Config{
		ServerHost:      "cas.example.com",
		ServerPort:      443,
		ServerPath:      "/cas",
		ProtocolVersion: ProtocolV2,
	}
}

func TestLoginURL(t *testing.T) {
	cfg := baseConfig()
	assert.Equal(t,
		"https://cas.example.com/cas/login?service=https%3A%2F%2Fapp.example.com%2Fcallback",
		cfg.LoginURL("https://app.example.com/callback"))
}

func TestLoginURLNonDefaultPort(t *testing.T) {
	cfg := baseConfig()
	cfg.ServerPort = 8443
	assert.Equal(t,
		"https://cas.example.com:8443/cas/login?service=https%3A%2F%2Fapp.example.com%2F",
		cfg.LoginURL("https://app.example.com/"))
}

func TestLoginURLOverride(t *testing.T) {
	cfg := baseConfig()
	cfg.LoginURLOverride = "https://sso.example.com/signin"
	assert.Equal(t,
		"https://sso.example.com/signin?service=https%3A%2F%2Fapp.example.com%2F",
		cfg.LoginURL("https://app.example.com/"))
}

func TestLogoutURL(t *testing.T) {
	cfg := baseConfig()
	assert.Equal(t, "https://cas.example.com/cas/logout", cfg.LogoutURL(""))
	assert.Equal(t,
		"https://cas.example.com/cas/logout?service=https%3A%2F%2Fapp.example.com%2F",
		cfg.LogoutURL("https://app.example.com/"))
}

func TestValidateURLByVersion(t *testing.T) {
	tests := []struct {
		version ProtocolVersion
		want    string
	}{
		{ProtocolV1, "https://cas.example.com/cas/validate?service=https%3A%2F%2Fapp.example.com%2F&ticket=ST-1"},
		{ProtocolV2, "https://cas.example.com/cas/serviceValidate?service=https%3A%2F%2Fapp.example.com%2F&ticket=ST-1"},
		{ProtocolV3, "https://cas.example.com/cas/p3/serviceValidate?service=https%3A%2F%2Fapp.example.com%2F&ticket=ST-1"},
		{ProtocolSAML11, "https://cas.example.com/cas/samlValidate?TARGET=https%3A%2F%2Fapp.example.com%2F"},
	}

	for _, tt := range tests {
		t.Run(string(tt.version), func(t *testing.T) {
			cfg := baseConfig()
			cfg.ProtocolVersion = tt.version
			assert.Equal(t, tt.want, cfg.validateURL("ST-1", "https://app.example.com/"))
		})
	}
}

func TestServerBaseTrailingSlash(t *testing.T) {
	cfg := baseConfig()
	cfg.ServerPath = "/cas/"
	assert.Equal(t, "https://cas.example.com/cas", cfg.serverBase())
}
