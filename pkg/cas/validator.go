package cas

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/janusgate/janus/pkg/observability"
)

// maxResponseBytes caps how much of a validation response is read. CAS
// responses are small; anything larger is not a CAS server.
const maxResponseBytes = 1 << 20

// seenTicketCacheSize bounds the client-side replay guard
const seenTicketCacheSize = 4096

// Validator performs the network round trip to the CAS validation endpoint
// and parses the response into a ValidationResult. It performs exactly one
// network call per invocation and never retries: CAS tickets are single-use,
// so a transparent retry would always fail and can mask a replay.
type Validator struct {
	config *Config
	client *http.Client
	logger *observability.Logger

	// seen remembers tickets this process already submitted for validation,
	// keyed to the service they were submitted with. A second submission is
	// refused locally without touching the network.
	seen *lru.Cache[string, string]
}

// NewValidator creates a Validator for the given configuration
func NewValidator(config *Config, logger *observability.Logger) *Validator {
	timeout := config.ValidateTimeout
	if timeout <= 0 {
		timeout = DefaultValidateTimeout
	}
	return NewValidatorWithClient(config, logger, &http.Client{Timeout: timeout})
}

// NewValidatorWithClient creates a Validator using a caller-supplied HTTP
// client, e.g. one trusting a private CA.
func NewValidatorWithClient(config *Config, logger *observability.Logger, client *http.Client) *Validator {
	seen, _ := lru.New[string, string](seenTicketCacheSize)
	return &Validator{
		config: config,
		client: client,
		logger: logger,
		seen:   seen,
	}
}

// Validate exchanges a service ticket for an identity assertion. The service
// URL must be exactly the one the ticket was issued for; it is passed through
// unmodified. Transport and parse errors are reported as INTERNAL_ERROR,
// protocol-level rejections with the server-reported code.
func (v *Validator) Validate(ctx context.Context, ticket, service string) *ValidationResult {
	if ticket == "" {
		return failure(FailureInvalidRequest, "empty ticket")
	}
	if service == "" {
		return failure(FailureInvalidRequest, "empty service URL")
	}

	if prevService, ok := v.seen.Get(ticket); ok {
		if prevService != service {
			v.logger.WithField("ticket", ticket).Warn("ticket resubmitted for a different service")
			return failure(FailureInvalidService, "ticket was issued for a different service")
		}
		return failure(FailureInvalidTicket, "ticket already submitted for validation")
	}
	v.seen.Add(ticket, service)

	var (
		resp *http.Response
		err  error
	)
	if v.config.ProtocolVersion == ProtocolSAML11 {
		resp, err = v.postSAMLRequest(ctx, ticket, service)
	} else {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, v.config.validateURL(ticket, service), nil)
		if reqErr != nil {
			return failure(FailureInternal, "building validation request: %v", reqErr)
		}
		resp, err = v.client.Do(req)
	}
	if err != nil {
		v.logger.WithError(err).Error("CAS validation request failed")
		return failure(FailureInternal, "validation request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return failure(FailureInternal, "reading validation response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return failure(FailureInternal, "validation endpoint returned HTTP %d", resp.StatusCode)
	}

	switch v.config.ProtocolVersion {
	case ProtocolV1:
		return parsePlainResponse(string(body))
	case ProtocolSAML11:
		return parseSAMLResponse(body)
	default:
		return parseXMLResponse(body)
	}
}

// parsePlainResponse parses the CAS 1.0 two-line plain text response:
// "yes\n<username>\n" on success, "no\n\n" on failure.
func parsePlainResponse(body string) *ValidationResult {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	switch {
	case len(lines) >= 2 && lines[0] == "yes" && lines[1] != "":
		return &ValidationResult{Success: &SuccessResult{
			Principal:  lines[1],
			Attributes: map[string][]string{},
		}}
	case len(lines) >= 1 && lines[0] == "no":
		return failure(FailureInvalidTicket, "CAS server rejected ticket")
	default:
		return failure(FailureInternal, "malformed CAS 1.0 response")
	}
}

// parseXMLResponse parses the CAS 2.0/3.0 serviceResponse envelope
func parseXMLResponse(body []byte) *ValidationResult {
	var envelope serviceResponse
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return failure(FailureInternal, "malformed CAS response: %v", err)
	}

	if envelope.Failure != nil {
		return &ValidationResult{Failure: &FailureResult{
			Code:   parseFailureCode(strings.TrimSpace(envelope.Failure.Code)),
			Detail: strings.TrimSpace(envelope.Failure.Message),
		}}
	}
	if envelope.Success == nil {
		return failure(FailureInternal, "CAS response carries neither success nor failure")
	}
	if envelope.Success.User == "" {
		return failure(FailureInternal, "CAS success response without principal")
	}

	attrs := make(map[string][]string)
	for _, attr := range envelope.Success.Attributes.Values {
		name := attr.XMLName.Local
		attrs[name] = append(attrs[name], strings.TrimSpace(attr.Value))
	}

	return &ValidationResult{Success: &SuccessResult{
		Principal:           envelope.Success.User,
		Attributes:          attrs,
		ProxyGrantingTicket: envelope.Success.ProxyGrantingTicket,
	}}
}

// Config returns the configuration the validator was built with
func (v *Validator) Config() *Config {
	return v.config
}
