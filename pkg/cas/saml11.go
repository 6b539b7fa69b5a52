package cas

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// samlRequestEnvelope is the SOAP request posted to /samlValidate. The
// AssertionArtifact carries the service ticket; TARGET travels in the query
// string. Format is fixed by the CAS SAML 1.1 profile.
const samlRequestEnvelope = `<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/"><SOAP-ENV:Header/><SOAP-ENV:Body><samlp:Request xmlns:samlp="urn:oasis:names:tc:SAML:1.0:protocol" MajorVersion="1" MinorVersion="1" RequestID="%s" IssueInstant="%s"><samlp:AssertionArtifact>%s</samlp:AssertionArtifact></samlp:Request></SOAP-ENV:Body></SOAP-ENV:Envelope>`

// postSAMLRequest posts the SAML 1.1 validation request
func (v *Validator) postSAMLRequest(ctx context.Context, ticket, service string) (*http.Response, error) {
	body := fmt.Sprintf(samlRequestEnvelope,
		"_"+uuid.NewString(),
		time.Now().UTC().Format(time.RFC3339),
		xmlEscape(ticket))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		v.config.validateURL(ticket, service), strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("SOAPAction", "http://www.oasis-open.org/committees/security")
	return v.client.Do(req)
}

// samlResponseEnvelope models the subset of the SAML 1.1 response we need.
// Element names match on local name only; servers vary in prefixes.
type samlResponseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Status struct {
				StatusCode struct {
					Value string `xml:"Value,attr"`
				} `xml:"StatusCode"`
				StatusMessage string `xml:"StatusMessage"`
			} `xml:"Status"`
			Assertion struct {
				AuthenticationStatement struct {
					Subject struct {
						NameIdentifier string `xml:"NameIdentifier"`
					} `xml:"Subject"`
				} `xml:"AuthenticationStatement"`
				AttributeStatement struct {
					Attributes []struct {
						Name   string   `xml:"AttributeName,attr"`
						Values []string `xml:"AttributeValue"`
					} `xml:"Attribute"`
				} `xml:"AttributeStatement"`
			} `xml:"Assertion"`
		} `xml:"Response"`
	} `xml:"Body"`
}

// parseSAMLResponse parses the SAML 1.1 SOAP response envelope
func parseSAMLResponse(body []byte) *ValidationResult {
	var envelope samlResponseEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return failure(FailureInternal, "malformed SAML response: %v", err)
	}

	status := envelope.Body.Response.Status
	if !strings.HasSuffix(status.StatusCode.Value, "Success") {
		return failure(FailureInvalidTicket, "SAML status %s: %s",
			status.StatusCode.Value, strings.TrimSpace(status.StatusMessage))
	}

	assertion := envelope.Body.Response.Assertion
	principal := strings.TrimSpace(assertion.AuthenticationStatement.Subject.NameIdentifier)
	if principal == "" {
		return failure(FailureInternal, "SAML assertion without subject")
	}

	attrs := make(map[string][]string)
	for _, attr := range assertion.AttributeStatement.Attributes {
		for _, value := range attr.Values {
			attrs[attr.Name] = append(attrs[attr.Name], strings.TrimSpace(value))
		}
	}

	return &ValidationResult{Success: &SuccessResult{
		Principal:  principal,
		Attributes: attrs,
	}}
}

// xmlEscape escapes a string for embedding in XML character data
func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
