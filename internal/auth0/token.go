package auth0

import "fmt"

// ErrorCode is an OAuth2 token endpoint error code. The constants below
// cover RFC 6749 §5.2 plus the codes Auth0 is known to return; any other
// string decodes as-is and survives a re-encode unchanged.
type ErrorCode string

const (
	CodeAccessDenied            ErrorCode = "access_denied"
	CodeInvalidRequest          ErrorCode = "invalid_request"
	CodeInvalidClient           ErrorCode = "invalid_client"
	CodeInvalidGrant            ErrorCode = "invalid_grant"
	CodeUnauthorizedClient      ErrorCode = "unauthorized_client"
	CodeUnsupportedGrantType    ErrorCode = "unsupported_grant_type"
	CodeUnsupportedResponseType ErrorCode = "unsupported_response_type"
	CodeInvalidScope            ErrorCode = "invalid_scope"
	CodeServerError             ErrorCode = "server_error"
	CodeTemporarilyUnavailable  ErrorCode = "temporarily_unavailable"
)

// Known reports whether the code belongs to the fixed enumeration.
func (c ErrorCode) Known() bool {
	switch c {
	case CodeAccessDenied, CodeInvalidRequest, CodeInvalidClient, CodeInvalidGrant,
		CodeUnauthorizedClient, CodeUnsupportedGrantType, CodeUnsupportedResponseType,
		CodeInvalidScope, CodeServerError, CodeTemporarilyUnavailable:
		return true
	}
	return false
}

// Token is the success shape of the token endpoint response.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token"`
	Scope       string `json:"scope"`
	TokenType   string `json:"token_type"`
}

// ProviderError is the error shape of the token endpoint response. It is
// logged in full but never shown to the end user.
type ProviderError struct {
	Code        ErrorCode `json:"error"`
	Description string    `json:"error_description"`
	URI         string    `json:"error_uri,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("auth0: token endpoint returned %q", string(e.Code))
	}
	return fmt.Sprintf("auth0: token endpoint returned %q: %s", string(e.Code), e.Description)
}

// tokenResponse holds both disjoint response shapes; exactly one of them is
// populated by the provider.
type tokenResponse struct {
	Token
	ProviderError
}
