package auth

import "strings"

// CredentialKind says what a presented bearer value is. Classification
// happens exactly once, at the boundary; everything downstream switches on
// the kind instead of re-sniffing the raw string.
type CredentialKind string

const (
	// KindAccessToken is a signed JWT issued by this server
	KindAccessToken CredentialKind = "access_token"

	// KindSessionID is a legacy opaque upstream session identifier,
	// accepted so pre-JWT integrations keep working
	KindSessionID CredentialKind = "session_id"
)

// Credential is a classified bearer value
type Credential struct {
	Kind CredentialKind
	Raw  string
}

// ClassifyBearer tags a raw bearer value. A compact JWS is three non-empty
// dot-separated segments; everything else is treated as an opaque session id.
func ClassifyBearer(raw string) Credential {
	parts := strings.Split(raw, ".")
	if len(parts) == 3 && parts[0] != "" && parts[1] != "" && parts[2] != "" {
		return Credential{Kind: KindAccessToken, Raw: raw}
	}
	return Credential{Kind: KindSessionID, Raw: raw}
}
