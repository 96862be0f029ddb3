package domain

// CredentialPair is the bearer token pair for the Kaya API. A single pair is
// active per process; a refresh replaces it and persists the new pair through
// the credential backend.
type CredentialPair struct {
	AccessToken  string
	RefreshToken string
}
