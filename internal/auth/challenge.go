package auth

import "golang.org/x/oauth2"

// Challenge is a PKCE verifier and its S256 challenge.
type Challenge struct {
	Challenge string
	Verifier  string
}

// GenerateChallenge returns a fresh verifier and its unpadded base64url
// SHA-256 challenge.
func GenerateChallenge() (Challenge, error) {
	verifier := oauth2.GenerateVerifier()
	return Challenge{
		Challenge: oauth2.S256ChallengeFromVerifier(verifier),
		Verifier:  verifier,
	}, nil
}
