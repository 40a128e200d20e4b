package model

// TokenManager generates and validates identity access tokens.
type TokenManager interface {
	GenerateAccessToken(identity Identity) (string, error)
	ParseAccessToken(token string) (Identity, error)
}
