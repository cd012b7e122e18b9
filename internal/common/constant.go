package common

// Cookie names used to carry credentials between the service and clients.
const (
	AccessTokenCookieName  = "access_token"
	RefreshTokenCookieName = "refresh_token"
)

// Role names stored in the users table.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
