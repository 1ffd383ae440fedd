package auth

// Scopes checked by the walk log API.
const (
	ScopeStravaConnect = "strava:connect"
	ScopeWalksRead     = "walks:read"
	ScopeWalksWrite    = "walks:write"
)
