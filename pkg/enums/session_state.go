package enums

// SessionState is the lifecycle phase of the client session.
type SessionState string

const (
	SessionStateUnauthenticated SessionState = "unauthenticated"
	SessionStateResolving       SessionState = "resolving"
	SessionStateAuthenticated   SessionState = "authenticated"
)

// String implements fmt.Stringer.
func (s SessionState) String() string {
	return string(s)
}
