package dispatcher

// AuthState is a connection's authentication state (spec §4.8): Anonymous
// until a successful login/claim, Authenticated(user) afterward, back to
// Anonymous on logout.
type AuthState struct {
	authenticated bool
	username      string
}

func Anonymous() AuthState { return AuthState{} }

func (a AuthState) IsAuthenticated() bool { return a.authenticated }
func (a AuthState) Username() string      { return a.username }
func (a AuthState) IsRoot() bool          { return a.authenticated && a.username == "root" }

func (a AuthState) Authenticate(username string) AuthState {
	return AuthState{authenticated: true, username: username}
}

func (a AuthState) Logout() AuthState { return AuthState{} }

// Session is the per-connection state the dispatcher needs: its auth state
// and which space unqualified model names resolve against.
type Session struct {
	Auth         AuthState
	CurrentSpace string
}
