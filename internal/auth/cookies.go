package auth

// CookieName is the cookie a token of this kind travels in.
func (k Kind) CookieName() string {
	switch k {
	case KindAccess:
		return "accessToken"
	case KindRefresh:
		return "refreshToken"
	default:
		return "token"
	}
}
