package realtime

import (
	"net/http"

	"github.com/motlatsimoea/fnd/pkg/logger"
	"github.com/motlatsimoea/fnd/pkg/utils"
)

// AccessTokenCookie is the cookie the login handler sets and the socket
// handshake reads.
const AccessTokenCookie = "access_token"

// ResolveIdentity extracts and validates the bearer credential from a
// WebSocket handshake. It looks at the access_token cookie first, then
// the token query parameter. Any failure (missing, malformed, expired,
// bad signature) yields anonymous; rejecting the connection is the
// caller's decision.
func ResolveIdentity(r *http.Request) (uint, bool) {
	token := ""
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return 0, false
	}

	claims, err := utils.ValidateToken(token)
	if err != nil {
		logger.Debug().Err(err).Msg("Socket credential rejected, treating as anonymous")
		return 0, false
	}
	return claims.UserID, true
}
