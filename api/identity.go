/*
identity.go - Acting-user resolution for approval actions

PURPOSE:
  Approvals and revocations record who performed them. The acting user is
  carried in the X-Acting-User request header, stashed on the request
  context by ActorMiddleware, and read back through HeaderIdentity when
  the approval service needs it.

SECURITY NOTE:
  The header is trusted as-is. Authentication sits in front of this
  service; see DEVOPS_SECURITY.md for production requirements.

SEE ALSO:
  - approval/service.go: consumer of the Identity interface
*/
package api

import (
	"context"
	"net/http"
)

// ActingUserHeader names the request header carrying the actor.
const ActingUserHeader = "X-Acting-User"

type contextKey string

const actingUserKey contextKey = "acting_user"

// ActorMiddleware copies the acting-user header onto the request context.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := r.Header.Get(ActingUserHeader); actor != "" {
			r = r.WithContext(context.WithValue(r.Context(), actingUserKey, actor))
		}
		next.ServeHTTP(w, r)
	})
}

// HeaderIdentity resolves the acting user from the request context.
// Requests without a header fall back to "system".
type HeaderIdentity struct{}

func (HeaderIdentity) ActingUser(ctx context.Context) (string, error) {
	if actor, ok := ctx.Value(actingUserKey).(string); ok && actor != "" {
		return actor, nil
	}
	return "system", nil
}
