package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/aba-directory/internal/http/respond"
	"github.com/wolfman30/aba-directory/internal/tenancy"
)

// RoleAdmin marks platform administrators in the role claim.
const RoleAdmin = "admin"

// Claims is the dashboard session token. Subject is the profile id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

var errNoBearer = errors.New("missing authorization header")

// Authenticate validates an HMAC-signed bearer token and stores the caller
// as the request actor.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				respond.Fail(w, http.StatusUnauthorized, "Authentication is not configured")
				return
			}
			actor, err := actorFromRequest(r, secret)
			if err != nil {
				respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			next.ServeHTTP(w, r.WithContext(tenancy.WithActor(r.Context(), actor)))
		})
	}
}

// RequireAdmin rejects actors without the admin role. It must run after
// Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := tenancy.ActorFromContext(r.Context())
		if !ok {
			respond.Fail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if !actor.IsAdmin {
			respond.Fail(w, http.StatusForbidden, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorFromRequest(r *http.Request, secret string) (tenancy.Actor, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return tenancy.Actor{}, errNoBearer
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return tenancy.Actor{}, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return tenancy.Actor{}, jwt.ErrTokenInvalidClaims
	}
	return tenancy.Actor{
		ProfileID: claims.Subject,
		Email:     claims.Email,
		IsAdmin:   claims.Role == RoleAdmin,
	}, nil
}

// IssueToken signs a session token for the actor. Used by local tooling and
// tests; production tokens come from the auth provider.
func IssueToken(secret string, actor tenancy.Actor, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ProfileID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: actor.Email,
	}
	if actor.IsAdmin {
		claims.Role = RoleAdmin
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
