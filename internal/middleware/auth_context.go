package middleware

import (
	"context"
	"net/http"
	"strings"

	"care-ledger/internal/ports/auth"
)

type claimsKey struct{}

// DebugActorHeader identifica al actor en modo dev (sin verifier).
const DebugActorHeader = "X-Debug-User-ID"

// AuthContext resuelve el actor del request y lo deja en el contexto.
// Con verifier solo cuenta un Bearer válido; sin verifier (modo dev) el
// actor sale de DebugActorHeader. Nunca corta el request: cada handler
// decide si exige actor.
func AuthContext(verifier auth.AuthVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := resolveClaims(r, verifier); ok {
				r = r.WithContext(WithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveClaims(r *http.Request, verifier auth.AuthVerifier) (auth.Claims, bool) {
	if verifier == nil {
		actor := strings.TrimSpace(r.Header.Get(DebugActorHeader))
		return auth.Claims{ActorID: actor}, actor != ""
	}

	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return auth.Claims{}, false
	}
	claims, err := verifier.Verify(r.Context(), token)
	if err != nil || strings.TrimSpace(claims.ActorID) == "" {
		return auth.Claims{}, false
	}
	return claims, true
}

// WithClaims guarda claims en ctx.
func WithClaims(ctx context.Context, c auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom devuelve los claims del request, si hay.
func ClaimsFrom(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return c, ok
}

// ActorID devuelve el actor autenticado del request ("" si no hay).
func ActorID(ctx context.Context) string {
	c, ok := ClaimsFrom(ctx)
	if !ok {
		return ""
	}
	return strings.TrimSpace(c.ActorID)
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
