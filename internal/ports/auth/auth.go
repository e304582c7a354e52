// Package auth es el puerto hacia el colaborador de identidad. El core no
// emite ni interpreta tokens: solo recibe un actor id opaco.
package auth

import "context"

// Claims es lo que el core necesita del colaborador de identidad:
// un actor id opaco para atribuir eventos.
type Claims struct {
	ActorID string
}

// AuthVerifier valida un bearer token. Un token rechazado vuelve como error;
// los claims solo son válidos con err == nil.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
