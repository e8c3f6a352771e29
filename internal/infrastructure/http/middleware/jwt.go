package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"3tcapital/goglosas/internal/core/seccion"
	"3tcapital/goglosas/internal/core/session"
	"3tcapital/goglosas/internal/infrastructure/config"
	httperrors "3tcapital/goglosas/internal/infrastructure/http"
)

// SessionClaims are the JWT claims that identify a dashboard user. Role and
// section are read from app_metadata first, then from top-level claims.
type SessionClaims struct {
	Email       string       `json:"email,omitempty"`
	Role        string       `json:"role,omitempty"`
	Seccion     string       `json:"seccion,omitempty"`
	AppMetadata *AppMetadata `json:"app_metadata,omitempty"`
	jwt.RegisteredClaims
}

type AppMetadata struct {
	Role    string `json:"role,omitempty"`
	Seccion string `json:"seccion,omitempty"`
}

// Session converts the verified claims into a session.
func (c SessionClaims) Session() session.Session {
	role, sec := c.Role, c.Seccion
	if c.AppMetadata != nil {
		if c.AppMetadata.Role != "" {
			role = c.AppMetadata.Role
		}
		if c.AppMetadata.Seccion != "" {
			sec = c.AppMetadata.Seccion
		}
	}
	s := session.Session{
		UserID: c.Subject,
		Email:  c.Email,
		Role:   session.ParseRole(role),
	}
	if parsed, ok := seccion.Parse(sec); ok && strings.TrimSpace(sec) != "" {
		s.AssignedSection = parsed
	}
	return s
}

// JWTAuthenticator validates Authorization headers against a remote JWKS
// and stores the resulting session in the request context. With auth
// disabled every request carries the configured default session.
type JWTAuthenticator struct {
	cfg        config.AuthSettings
	log        *slog.Logger
	keyfunc    jwt.Keyfunc
	cancel     context.CancelFunc
	bypassPath map[string]struct{}
	fallback   session.Session
}

func NewJWTAuthenticator(cfg config.AuthSettings, log *slog.Logger) (*JWTAuthenticator, error) {
	if !cfg.Enabled {
		return newAuthenticator(cfg, nil, log), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	override := keyfunc.Override{
		RefreshInterval: 6 * time.Hour,
		RefreshErrorHandlerFunc: func(url string) func(context.Context, error) {
			return func(_ context.Context, err error) {
				log.Error("failed to refresh JWKS", "url", url, "error", err)
			}
		},
		HTTPTimeout: 10 * time.Second,
	}

	jwks, err := keyfunc.NewDefaultOverrideCtx(ctx, []string{cfg.JWKSetURI}, override)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("unable to load JWKS: %w", err)
	}

	auth := newAuthenticator(cfg, jwks.Keyfunc, log)
	auth.cancel = cancel
	return auth, nil
}

// NewJWTAuthenticatorWithKeyfunc builds an authenticator that resolves
// signing keys with kf instead of a remote JWKS.
func NewJWTAuthenticatorWithKeyfunc(cfg config.AuthSettings, kf jwt.Keyfunc, log *slog.Logger) *JWTAuthenticator {
	return newAuthenticator(cfg, kf, log)
}

func newAuthenticator(cfg config.AuthSettings, kf jwt.Keyfunc, log *slog.Logger) *JWTAuthenticator {
	auth := &JWTAuthenticator{
		cfg:        cfg,
		log:        log,
		keyfunc:    kf,
		bypassPath: make(map[string]struct{}),
		fallback:   DefaultSession(cfg),
	}
	for _, path := range cfg.BypassPaths {
		if path != "" {
			auth.bypassPath[path] = struct{}{}
		}
	}
	return auth
}

// DefaultSession is the identity used when auth is disabled and by
// operator tooling.
func DefaultSession(cfg config.AuthSettings) session.Session {
	return session.Session{
		UserID:          cfg.DefaultUserID,
		Email:           cfg.DefaultEmail,
		Role:            session.ParseRole(cfg.DefaultRole),
		AssignedSection: seccion.Seccion(cfg.DefaultSection),
	}
}

// Middleware enforces JWT validation on inbound requests.
func (a *JWTAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled {
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), a.fallback)))
			return
		}
		if a.shouldBypass(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			httperrors.WriteError(w, http.StatusUnauthorized, "Error de Autenticación", []string{"Credenciales de acceso no válidas"}, a.log)
			return
		}

		var claims SessionClaims
		token, err := jwt.ParseWithClaims(tokenString, &claims, a.keyfunc,
			jwt.WithIssuer(a.cfg.IssuerURI),
			jwt.WithLeeway(a.cfg.ClockSkew),
			jwt.WithExpirationRequired(),
			jwt.WithValidMethods([]string{
				jwt.SigningMethodRS256.Alg(),
				jwt.SigningMethodRS384.Alg(),
				jwt.SigningMethodRS512.Alg(),
				jwt.SigningMethodPS256.Alg(),
				jwt.SigningMethodES256.Alg(),
			}),
		)
		if err != nil || !token.Valid {
			a.log.Warn("token validation failed", "error", err)
			httperrors.WriteError(w, http.StatusUnauthorized, "Error de Autenticación", []string{"Token inválido o expirado"}, a.log)
			return
		}

		sess := claims.Session()
		if !sess.Authenticated() {
			httperrors.WriteError(w, http.StatusUnauthorized, "Error de Autenticación", []string{"El token no identifica al usuario"}, a.log)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

// Close stops background JWKS refreshers.
func (a *JWTAuthenticator) Close() {
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *JWTAuthenticator) shouldBypass(path string) bool {
	_, ok := a.bypassPath[path]
	return ok
}

func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing Authorization header")
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid Authorization header format")
	}
	return parts[1], nil
}
