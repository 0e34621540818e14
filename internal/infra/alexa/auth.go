package alexa

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var errUnauthorized = errors.New("unauthorized")

// Authenticator checks webhook callers. A request passes when it carries any
// configured credential: the shared token (X-Auth-Token header or ?token
// query parameter) or an HS256 bearer JWT. With nothing configured every
// request passes.
type Authenticator struct {
	token     string
	jwtSecret []byte
	logger    *slog.Logger
}

func NewAuthenticator(token, jwtSecret string, logger *slog.Logger) *Authenticator {
	a := &Authenticator{token: token, logger: logger}
	if jwtSecret != "" {
		a.jwtSecret = []byte(jwtSecret)
	}
	return a
}

func (a *Authenticator) Enabled() bool {
	return a.token != "" || len(a.jwtSecret) > 0
}

func (a *Authenticator) Check(r *http.Request) error {
	if !a.Enabled() {
		return nil
	}

	if a.token != "" {
		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) == 1 {
			return nil
		}
	}

	if len(a.jwtSecret) > 0 {
		if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			if err := a.verifyJWT(bearer); err != nil {
				return fmt.Errorf("%w: %w", errUnauthorized, err)
			}
			return nil
		}
	}

	return errUnauthorized
}

func (a *Authenticator) verifyJWT(raw string) error {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.Check(r); err != nil {
			a.logger.Warn("unauthorized alexa request", "remote_addr", r.RemoteAddr, "error", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
