package echoapi

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
)

const contextTokenKey = "userToken"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
}

// NewClaims returns the claims of a learner (or admin) token issued by this app.
func NewClaims(conf *core.Config, id, name, email string, isAdmin bool) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   id,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:    name,
		Email:   email,
		IsAdmin: isAdmin,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func jwtConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// parseToken verifies a raw HS256 token issued by this app.
func parseToken(secret []byte, raw string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func bearerToken(ctx echo.Context) string {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// tokenAuthenticator verifies the learner's bearer token every time the identity check runs.
type tokenAuthenticator struct {
	secret []byte
	raw    string
}

var _ access.Authenticator = tokenAuthenticator{}

func (a tokenAuthenticator) IsTokenValid() bool {
	if a.raw == "" {
		return false
	}
	_, err := parseToken(a.secret, a.raw)
	return err == nil
}

// requestAuthenticator returns the identity verifier of the request.
func requestAuthenticator(ctx echo.Context, conf *core.Config) access.Authenticator {
	if !conf.Access.VerifyIdentity {
		return access.AlwaysValid
	}
	return tokenAuthenticator{secret: []byte(conf.SecretKey), raw: bearerToken(ctx)}
}

// requestLearner returns the learner identified by the request token, if any.
func requestLearner(ctx echo.Context, conf *core.Config) access.Learner {
	raw := bearerToken(ctx)
	if raw == "" {
		return access.Learner{}
	}
	claims, err := parseToken([]byte(conf.SecretKey), raw)
	if err != nil {
		return access.Learner{}
	}
	name := claims.Name
	if name == "" {
		name = claims.Username
	}
	return access.Learner{ID: claims.Subject, Name: name, Email: claims.Email}
}

func contextPerson(ctx echo.Context) core.Person {
	if claims, err := getContextClaims(ctx); err == nil {
		return core.Person{ID: claims.Subject, Username: claims.Username, Email: claims.Email}
	}
	return core.Person{}
}
