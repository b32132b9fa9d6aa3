package webserver

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stockpile-io/stockpile/config"
	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stockpile-io/stockpile/internal/policy"
)

// Token types carried in the typ claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// TokenClaims is the JWT payload issued to API callers.
type TokenClaims struct {
	UID      int64  `json:"uid,string"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Typ      string `json:"typ"`
	jwt.RegisteredClaims
}

// CreateToken issues a signed token of the given type for user. Refresh
// tokens live 24x the configured access lifetime.
func CreateToken(cfg *config.AppConfig, user *domain.SysUser, typ string) (string, error) {
	expire := time.Duration(cfg.Web.JwtExpire) * time.Minute
	if typ == TokenRefresh {
		expire = expire * 24
	}
	claims := TokenClaims{
		UID:      user.ID,
		Username: user.Username,
		Role:     user.Role,
		Typ:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.System.Appid,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Web.Secret))
}

// ParseToken verifies sig and expiry and returns the claims.
func ParseToken(cfg *config.AppConfig, tokenStr string) (*TokenClaims, error) {
	claims := new(TokenClaims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.Web.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func jwtMiddleware(cfg *config.AppConfig) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.Web.Secret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(TokenClaims)
		},
	})
}

// callerMiddleware converts verified claims into a policy.Caller. Refresh
// tokens are not valid for API access.
func callerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				c.Set(ctxKeyCaller, policy.Anonymous)
				return next(c)
			}
			claims, ok := token.Claims.(*TokenClaims)
			if !ok || claims.Typ != TokenAccess {
				c.Set(ctxKeyCaller, policy.Anonymous)
				return next(c)
			}
			c.Set(ctxKeyCaller, policy.Caller{
				ID:            claims.UID,
				Username:      claims.Username,
				Role:          claims.Role,
				Authenticated: true,
			})
			return next(c)
		}
	}
}
