package auth

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims carries the caller's numeric user id in "sub" and the profile ids
// issued by the identity service.
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	DoctorID  *int64 `json:"doctor_id,omitempty"`
	PatientID *int64 `json:"patient_id,omitempty"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey selects HS256 verification instead of JWKS.
	SigningKey []byte
	Skipper    func(c echo.Context) bool
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	jwksURL := cfg.JWKSURL
	if jwksURL == "" && cfg.Issuer != "" && len(cfg.SigningKey) == 0 {
		if u, err := DiscoverJWKSURL(cfg.Issuer); err == nil {
			jwksURL = u
		}
	}

	var keyFunc jwt.Keyfunc
	methods := []string{"RS256"}
	if len(cfg.SigningKey) > 0 {
		keyFunc = func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
		methods = []string{"HS256"}
	} else {
		keyFunc = NewJWKSCache(jwksURL, defaultJWKSCacheTTL).keyFunc
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods)}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			raw, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			id, err := claims.identity()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
			return next(c)
		}
	}
}

func (cl *Claims) identity() (Identity, error) {
	uid, err := strconv.ParseInt(cl.Subject, 10, 64)
	if err != nil || uid <= 0 {
		return Identity{}, errors.New("token subject is not a user id")
	}
	if !validRole(cl.Role) {
		return Identity{}, errors.New("token role is not recognised")
	}
	return Identity{UserID: uid, Role: cl.Role, DoctorID: cl.DoctorID, PatientID: cl.PatientID}, nil
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// a websocket handshake, so the access_token query parameter is accepted too.
func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		if t := c.QueryParam("access_token"); t != "" {
			return t, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// Dev identity headers, honoured only by DevAuthMiddleware.
const (
	DevUserHeader    = "X-Dev-User-ID"
	DevRoleHeader    = "X-Dev-Role"
	DevDoctorHeader  = "X-Dev-Doctor-ID"
	DevPatientHeader = "X-Dev-Patient-ID"
)

// DevAuthMiddleware trusts the X-Dev-* headers and falls back to user 1 as
// admin. Never mount it outside development.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header
			id := Identity{UserID: 1, Role: RoleAdmin}

			if v := h.Get(DevUserHeader); v != "" {
				uid, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid "+DevUserHeader)
				}
				id.UserID = uid
			}
			if v := h.Get(DevRoleHeader); v != "" {
				if !validRole(v) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid "+DevRoleHeader)
				}
				id.Role = v
			}
			id.DoctorID = optionalID(h.Get(DevDoctorHeader))
			id.PatientID = optionalID(h.Get(DevPatientHeader))

			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
			return next(c)
		}
	}
}

func optionalID(s string) *int64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
