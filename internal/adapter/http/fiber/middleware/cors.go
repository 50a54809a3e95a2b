package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	fibercors "github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/seu-repo/sigec-posto/pkg/config"
)

// ErrCORSWildcardCredentials is returned for a config that allows
// credentials from any origin. Browsers refuse that pairing.
var ErrCORSWildcardCredentials = errors.New("cors: credentials cannot be allowed for a wildcard origin")

// NewCORS builds the CORS middleware from the loaded config. Defaults live
// in pkg/config; fields left empty here fall back to fiber's own.
func NewCORS(cfg config.CORSConfig) (fiber.Handler, error) {
	if cfg.Credentials && cfg.AllowsAnyOrigin() {
		return nil, ErrCORSWildcardCredentials
	}
	return fibercors.New(fibercors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     strings.Join(cfg.AllowedMethods, ","),
		AllowHeaders:     strings.Join(cfg.AllowedHeaders, ","),
		ExposeHeaders:    strings.Join(cfg.ExposeHeaders, ","),
		AllowCredentials: cfg.Credentials,
		MaxAge:           cfg.MaxAge,
	}), nil
}
