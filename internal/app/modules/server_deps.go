package modules

import (
	"strings"
	"time"

	"clustermap.io/clustermap/internal/api/handlers"
	"clustermap.io/clustermap/internal/api/middleware"
	"clustermap.io/clustermap/internal/config"
)

// tokenLifetime bounds tokens minted by cmd tooling; the server only verifies.
const tokenLifetime = time.Hour

// NewServerDeps builds base server deps then lets each module contribute explicit wiring.
func NewServerDeps(cfg *config.Config, infra *Infrastructure, mods []Module) handlers.ServerDeps {
	deps := handlers.ServerDeps{
		Pools:         infra.Pools,
		ReloadEnabled: cfg.Security.ReloadEnabled(),
	}
	for _, mod := range mods {
		if mod == nil {
			continue
		}
		contributor, ok := mod.(ServerDepsContributor)
		if !ok {
			continue
		}
		contributor.ContributeServerDeps(&deps)
	}
	return deps
}

// NewJWTConfig builds the reload endpoint's token settings.
func NewJWTConfig(cfg *config.Config) middleware.JWTConfig {
	verificationKeys := make([][]byte, 0, len(cfg.Security.JWTVerificationKeys))
	for _, key := range cfg.Security.JWTVerificationKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		verificationKeys = append(verificationKeys, []byte(key))
	}
	return middleware.JWTConfig{
		SigningKey:       []byte(cfg.Security.JWTSigningKey),
		VerificationKeys: verificationKeys,
		Issuer:           cfg.Security.JWTIssuer,
		ExpiresIn:        tokenLifetime,
	}
}
