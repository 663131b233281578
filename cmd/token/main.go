// Package main mints a bearer token for the registry reload endpoint, signed
// with the configured security.jwt_signing_key.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"clustermap.io/clustermap/internal/api/middleware"
	"clustermap.io/clustermap/internal/app/modules"
	"clustermap.io/clustermap/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	subject := flag.String("subject", "operator", "token subject")
	perms := flag.String("permissions", middleware.PermissionReload, "comma-separated permissions")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	token, err := mint(*configPath, *subject, *perms, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func mint(configPath, subject, perms string, ttl time.Duration) (string, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if !cfg.Security.ReloadEnabled() {
		return "", fmt.Errorf("security.jwt_signing_key is not set")
	}

	jwtCfg := modules.NewJWTConfig(cfg)
	jwtCfg.ExpiresIn = ttl
	token, _, err := middleware.GenerateToken(jwtCfg, subject, splitPermissions(perms))
	return token, err
}

func splitPermissions(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
