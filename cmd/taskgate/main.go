package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taskgate/taskgate/internal/authflow"
	"github.com/taskgate/taskgate/internal/authn"
	"github.com/taskgate/taskgate/internal/config"
	"github.com/taskgate/taskgate/internal/cookie"
	"github.com/taskgate/taskgate/internal/idp"
	"github.com/taskgate/taskgate/internal/log"
	"github.com/taskgate/taskgate/internal/login"
	"github.com/taskgate/taskgate/internal/redirect"
	"github.com/taskgate/taskgate/internal/server"
	"github.com/taskgate/taskgate/internal/token"
	"github.com/taskgate/taskgate/internal/user"
)

var BuildVersion = "dev"

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"version": "v1",
		"server": map[string]any{
			"addr":           ":8080",
			"baseUrl":        "https://auth.yourcompany.com",
			"allowedOrigins": []string{"https://app.yourcompany.com"},
		},
		"auth": map[string]any{
			"signingKey":         map[string]string{"$env": "TASKGATE_SIGNING_KEY"},
			"tokenTtl":           "168h",
			"cookieDomain":       "yourcompany.com",
			"allowedRedirectUri": "https://app.yourcompany.com/*",
			"storage":            "memory",
		},
		"providers": map[string]any{
			"google": map[string]any{
				"kind":         "google",
				"clientId":     map[string]string{"$env": "GOOGLE_CLIENT_ID"},
				"clientSecret": map[string]string{"$env": "GOOGLE_CLIENT_SECRET"},
				"displayName":  "Google",
			},
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	signingKey := []byte(cfg.Auth.SigningKey)

	tokens := token.NewService(signingKey, time.Duration(cfg.Auth.TokenTTL))
	cookies := cookie.NewManager(cfg.Auth.TokenCookieName, cfg.Auth.RequestCookieName, cfg.Auth.CookieDomain)
	requests := authflow.NewStore(signingKey, cookies, 10*time.Minute)

	guard, err := redirect.NewGuard(cfg.Auth.AllowedRedirectURI)
	if err != nil {
		return fmt.Errorf("building redirect guard: %w", err)
	}

	var store user.Store
	switch cfg.Auth.Storage {
	case config.StorageFirestore:
		fs, err := user.NewFirestoreStore(ctx, cfg.Auth.FirestoreProjectID, cfg.Auth.FirestoreDatabase, cfg.Auth.FirestoreCollection)
		if err != nil {
			return fmt.Errorf("connecting to firestore: %w", err)
		}
		defer func() { _ = fs.Close() }()
		store = fs
	default:
		log.LogWarn("Using in-memory user store; users are lost on restart")
		store = user.NewMemoryStore()
	}

	providers, err := idp.BuildRegistry(ctx, cfg.Providers, cfg.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("building providers: %w", err)
	}

	handlers := login.NewHandlers(
		providers,
		requests,
		guard,
		tokens,
		user.NewProvisioner(store),
		cookies,
		cfg.Server.BaseURL,
	)
	authenticator := authn.NewAuthenticator(tokens, cookies)

	httpServer := server.NewHTTPServer(server.BuildHandler(server.Deps{
		Login:          handlers,
		Authenticator:  authenticator,
		Cookies:        cookies,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}), cfg.Server.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Stop(shutdownCtx)
	})

	return g.Wait()
}

func main() {
	conf := flag.String("config", "", "path to config file (required)")
	version := flag.Bool("version", false, "print version and exit")
	configInit := flag.String("config-init", "", "generate default config file at specified path")
	validate := flag.Bool("validate", false, "validate config file and exit")
	flag.Parse()

	if *version {
		fmt.Println(BuildVersion)
		return
	}

	if *configInit != "" {
		if err := generateDefaultConfig(*configInit); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default config to %s\n", *configInit)
		return
	}

	if *conf == "" {
		fmt.Fprintln(os.Stderr, "Error: -config is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *validate {
		fmt.Println("Config OK")
		return
	}

	log.Logf("taskgate %s starting", BuildVersion)
	if err := run(cfg); err != nil {
		log.LogError("Server exited with error: %v", err)
		os.Exit(1)
	}
}
