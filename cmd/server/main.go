package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/OliverPistillo/Doflow-PaaS-sub003/auth"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/datastore"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/internal/config"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/policy"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/policy/repofakes"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/realtime"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/server"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/tenants"
	tenantrepofakes "github.com/OliverPistillo/Doflow-PaaS-sub003/tenants/repofakes"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/token"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/token/denylist"
	"github.com/OliverPistillo/Doflow-PaaS-sub003/users"
	userrepofake "github.com/OliverPistillo/Doflow-PaaS-sub003/users/repofake"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server, restarting")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	registry := datastore.NewRegistry(datastore.NewPostgresOpener(c), datastore.WithDefaultSchema(c.GetDefaultSchema()))
	defer registry.Close()

	userRepo, tenantRepo, policyRepo, err := buildRepos(c, registry)
	if err != nil {
		return fmt.Errorf("build repos: %w", err)
	}

	tokens := token.New(token.NewHMACSigner(c.GetTokenSecret()),
		token.WithIssuer(c.GetTokenIssuer()),
		token.WithExpiry(c.GetTokenExpiry()),
		token.WithDenylist(buildDenylist(c)),
	)

	if err := seedDevSuperAdmin(c, userRepo); err != nil {
		return fmt.Errorf("seed super admin: %w", err)
	}

	srv, err := server.New(c, auth.Repos{Users: userRepo, Tenants: tenantRepo}, registry, tokens, policy.NewStore(policyRepo), realtime.NewHub())
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// buildRepos wires Postgres-backed repositories when a database is
// configured and falls back to in-memory repositories for local runs.
func buildRepos(c config.Config, registry *datastore.Registry) (users.UserRepo, tenants.Repo, policy.Repo, error) {
	if os.Getenv("DATABASE_URL") == "" && os.Getenv("DATABASE_HOST") == "" {
		log.Warn().Msg("no database configured, using in-memory repositories")
		return userrepofake.NewFakeUserRepo(), tenantrepofakes.NewFakeTenantRepo(), policyrepofakes.NewFakePolicyRepo(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	handle, err := registry.GetOrCreate(ctx, c.GetDefaultSchema())
	if err != nil {
		return nil, nil, nil, err
	}
	return users.NewPostgresRepo(handle.Pool), tenants.NewPostgresRepo(handle.Pool), policy.NewPostgresRepo(handle.Pool), nil
}

func buildDenylist(c config.Config) denylist.Denylist {
	redisURL := c.GetRedisURL()
	if redisURL == "" {
		return denylist.NewInMemory()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid REDIS_URL, using in-memory denylist")
		return denylist.NewInMemory()
	}
	return denylist.NewRedis(redis.NewClient(opts))
}

// seedDevSuperAdmin ensures a development instance has an account to
// log in with. Production deployments manage accounts out of band.
func seedDevSuperAdmin(c config.Config, userRepo users.UserRepo) error {
	if c.GetEnv() != "DEV" {
		return nil
	}
	email := config.GetEnv("ADMIN_EMAIL", "admin@localhost")
	if _, err := userRepo.GetByEmail(email); err == nil {
		return nil
	}
	hash, err := users.HashPassword(config.GetEnv("ADMIN_PASSWORD", "Admin-Dev-Passw0rd"))
	if err != nil {
		return err
	}
	log.Info().Str("email", email).Msg("seeding development super admin")
	return userRepo.Upsert(&users.User{
		Email:        email,
		PasswordHash: hash,
		Role:         users.RoleSuperAdmin,
		DateJoined:   time.Now().UTC(),
	})
}

func listenAndServe(httpServer *http.Server) error {
	log.Info().Str("addr", httpServer.Addr).Msg("Server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
