// Package main populates a posts database with demo accounts and posts.
// It goes through the same services as the API, so passwords are hashed and
// every seeded user holds a valid refresh token. Running it twice is safe:
// accounts that already exist are reused.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/utafrali/PostsGo/internal/auth"
	"github.com/utafrali/PostsGo/internal/config"
	"github.com/utafrali/PostsGo/internal/event"
	"github.com/utafrali/PostsGo/internal/repository/postgres"
	"github.com/utafrali/PostsGo/internal/service"
	"github.com/utafrali/PostsGo/migrations"
	pkgconfig "github.com/utafrali/PostsGo/pkg/config"
	"github.com/utafrali/PostsGo/pkg/database"
	"github.com/utafrali/PostsGo/pkg/logger"
	"github.com/utafrali/PostsGo/pkg/pagination"
)

// userDef is one demo account.
type userDef struct {
	username string
	email    string
	id       string // populated after register
}

var demoUsers = []userDef{
	{username: "alice", email: "alice@example.com"},
	{username: "bob", email: "bob@example.com"},
	{username: "carol", email: "carol@example.com"},
	{username: "dave", email: "dave@example.com"},
	{username: "erin", email: "erin@example.com"},
}

var demoPosts = []string{
	"Just set up my account. Hello everyone!",
	"Anyone else reading anything good this week?",
	"Coffee first, code second.",
	"Shipped a small fix today and it felt great.",
	"Weekend plans: hiking and absolutely no laptops.",
	"Hot take: tabs are fine.",
	"Trying out a new recipe tonight, wish me luck.",
	"Reminder to drink some water.",
}

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	postsPerUser := flag.Int("posts", 3, "posts to create per demo user")
	password := flag.String("password", "password123", "password for every demo account")
	flag.Parse()

	if err := pkgconfig.LoadDotEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("posts-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// 1. Connect and make sure the schema exists.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	jwtManager, err := auth.NewJWTManager(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry,
	)
	if err != nil {
		return fmt.Errorf("create jwt manager: %w", err)
	}

	users := postgres.NewUserRepository(pool)
	publisher := event.NoopPublisher{}
	authService := service.NewAuthService(users, auth.NewBcryptHasher(cfg.BcryptCost), jwtManager, publisher, nil, log)
	postService := service.NewPostService(postgres.NewPostRepository(pool), nil, publisher, log)

	// 2. Accounts.
	for i := range demoUsers {
		u := &demoUsers[i]
		result, err := authService.Register(ctx, service.RegisterInput{
			Username: u.username,
			Email:    u.email,
			Password: *password,
		})
		switch {
		case err == nil:
			u.id = result.User.ID
		case errors.Is(err, service.ErrDuplicateEmail):
			existing, err := users.GetByEmail(ctx, u.email)
			if err != nil {
				return fmt.Errorf("look up existing user %s: %w", u.email, err)
			}
			u.id = existing.ID
			log.Info("user already exists", slog.String("username", u.username))
		default:
			return fmt.Errorf("register %s: %w", u.username, err)
		}
	}

	// 3. Posts.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	created := 0
	for _, u := range demoUsers {
		for n := 0; n < *postsPerUser; n++ {
			content := demoPosts[rng.Intn(len(demoPosts))]
			if _, err := postService.CreatePost(ctx, u.id, service.CreatePostInput{Content: content}); err != nil {
				return fmt.Errorf("create post for %s: %w", u.username, err)
			}
			created++
		}
	}

	feed, err := postService.ListPosts(ctx, pagination.DefaultParams())
	if err != nil {
		return fmt.Errorf("read feed: %w", err)
	}

	log.Info("seed complete",
		slog.Int("users", len(demoUsers)),
		slog.Int("posts", created),
		slog.Int("feed_total", feed.TotalCount),
	)
	return nil
}
