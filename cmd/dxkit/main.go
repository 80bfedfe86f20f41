package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/fduhole/dxkit/internal/adapter/driven/diskcache"
	"github.com/fduhole/dxkit/internal/adapter/driven/fduhole"
	sqliteadapter "github.com/fduhole/dxkit/internal/adapter/driven/sqlite"
	"github.com/fduhole/dxkit/internal/application"
	"github.com/fduhole/dxkit/internal/config"
	"github.com/fduhole/dxkit/internal/domain/model"
)

// secretService scopes the secrets table, the equivalent of a keychain service name.
const secretService = "com.fduhole.danxi"

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// app holds the wired components shared by every subcommand.
type app struct {
	cfg        *config.Config
	session    *application.Session
	resources  *application.ResourceCache
	dispatcher *application.SerialDispatcher
}

func run(args []string) error {
	// 1. Load .env if present, then configuration.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Debug("config loaded",
		"auth_url", cfg.AuthURL.String(),
		"forum_url", cfg.ForumURL.String(),
		"curriculum_url", cfg.CurriculumURL.String(),
		"db_path", cfg.DBPath,
		"cache_dir", cfg.CacheDir,
		"secret_key_set", cfg.HasSecretKey(),
	)

	name := "serve"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}
	cmd, ok := commands[name]
	if !ok {
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", name)
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Debug("database ready", "path", db.Path(), "cache_dir", cfg.CacheDir)

	// 5. Wire adapters.
	secrets := sqliteadapter.NewCredentialRepo(db, secretService, cfg.SecretKey)
	prefs := sqliteadapter.NewPreferenceRepo(db)
	if !cfg.HasSecretKey() {
		slog.Warn("DXKIT_SECRET_KEY not set, login will not be persisted")
	}

	deviceID, err := application.LoadDeviceID(ctx, prefs)
	if err != nil {
		return err
	}

	// The holder is shared: the session writes it, the client reads the token.
	holder := application.NewCredentialHolder(nil)
	client, err := fduhole.NewClient(fduhole.Endpoints{
		Auth:       cfg.AuthURL.String(),
		Forum:      cfg.ForumURL.String(),
		Curriculum: cfg.CurriculumURL.String(),
	}, holder, cfg.HTTPTimeout)
	if err != nil {
		return err
	}

	// 6. Create application services.
	dispatcher := application.NewSerialDispatcher()
	defer dispatcher.Close()

	resources := application.NewResourceCache(client, client, client, application.DiskCaches{
		User:    diskcache.New[model.User](cfg.CacheDir, "fduhole/user.json", cfg.CacheExpiry),
		Tags:    diskcache.New[[]model.Tag](cfg.CacheDir, "fduhole/tags.json", cfg.CacheExpiry),
		Courses: diskcache.New[model.CourseCache](cfg.CacheDir, "fduhole/courses.json", 0),
	}, dispatcher)

	session, err := application.NewSession(ctx, client, client, secrets, prefs, holder, resources, deviceID, dispatcher)
	if err != nil {
		return err
	}
	slog.Info("session restored", "logged_in", session.IsLogged(), "device_id", deviceID)

	// 7. Run the subcommand.
	return cmd.run(ctx, &app{
		cfg:        cfg,
		session:    session,
		resources:  resources,
		dispatcher: dispatcher,
	}, args)
}
