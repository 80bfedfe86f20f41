package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	httphandler "github.com/fduhole/dxkit/internal/adapter/driving/http"
	"github.com/fduhole/dxkit/internal/application"
)

// refreshLeeway is how long before expiry serve refreshes the access token.
const refreshLeeway = 5 * time.Minute

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"serve":      {"run the local REST API (default)", serve},
	"login":      {"log in with -email and -password", login},
	"register":   {"create an account, or reset the password with -reset", register},
	"logout":     {"log out and clear every cache", logout},
	"refresh":    {"exchange the refresh token for a new pair", refresh},
	"whoami":     {"print the signed-in user", whoami},
	"forum":      {"load and print tags, divisions and favorites", forum},
	"curriculum": {"load and print the course catalog", curriculum},
	"favorite":   {"toggle a hole in the favorites: favorite <hole-id>", favorite},
	"push-token": {"register a hex encoded push token: push-token <hex>", pushToken},
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: dxkit <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].summary)
	}
}

func serve(ctx context.Context, a *app, _ []string) error {
	apiHandler := httphandler.NewHandler(a.session, a.resources, slog.Default())

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2 * a.cfg.HTTPTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", a.cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	go application.NewTokenRefresher(a.session, time.Minute, refreshLeeway).Start(ctx)

	// Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func login(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("DXKIT_PASSWORD"), "account password (default $DXKIT_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login: -email and -password are required")
	}

	if err := a.session.Login(ctx, *email, *password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return printJSON(sessionSummary(a))
}

func register(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("DXKIT_PASSWORD"), "new password (default $DXKIT_PASSWORD)")
	code := fs.String("code", "", "verification code sent to the email")
	reset := fs.Bool("reset", false, "reset the password of an existing account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" || *code == "" {
		return errors.New("register: -email, -password and -code are required")
	}

	if err := a.session.Register(ctx, *email, *password, *code, !*reset); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return printJSON(sessionSummary(a))
}

func logout(ctx context.Context, a *app, _ []string) error {
	a.session.Logout(ctx)
	return printJSON(sessionSummary(a))
}

func refresh(ctx context.Context, a *app, _ []string) error {
	if err := a.session.RefreshToken(ctx); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return printJSON(sessionSummary(a))
}

func whoami(ctx context.Context, a *app, _ []string) error {
	if !a.session.IsLogged() {
		return application.ErrNotLoggedIn
	}
	if err := a.resources.LoadUser(ctx); err != nil {
		return fmt.Errorf("whoami: %w", err)
	}
	user, _ := a.resources.User()
	return printJSON(user)
}

func forum(ctx context.Context, a *app, _ []string) error {
	if err := a.resources.LoadForum(ctx); err != nil {
		return fmt.Errorf("forum: %w", err)
	}
	return printJSON(map[string]any{
		"tags":      a.resources.Tags(),
		"divisions": a.resources.Divisions(),
		"favorites": a.resources.FavoriteIDs(),
		"is_admin":  a.resources.IsAdmin(),
	})
}

func curriculum(ctx context.Context, a *app, _ []string) error {
	if err := a.resources.LoadCurriculum(ctx); err != nil {
		return fmt.Errorf("curriculum: %w", err)
	}
	return printJSON(a.resources.Courses())
}

func favorite(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: dxkit favorite <hole-id>")
	}
	holeID, err := strconv.Atoi(args[0])
	if err != nil || holeID <= 0 {
		return fmt.Errorf("favorite: invalid hole id %q", args[0])
	}

	if err := a.resources.LoadFavoriteIDs(ctx); err != nil {
		return fmt.Errorf("favorite: %w", err)
	}
	if err := a.resources.ToggleFavorite(ctx, holeID); err != nil {
		return fmt.Errorf("favorite: %w", err)
	}
	return printJSON(map[string]any{
		"hole_id":   holeID,
		"favorite":  a.resources.IsFavorite(holeID),
		"favorites": a.resources.FavoriteIDs(),
	})
}

func pushToken(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: dxkit push-token <hex>")
	}
	data, err := hex.DecodeString(args[0])
	if err != nil || len(data) == 0 {
		return fmt.Errorf("push-token: %q is not hex", args[0])
	}
	if !a.session.IsLogged() {
		return application.ErrNotLoggedIn
	}

	if err := a.session.ReceiveNotificationToken(ctx, data); err != nil {
		return fmt.Errorf("push-token: %w", err)
	}
	return nil
}

func sessionSummary(a *app) map[string]any {
	summary := map[string]any{
		"logged_in": a.session.IsLogged(),
		"device_id": a.session.DeviceID(),
	}
	if cred := a.session.Credential(); cred != nil {
		if exp, ok := cred.Expiry(); ok {
			summary["expires_at"] = exp.UTC().Format(time.RFC3339)
		}
	}
	return summary
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
