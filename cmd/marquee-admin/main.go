// Command marquee-admin runs operator tasks against the Marquee database.
//
//	marquee-admin create-admin -name "Ada" -email ada@example.com -password ...
//	marquee-admin import-movies -file imdb.json
//
// It reads the same MARQUEE_* environment as the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"marquee/cmd/internal/app"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "marquee-admin: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: marquee-admin create-admin|import-movies [flags]")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := app.LoadConfig()

	switch args[0] {
	case "create-admin":
		fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
		name := fs.String("name", "", "Display name")
		email := fs.String("email", "", "Email address (login identifier)")
		pw := fs.String("password", os.Getenv("MARQUEE_ADMIN_PASSWORD"), "Password (defaults to $MARQUEE_ADMIN_PASSWORD)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *name == "" || *email == "" || *pw == "" {
			return errors.New("create-admin: -name, -email and -password are required")
		}

		adm, err := app.NewAdmin(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = adm.Close(context.Background()) }()

		u, err := adm.CreateAdmin(ctx, *name, *email, *pw)
		if err != nil {
			return err
		}
		fmt.Printf("admin created: id=%d email=%s\n", u.ID, u.Email)
		return nil

	case "import-movies":
		fs := flag.NewFlagSet("import-movies", flag.ContinueOnError)
		file := fs.String("file", "imdb.json", "JSON catalog dump")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		adm, err := app.NewAdmin(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer func() { _ = adm.Close(context.Background()) }()

		n, err := adm.ImportMovies(ctx, f)
		if err != nil {
			return fmt.Errorf("imported %d movies before failing: %w", n, err)
		}
		fmt.Printf("imported %d movies\n", n)
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
