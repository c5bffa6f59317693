// Command dbctl checks, migrates or resets the database named by
// DATABASE_URL.
//
//	dbctl check    ping the database and run SELECT 1
//	dbctl migrate  apply pending migrations
//	dbctl reset    drop everything and migrate again (asks first; -y skips)
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sakif/snippet-hub/internal/config"
	"github.com/sakif/snippet-hub/internal/repository/sqlstore"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "dbctl:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: dbctl [-env file] check|migrate|reset [-y]")
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("dbctl", flag.ContinueOnError)
	fs.SetOutput(stdout)
	envFile := fs.String("env", ".env", "optional dotenv file")
	yes := fs.Bool("y", false, "do not ask before reset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		usage(stdout)
		return fmt.Errorf("expected exactly one command")
	}
	cmd := fs.Arg(0)

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Fprintf(stdout, "database: %s\n", sqlstore.Redact(cfg.DatabaseURL))
	db, err := sqlstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	switch cmd {
	case "check":
		if err := db.Check(ctx); err != nil {
			return err
		}
		st, err := db.MigrationStatus()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "connection ok (%s)\n", db.Dialect())
		printStatus(stdout, st)

	case "migrate":
		if err := db.Migrate(); err != nil {
			return err
		}
		st, err := db.MigrationStatus()
		if err != nil {
			return err
		}
		printStatus(stdout, st)

	case "reset":
		if !*yes && !confirm(stdin, stdout, "This deletes ALL data. Type 'reset' to continue: ") {
			return fmt.Errorf("reset aborted")
		}
		if err := db.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "database reset")

	default:
		usage(stdout)
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func printStatus(w io.Writer, st sqlstore.MigrationStatus) {
	switch {
	case !st.Applied:
		fmt.Fprintln(w, "schema: no migrations applied")
	case st.Dirty:
		fmt.Fprintf(w, "schema: version %d (DIRTY)\n", st.Version)
	default:
		fmt.Fprintf(w, "schema: version %d\n", st.Version)
	}
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line) == "reset"
}
