// Command weddingctl is the operator CLI: it issues invites, exports the guest list and
// hashes the admin password against the same storage the server uses.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"wedding/cmd/identity"
	"wedding/cmd/internal/app"
	"wedding/cmd/internal/invite"
	"wedding/cmd/internal/notify"
	"wedding/cmd/internal/report"
	"wedding/cmd/security/password"
	"wedding/cmd/security/token"
)

const usage = `usage: weddingctl <command> [flags]

commands:
  add-guest      issue an invite code for a guest and print the link
  check-invite   resolve an invite link and print the RSVP link
  export         write the guest list CSV
  summary        print the attendance summary as JSON
  hash-password  read a password from stdin and print its argon2id hash
  send-test-sms  send one SMS through the configured gateway
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "weddingctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "hash-password":
		return hashPassword(stdin, stdout)
	case "send-test-sms":
		return sendTestSMS(ctx, rest, stdout, stderr)
	case "add-guest", "check-invite", "export", "summary":
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	env, err := openEnv(ctx, stderr)
	if err != nil {
		return err
	}
	defer env.close()

	switch cmd {
	case "add-guest":
		return env.addGuest(ctx, rest, stdout, stderr)
	case "check-invite":
		return env.checkInvite(ctx, rest, stdout, stderr)
	case "export":
		return env.export(ctx, rest, stdout, stderr)
	default:
		return env.summary(ctx, stdout)
	}
}

type cliEnv struct {
	cfg     app.Config
	storage *app.Storage
	invites *invite.Service
}

func openEnv(ctx context.Context, stderr io.Writer) (*cliEnv, error) {
	cfg := app.LoadConfig()
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	tokCfg, err := token.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	signer, err := token.NewSigner(tokCfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", token.SecretEnvKey, err)
	}
	storage, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if !storage.Persistent {
		fmt.Fprintln(stderr, "warning: no WEDDING_DATABASE_URL or WEDDING_SQLITE_PATH; using a throwaway in-memory store")
	}
	invites, err := invite.NewService(storage.Store, signer, invite.WithLogger(log))
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	return &cliEnv{cfg: cfg, storage: storage, invites: invites}, nil
}

func (e *cliEnv) close() { _ = e.storage.Close() }

func (e *cliEnv) addGuest(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fl := flag.NewFlagSet("add-guest", flag.ContinueOnError)
	fl.SetOutput(stderr)
	name := fl.String("name", "", "guest full name (required)")
	phone := fl.String("phone", "", "guest phone, e.g. 08031234567 (required)")
	email := fl.String("email", "", "guest email")
	maxAttendees := fl.Int("max", 1, "maximum attendees for this invite")
	if err := fl.Parse(args); err != nil {
		return err
	}

	created, err := e.invites.CreateGuestInvite(ctx, invite.CreateInput{
		FullName:     *name,
		Email:        *email,
		Phone:        *phone,
		MaxAttendees: *maxAttendees,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\t%s\t%d\t%s%s\n",
		created.Guest.FullName, created.Invite.Code, created.Invite.MaxAttendees, e.cfg.PublicBaseURL, created.Link)
	return nil
}

func (e *cliEnv) checkInvite(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fl := flag.NewFlagSet("check-invite", flag.ContinueOnError)
	fl.SetOutput(stderr)
	slug := fl.String("slug", "", "guest name slug from the invite link")
	code := fl.String("code", "", "invite code")
	n := fl.Int("n", 0, "requested attendees")
	if err := fl.Parse(args); err != nil {
		return err
	}

	res, err := e.invites.Resolve(ctx, invite.ResolveInput{Slug: *slug, Code: *code, Requested: *n})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\tallowed=%d\t%s%s\n", res.Guest.FullName, res.Allowed, e.cfg.PublicBaseURL, res.RSVPLink)
	return nil
}

func (e *cliEnv) export(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fl := flag.NewFlagSet("export", flag.ContinueOnError)
	fl.SetOutput(stderr)
	out := fl.String("o", "", "output file; \"auto\" uses the dated export name; default stdout")
	if err := fl.Parse(args); err != nil {
		return err
	}

	rows, err := e.storage.Store.ListInvites(ctx)
	if err != nil {
		return err
	}

	w := stdout
	if *out != "" {
		path := *out
		if path == "auto" {
			path = report.ExportFilename(time.Now())
		}
		f, err := os.Create(path) // #nosec G304 -- operator-supplied output path.
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
		fmt.Fprintf(stderr, "wrote %d invites to %s\n", len(rows), path)
	}
	return report.WriteCSV(w, rows, e.cfg.PublicBaseURL)
}

func (e *cliEnv) summary(ctx context.Context, stdout io.Writer) error {
	rows, err := e.storage.Store.ListInvites(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report.Summarize(rows))
}

func hashPassword(stdin io.Reader, stdout io.Writer) error {
	cfg, err := password.FromEnv()
	if err != nil {
		return err
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	pw := strings.TrimRight(line, "\r\n")
	hash, err := cfg.Hash(pw)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, hash)
	return nil
}

const defaultTestSMS = "Test message from the wedding RSVP service. If you received this, SMS delivery works."

// sendTestSMS always talks to the real gateway; dev-mode logging would hide a broken setup.
func sendTestSMS(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fl := flag.NewFlagSet("send-test-sms", flag.ContinueOnError)
	fl.SetOutput(stderr)
	phone := fl.String("phone", "", "recipient phone, e.g. 08031234567 (required)")
	message := fl.String("message", defaultTestSMS, "message body")
	if err := fl.Parse(args); err != nil {
		return err
	}

	to, err := identity.NormalizePhone(*phone)
	if err != nil {
		return fmt.Errorf("phone %q: %w", *phone, err)
	}
	cfg, err := notify.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	if !cfg.SMSConfigured() {
		return fmt.Errorf("%w: set WEDDING_SMS_API_URL and WEDDING_SMS_API_KEY", notify.ErrSMSNotConfigured)
	}
	cfg.DevMode = false

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	sender := notify.NewSMSSender(cfg, nil, log)
	if err := sender.Notify(ctx, notify.Message{ToPhone: to, Body: *message}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "sent test sms to %s\n", to)
	return nil
}
