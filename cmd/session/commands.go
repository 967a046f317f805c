package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/go-session-client/admin"
	"github.com/jrsteele09/go-session-client/guard"
	"github.com/jrsteele09/go-session-client/users"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const usage = `usage: session <command> [arguments]

commands:
  login -email E [-password P]     start a session (password read from stdin if omitted)
  logout                           end the session
  status                           show the stored session
  token                            print a valid access token, refreshing if needed
  refresh                          force a token refresh
  check <route>                    authorize a route kind: protected, admin, login, pending-approval
  users <list|create|assign-admin|assign-provider|set-status>
  specialists <list|get|publish|approve|reject|delete>
  watch [-metrics ADDR]            keep the session alive until interrupted`

var errUsage = errors.New(usage)

type cli struct {
	app *app
	in  io.Reader
	out io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "login":
		return c.login(ctx, rest)
	case "logout":
		return c.app.auth.Logout(ctx)
	case "status":
		return c.status(ctx)
	case "token":
		tok, err := c.app.coordinator.ValidToken(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.out, tok)
		return err
	case "refresh":
		if _, err := c.app.coordinator.Refresh(ctx); err != nil {
			return err
		}
		return c.status(ctx)
	case "check":
		return c.check(ctx, rest)
	case "users":
		return c.users(ctx, rest)
	case "specialists":
		return c.specialists(ctx, rest)
	case "watch":
		return c.watch(ctx, rest)
	case "help", "-h", "--help":
		_, err := fmt.Fprintln(c.out, usage)
		return err
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *password == "" {
		line, err := bufio.NewReader(c.in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	landing, err := c.app.auth.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "logged in, landing route %s\n", landing)
	return err
}

func (c *cli) status(ctx context.Context) error {
	st, err := c.app.auth.Status(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "authenticated\t%t\n", st.Authenticated)
	if st.User != nil {
		fmt.Fprintf(w, "user\t%s\n", st.User.DisplayName())
		fmt.Fprintf(w, "role\t%s\n", st.User.Role)
	}
	fmt.Fprintf(w, "authorized role\t%t\n", st.AuthorizedRole)
	fmt.Fprintf(w, "refresh token\t%t\n", st.HasRefreshToken)
	if !st.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "expires\t%s (in %s)\n", st.ExpiresAt.Local().Format(time.RFC3339), st.Remaining.Round(time.Second))
		fmt.Fprintf(w, "expiring soon\t%t\n", st.ExpiringSoon)
	}
	return w.Flush()
}

func (c *cli) check(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	kind, err := guard.ParseRouteKind(args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, c.app.guard.Check(ctx, kind))
	return err
}

func (c *cli) users(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "list":
		list, err := c.app.admin.ListUsers(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tSTATUS")
		for _, u := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.Role, u.Status)
		}
		return w.Flush()

	case "create":
		fs := flag.NewFlagSet("users create", flag.ContinueOnError)
		req := admin.CreateUserRequest{}
		fs.StringVar(&req.Email, "email", "", "email")
		fs.StringVar(&req.Password, "password", "", "initial password")
		fs.StringVar(&req.Name, "name", "", "display name")
		fs.StringVar(&req.PhoneNumber, "phone", "", "phone number")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		user, err := c.app.admin.CreateUser(ctx, req)
		if err != nil {
			return err
		}
		return c.printJSON(user)

	case "assign-admin", "assign-provider":
		if len(args) != 2 {
			return errUsage
		}
		if args[0] == "assign-admin" {
			return c.app.admin.AssignAdmin(ctx, args[1])
		}
		return c.app.admin.AssignProvider(ctx, args[1])

	case "set-status":
		if len(args) != 3 {
			return errUsage
		}
		return c.app.admin.ChangeStatus(ctx, args[1], users.Status(strings.ToUpper(args[2])))

	default:
		return fmt.Errorf("unknown users command %q", args[0])
	}
}

func (c *cli) specialists(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if args[0] == "list" {
		return c.listSpecialists(ctx, args[1:])
	}
	if len(args) < 2 {
		return errUsage
	}

	id := args[1]
	var (
		sp  *admin.Specialist
		err error
	)
	switch args[0] {
	case "get":
		sp, err = c.app.admin.GetSpecialist(ctx, id)
	case "publish":
		sp, err = c.app.admin.PublishSpecialist(ctx, id)
	case "approve":
		sp, err = c.app.admin.ApproveSpecialist(ctx, id)
	case "reject":
		sp, err = c.app.admin.RejectSpecialist(ctx, id, strings.Join(args[2:], " "))
	case "delete":
		return c.app.admin.DeleteSpecialist(ctx, id)
	default:
		return fmt.Errorf("unknown specialists command %q", args[0])
	}
	if err != nil {
		return err
	}
	return c.printJSON(sp)
}

func (c *cli) listSpecialists(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("specialists list", flag.ContinueOnError)
	q := admin.SpecialistQuery{}
	fs.IntVar(&q.Page, "page", 1, "page number")
	fs.IntVar(&q.Limit, "limit", 10, "page size")
	fs.StringVar(&q.SearchTerm, "search", "", "search term")
	draft := fs.String("draft", "", "filter by draft flag (true|false)")
	status := fs.String("status", "", "filter by verification status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *draft != "" {
		b, err := strconv.ParseBool(*draft)
		if err != nil {
			return fmt.Errorf("invalid -draft value %q", *draft)
		}
		q.IsDraft = &b
	}
	q.VerificationStatus = admin.VerificationStatus(*status)

	page, err := c.app.admin.ListSpecialists(ctx, q)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tDRAFT\tVERIFICATION\tPRICE")
	for _, s := range page.Specialists {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", s.ID, s.Title, s.IsDraft, s.VerificationStatus, s.FinalPrice)
	}
	fmt.Fprintf(w, "page %d/%d\t(%d total)\n", page.Meta.Page, page.Meta.TotalPage, page.Meta.Total)
	return w.Flush()
}

func (c *cli) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	metricsAddr := fs.String("metrics", "", "serve Prometheus metrics on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Str("addr", *metricsAddr).Msg("serving metrics")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Err(err).Msg("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	log.Info().Dur("interval", c.app.cfg.GetWatchInterval()).Msg("watching session")
	c.app.watcher.Tick(ctx)
	if err := c.app.watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
