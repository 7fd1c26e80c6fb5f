// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface of clo.
// It declares the argument table, turns a parsed command line into Settings and
// runs the action against an Odoo instance: authenticate, look the model up,
// dispatch the remote call and write the result to the output sink. Every
// failure ends as an exit status computed in one place.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"clo/cli/internal/cli"
	"clo/cli/internal/config"
	"clo/cli/internal/demo"
	"clo/cli/internal/domain"
	apperr "clo/cli/internal/errors"
	"clo/cli/internal/explain"
	"clo/cli/internal/httperrors"
	"clo/cli/internal/keychain"
	"clo/cli/internal/logging"
	"clo/cli/internal/model"
	"clo/cli/internal/output"
	"clo/cli/internal/prompt"
	"clo/cli/internal/session"
	"clo/cli/internal/settings"
	"clo/cli/internal/types"
)

// App runs invocations of clo. The zero value is not usable; see NewApp.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	LookupEnv func(string) (string, bool)
	// ConfigPath returns the config file read when --env is not given.
	ConfigPath func() string
	// Ask replaces the terminal prompt when set.
	Ask func(ctx context.Context, label string, secret bool) (string, error)
	// Keychain opens the credential store used by --keyring.
	Keychain func(*logging.Logger) (*keychain.Manager, error)
	Demo     *demo.Fetcher
	// SessionOptions are applied to every session after the defaults.
	SessionOptions []session.Option
}

// NewApp returns an App wired to the process streams and environment.
func NewApp() *App {
	return &App{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		LookupEnv:  os.LookupEnv,
		ConfigPath: config.DefaultPath,
		Keychain:   keychain.GetManager,
		Demo:       demo.NewFetcher(),
	}
}

// Execute runs clo with the process arguments and exits with its status.
// SIGINT and SIGTERM cancel the running invocation.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := NewApp().Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// Run executes one command line and returns the exit status.
func (a *App) Run(ctx context.Context, argv []string) int {
	inv := &invocation{App: a, log: logging.New(a.Stderr)}
	return inv.exit(inv.run(ctx, argv))
}

// invocation is the state of one Run.
type invocation struct {
	*App
	log      *logging.Logger
	prompter *prompt.Prompter
	// fromKeychain is set when the password was read from the keychain.
	fromKeychain bool
}

// exit turns the outcome of run into the process status.
func (inv *invocation) exit(err error) int {
	var (
		exit *logging.Exit
		e    *apperr.E
	)
	switch {
	case err == nil:
		return apperr.CodeOK
	case errors.As(err, &exit):
		return exit.Done(inv.Stdout)
	case errors.Is(err, context.Canceled):
		return inv.log.Fatal(apperr.CodeInterrupted, "Operation aborted").Code
	case errors.As(err, &e):
		inv.log.Error(logging.PresentError(e))
		return e.Kind.Code()
	}
	inv.log.Error(logging.PresentError(err))
	return apperr.CodeInternal
}

// preOptions are the options acted on before the command line is parsed.
type preOptions struct {
	log    string
	env    string
	out    string
	demo   string
	readme bool
}

// prescan picks the pre-parse options out of argv and ignores everything else.
// Malformed input is left for the real parser to report.
func prescan(argv []string) preOptions {
	var o preOptions
	fs := pflag.NewFlagSet("clo", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.ParseErrorsAllowlist.UnknownFlags = true
	fs.StringVar(&o.log, "log", "", "")
	fs.StringVar(&o.env, "env", "", "")
	fs.StringVar(&o.out, "out", "", "")
	fs.StringVar(&o.demo, "demo", "", "")
	fs.Lookup("demo").NoOptDefVal = settings.Stdout
	fs.BoolVar(&o.readme, "readme", false, "")
	fs.BoolP("help", "h", false, "")
	_ = fs.Parse(argv)
	return o
}

func (inv *invocation) run(ctx context.Context, argv []string) error {
	pre := prescan(argv)
	if pre.log != "" {
		lv, err := logging.ParseLevel(pre.log)
		if err != nil {
			return inv.log.Fail(apperr.CodeArgument, "argument --log:", err.Error())
		}
		inv.log.SetLevel(lv)
	}

	parser := cli.NewParser(program(inv.Stdin),
		cli.WithOutput(inv.Stdout, inv.Stderr),
		cli.WithLookupEnv(inv.LookupEnv),
		cli.WithAsker(inv.ask),
	)
	if pre.readme {
		return inv.readme(parser, pre.out)
	}
	if pre.demo != "" {
		return inv.demo(ctx, pre.demo)
	}

	path := pre.env
	if path == "" {
		path = inv.ConfigPath()
	}
	if err := config.Load(path, inv.log); err != nil {
		return inv.log.Fail(apperr.CodePreprocess, logging.PresentError(err))
	}

	res, err := parser.Parse(ctx, argv)
	var perr *cli.ParseError
	switch {
	case errors.As(err, &perr):
		inv.log.Bump(logging.INFO)
		inv.log.Info(perr.Usage)
		return inv.log.Fail(apperr.CodeArgument, perr.Error())
	case err != nil:
		return err
	case res.Command == "":
		return nil
	}

	s := fromNamespace(res.Command, res.Namespace)
	inv.log.Debug(s.String())
	if s.Using != "" {
		recs, err := output.ReadRecords(s.Using, inv.Stdin)
		if err != nil {
			return inv.log.Fail(apperr.CodeInput, logging.PresentError(err))
		}
		s.Records = recs
	}
	if err := s.Validate(); err != nil {
		return inv.log.Fail(apperr.CodeArgument, err.Error())
	}
	if s.DryRun {
		inv.log.Bump(logging.DEBUG)
		inv.log.Debug(s.Describe())
		return nil
	}
	return inv.execute(ctx, s)
}

// fromNamespace copies the parsed values into Settings.
func fromNamespace(action string, ns *cli.Namespace) *settings.Settings {
	s := settings.New()
	s.Action = settings.Action(action)
	if name := ns.String("model"); name != "" {
		s.Model = name
	}
	if u, ok := ns.Get("instance").(types.URL); ok {
		s.Instance = u
	}
	s.Database = ns.String("database")
	s.Username = ns.String("username")
	if pw, ok := ns.Get("password").(types.Secret); ok {
		s.Password = pw
	}
	s.Keyring = ns.Bool("keyring")

	for _, v := range ns.List("criteria") {
		if c, ok := v.(domain.Criterion); ok {
			s.Criteria = append(s.Criteria, c)
		}
	}
	s.IDs = ns.Ints("ids")
	for _, v := range ns.List("values") {
		pair, _ := v.([]any)
		if len(pair) != 2 {
			continue
		}
		field, _ := pair[0].(string)
		value, _ := pair[1].(string)
		s.Values = append(s.Values, settings.Pair{Field: field, Value: value})
	}
	s.Using = ns.String("using")
	s.Fields = ns.Strings("fields")
	s.Attributes = ns.Strings("attributes")
	if n, ok := ns.Int("offset"); ok {
		s.Offset = n
	}
	if n, ok := ns.Int("limit"); ok && ns.Has("limit") {
		s.Limit = &n
	}
	s.Order = ns.String("order")

	s.Raw = ns.Bool("raw")
	s.CSV = ns.Bool("csv")
	s.DryRun = ns.Bool("dry_run")
	if out := ns.String("out"); out != "" {
		s.Out = out
	}
	s.Env = ns.String("env")
	if lv, ok := ns.Get("log").(logging.Level); ok {
		s.Level = lv
	}
	s.Topic = ns.String("topic")
	s.Verbose = ns.Bool("verbose")
	return s
}

// execute runs the action of s against the instance and writes the result.
func (inv *invocation) execute(ctx context.Context, s *settings.Settings) error {
	trace := inv.log.TraceWriter()
	defer trace.Close()
	opts := append([]session.Option{session.WithTrace(trace)}, inv.SessionOptions...)
	sess := session.New(inv.log, opts...)
	sess.Configure(s.Instance, s.Database, s.Username, s.Password)
	reg := model.NewRegistry(sess, inv.log)

	if s.Action == settings.Explain {
		err := explain.New(inv.Stdout, isTerminal(inv.Stdout), reg, sess).Topic(ctx, s.Topic, s.Model, s.Verbose)
		if err == nil {
			inv.remember(s, sess)
		}
		return err
	}

	m, err := reg.Lookup(ctx, s.Model)
	if err != nil {
		return err
	}
	result, err := dispatch(ctx, m, s)
	if err != nil {
		return err
	}
	inv.remember(s, sess)

	sink, err := output.Open(ctx, s.Out, inv.Stdout, inv.log)
	if err != nil {
		return inv.log.Fail(apperr.KindOf(err).Code(), logging.PresentError(err))
	}
	werr := sink.Write(ctx, s.Model, result, output.FormatOf(s))
	cerr := sink.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return inv.log.Fail(apperr.KindOf(err).Code(), logging.PresentError(err))
	}
	return nil
}

// dispatch sends the call that a dry run of s describes.
func dispatch(ctx context.Context, m *model.Model, s *settings.Settings) (any, error) {
	op, ok := s.Action.Operation()
	if !ok {
		return nil, apperr.Newf(apperr.Dispatch, "no operation for action %q", s.Action)
	}
	return m.Execute(ctx, op, s.Positional(), s.Kwargs())
}

// ask acquires an unset connection value: from the keychain for the password
// when --keyring is given, then from the terminal.
func (inv *invocation) ask(ctx context.Context, q cli.Question, ns *cli.Namespace) (string, error) {
	switch ns.String("topic") {
	case "domains", "logic":
		return "", nil
	}
	if q.Secret && ns.Bool("keyring") {
		if pw, ok := inv.keychainPassword(account(ns)); ok {
			inv.fromKeychain = true
			return pw, nil
		}
	}
	if inv.Ask != nil {
		return inv.Ask(ctx, q.Prompt, q.Secret)
	}
	if inv.prompter == nil {
		in, inOK := inv.Stdin.(*os.File)
		out, outOK := inv.Stderr.(*os.File)
		if !inOK || !outOK {
			return "", prompt.ErrNoTerminal
		}
		inv.prompter = prompt.New(in, out)
	}
	return inv.prompter.Ask(ctx, q.Prompt, q.Secret)
}

func account(ns *cli.Namespace) string {
	host := ""
	if u, ok := ns.Get("instance").(types.URL); ok {
		host = u.Host()
	}
	return keychain.Account(ns.String("username"), ns.String("database"), host)
}

func (inv *invocation) keychainPassword(acct string) (string, bool) {
	km, err := inv.Keychain(inv.log)
	if err != nil {
		inv.log.Warn("Keychain unavailable:", err.Error())
		return "", false
	}
	pw, err := km.LoadPassword(acct)
	switch {
	case errors.Is(err, keychain.ErrNotFound):
		inv.log.Debugf("No password stored for %s", acct)
		return "", false
	case err != nil:
		inv.log.Warn("Could not read the keychain:", err.Error())
		return "", false
	}
	return pw, true
}

// remember stores the password in the keychain after a successful login with
// the credentials the user gave.
func (inv *invocation) remember(s *settings.Settings, sess *session.Session) {
	if !s.Keyring || inv.fromKeychain || s.Password.IsZero() || !sess.Authorized() {
		return
	}
	if _, _, pw := sess.Arguments(); pw != s.Password.Reveal() {
		return
	}
	km, err := inv.Keychain(inv.log)
	if err != nil {
		inv.log.Warn("Keychain unavailable:", err.Error())
		return
	}
	acct := keychain.Account(s.Username, s.Database, s.Instance.Host())
	if err := km.SavePassword(acct, s.Password.Reveal()); err != nil {
		inv.log.Warn("Could not store the password in the keychain:", err.Error())
		return
	}
	inv.log.Info("Password stored in the keychain for", acct)
}

// readme writes the markdown documentation to out.
func (inv *invocation) readme(parser *cli.Parser, out string) error {
	if out == "" || out == settings.Stdout {
		return parser.Markdown(inv.Stdout)
	}
	f, err := os.Create(out)
	if err != nil {
		return inv.log.Fail(apperr.CodeOutput, logging.PresentError(err, "opening", out))
	}
	if err := parser.Markdown(f); err != nil {
		f.Close()
		return inv.log.Fail(apperr.CodeOutput, logging.PresentError(err))
	}
	return f.Close()
}

// demo creates a demo instance and prints its variables, or writes them to target.
func (inv *invocation) demo(ctx context.Context, target string) error {
	creds, err := inv.Demo.Fetch(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		var e *apperr.E
		if errors.As(err, &e) {
			return inv.log.Fail(apperr.CodeInternal, logging.PresentError(e))
		}
		lines := httperrors.Describe(err, httperrors.ExtractHostFromURL(inv.Demo.URL))
		for _, line := range lines[1:] {
			inv.log.Info(line)
		}
		return inv.log.Fail(apperr.CodeInternal, lines[0])
	}
	if target == settings.Stdout {
		text, err := config.Render(creds.Env())
		if err != nil {
			return apperr.Wrap(apperr.Internal, "rendering demo credentials", err)
		}
		fmt.Fprintln(inv.Stdout, text)
		return nil
	}
	if err := config.Write(target, creds.Env()); err != nil {
		return inv.log.Fail(apperr.CodeOutput, logging.PresentError(err, "writing", target))
	}
	inv.log.Info("Demo credentials written to", target)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
