// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	apperr "clo/cli/internal/errors"
)

const groupAnnotation = "clo_group"

// Result is a successful parse.
type Result struct {
	// Command is the chosen subcommand; empty when help or the version was shown.
	Command   string
	Namespace *Namespace
}

// ParseError is a command line that could not be parsed.
type ParseError struct {
	// Usage is the usage line of the command being parsed.
	Usage string
	Err   error
}

func (e *ParseError) Error() string { return e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// Parser parses command lines against a Program.
type Parser struct {
	prog      *Program
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)
	ask       Asker
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithOutput directs help and version output.
func WithOutput(stdout, stderr io.Writer) ParserOption {
	return func(p *Parser) { p.stdout, p.stderr = stdout, stderr }
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) ParserOption {
	return func(p *Parser) { p.lookupEnv = fn }
}

// WithAsker sets how unset values are acquired interactively.
func WithAsker(a Asker) ParserOption {
	return func(p *Parser) { p.ask = a }
}

// NewParser returns a Parser for prog.
func NewParser(prog *Program, opts ...ParserOption) *Parser {
	p := &Parser{prog: prog, stdout: os.Stdout, stderr: os.Stderr, lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// state collects what the cobra tree saw during one parse.
type state struct {
	command string
	args    []string
	values  []*flagValue
	cmds    map[string]*cobra.Command
}

// Build compiles the program into a cobra tree storing into ns.
func (p *Parser) Build(ns *Namespace) *cobra.Command {
	root, _ := p.build(ns)
	return root
}

func (p *Parser) build(ns *Namespace) (*cobra.Command, *state) {
	prog := p.prog
	st := &state{cmds: map[string]*cobra.Command{}}

	names := make([]string, len(prog.Commands))
	for i, c := range prog.Commands {
		names[i] = c.Name
	}
	root := &cobra.Command{
		Use:           prog.Name + " [flags] ACTION",
		Short:         prog.Short,
		Long:          prog.Long,
		Version:       prog.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("an ACTION is required (choose from %s)", quoteList(names))
		},
	}
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(p.stdout)
	root.SetErr(p.stderr)

	aliases := map[string]string{}
	st.values = append(st.values, p.attach(root, root.PersistentFlags(), prog.Globals, ns, aliases)...)

	for i := range prog.Commands {
		c := &prog.Commands[i]
		sub := &cobra.Command{
			Use:     c.Name + usageSuffix(c.Arguments),
			Short:   c.Short,
			Long:    c.Long,
			Example: c.Example,
			Args:    cobra.ArbitraryArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				st.command = c.Name
				st.args = args
				return nil
			},
		}
		st.values = append(st.values, p.attach(sub, sub.Flags(), c.Arguments, ns, aliases)...)
		sub.SetUsageFunc(usage)
		root.AddCommand(sub)
		st.cmds[c.Name] = sub
	}
	root.SetUsageFunc(usage)
	root.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if canonical, ok := aliases[name]; ok {
			return pflag.NormalizedName(canonical)
		}
		return pflag.NormalizedName(name)
	})
	return root, st
}

// attach declares args on fs. Exclusive groups are created on first use and
// reused for every later argument carrying the same key.
func (p *Parser) attach(cmd *cobra.Command, fs *pflag.FlagSet, args []Argument, ns *Namespace, aliases map[string]string) []*flagValue {
	type exclusive struct {
		required bool
		names    []string
	}
	var (
		values   []*flagValue
		groups   = map[string]*exclusive{}
		order    []string
		required []string
	)
	for i := range args {
		a := &args[i]
		d := a.Detail
		if d.Default != nil {
			ns.Default(a.DestName(), d.Default)
		}
		if a.Positional() {
			continue
		}

		fv := newFlagValue(a, ns)
		values = append(values, fv)
		help := d.Help
		if d.Ask != nil && d.Ask.Env != "" {
			help += fmt.Sprintf(" (env: %s)", d.Ask.Env)
		}
		f := fs.VarPF(fv, a.Long(), a.Short(), help)
		switch {
		case a.Arity() == 0 && d.Nargs == Optional:
			f.NoOptDefVal = fmt.Sprint(d.Const)
		case a.Arity() == 0:
			f.NoOptDefVal = presentSentinel
		}
		f.Hidden = d.Hidden
		if a.Group != nil {
			f.Annotations = map[string][]string{groupAnnotation: {a.Group.Title}}
		}
		for _, alias := range a.Aliases() {
			aliases[alias] = a.Long()
		}

		if a.Exclusive != nil {
			g, ok := groups[a.Exclusive.Key]
			if !ok {
				g = &exclusive{}
				groups[a.Exclusive.Key] = g
				order = append(order, a.Exclusive.Key)
			}
			g.required = g.required || a.Exclusive.Required
			g.names = append(g.names, a.Long())
		} else if d.Required {
			required = append(required, a.Long())
		}
	}
	for _, name := range required {
		_ = cobra.MarkFlagRequired(fs, name)
	}
	for _, key := range order {
		g := groups[key]
		if len(g.names) > 1 {
			cmd.MarkFlagsMutuallyExclusive(g.names...)
		}
		if g.required {
			cmd.MarkFlagsOneRequired(g.names...)
		}
	}
	return values
}

// Parse parses argv. Parse failures are returned as *ParseError; a failed
// prompt is returned as is.
func (p *Parser) Parse(ctx context.Context, argv []string) (*Result, error) {
	ns := NewNamespace()
	root, st := p.build(ns)

	expanded, err := p.prog.expand(argv)
	if err != nil {
		return nil, &ParseError{Usage: usageFor(root, argv), Err: err}
	}
	root.SetArgs(expanded)
	c, err := root.ExecuteContextC(ctx)
	if err != nil {
		return nil, &ParseError{Usage: c.UseLine(), Err: apperr.Wrap(apperr.Argument, "", err)}
	}
	if st.command == "" {
		return &Result{Namespace: ns}, nil
	}

	sub := st.cmds[st.command]
	fail := func(err error) (*Result, error) {
		return nil, &ParseError{Usage: sub.UseLine(), Err: err}
	}
	for _, fv := range st.values {
		if err := fv.complete(); err != nil {
			return fail(apperr.Wrap(apperr.Argument, "", err))
		}
	}
	cmdArgs := p.command(st.command).Arguments
	if err := positionals(cmdArgs, st.args, ns); err != nil {
		return fail(err)
	}
	if err := p.resolve(ctx, ns, p.prog.Globals, cmdArgs); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return fail(err)
	}
	return &Result{Command: st.command, Namespace: ns}, nil
}

func (p *Parser) command(name string) *Command {
	for i := range p.prog.Commands {
		if p.prog.Commands[i].Name == name {
			return &p.prog.Commands[i]
		}
	}
	return nil
}

// positionals assigns the positional tokens in table order.
func positionals(args []Argument, tokens []string, ns *Namespace) error {
	i := 0
	var missing []string
	for j := range args {
		a := &args[j]
		if !a.Positional() {
			continue
		}
		if i >= len(tokens) {
			if a.Detail.Required || a.Detail.Default == nil {
				missing = append(missing, a.Long())
			}
			continue
		}
		tok := tokens[i]
		i++
		if len(a.Detail.Choices) > 0 && !slices.Contains(a.Detail.Choices, tok) {
			return apperr.Newf(apperr.Argument, "argument %s: invalid choice %q (choose from %s)", a.Long(), tok, quoteList(a.Detail.Choices))
		}
		var v any = tok
		if a.Detail.Type != nil {
			var err error
			if v, err = a.Detail.Type(tok); err != nil {
				return apperr.Wrap(apperr.Argument, "argument "+a.Long(), err)
			}
		}
		ns.Set(a.DestName(), v)
	}
	if len(missing) > 0 {
		return apperr.Newf(apperr.Argument, "the following arguments are required: %s", strings.Join(missing, ", "))
	}
	if i < len(tokens) {
		return apperr.Newf(apperr.Argument, "unrecognized arguments: %s", strings.Join(tokens[i:], " "))
	}
	return nil
}

// resolve fills arguments carrying an Ask that are still unset: from the
// environment, then the default, then the Asker. The Asker is skipped while
// introspecting.
func (p *Parser) resolve(ctx context.Context, ns *Namespace, lists ...[]Argument) error {
	introspect := false
	for _, key := range p.prog.IntrospectFlags {
		introspect = introspect || ns.Bool(key)
	}
	for _, list := range lists {
		for i := range list {
			a := &list[i]
			ask := a.Detail.Ask
			dest := a.DestName()
			if ask == nil || ns.Has(dest) {
				continue
			}
			tok, ok := "", false
			if ask.Env != "" {
				tok, ok = p.lookupEnv(ask.Env)
				ok = ok && tok != ""
			}
			if !ok && a.Detail.Default != nil {
				continue
			}
			if !ok {
				if introspect || p.ask == nil {
					continue
				}
				var err error
				tok, err = p.ask(ctx, Question{Dest: dest, Prompt: ask.Prompt, Env: ask.Env, Secret: ask.Secret}, ns)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return err
					}
					return apperr.Wrap(apperr.Argument, "argument --"+a.Long(), err)
				}
			}
			var v any = tok
			if a.Detail.Type != nil {
				var err error
				if v, err = a.Detail.Type(tok); err != nil {
					return apperr.Wrap(apperr.Argument, "argument --"+a.Long(), err)
				}
			}
			ns.Set(dest, v)
		}
	}
	return nil
}

func usageSuffix(args []Argument) string {
	var b strings.Builder
	for i := range args {
		if args[i].Positional() {
			b.WriteString(" " + strings.ToUpper(args[i].Long()))
		}
	}
	return b.String()
}

// usageFor returns the usage line of the subcommand named in argv, or the root's.
func usageFor(root *cobra.Command, argv []string) string {
	if c, _, err := root.Find(argv); err == nil && c != nil {
		return c.UseLine()
	}
	return root.UseLine()
}

// usage prints the usage of c with flags sectioned by their group.
func usage(c *cobra.Command) error {
	w := c.OutOrStderr()
	fmt.Fprintf(w, "Usage:\n  %s\n", c.UseLine())
	if c.HasAvailableSubCommands() {
		fmt.Fprintln(w, "\nActions:")
		for _, sub := range c.Commands() {
			if sub.IsAvailableCommand() {
				fmt.Fprintf(w, "  %-10s %s\n", sub.Name(), sub.Short)
			}
		}
	}

	var titles []string
	sections := map[string]*pflag.FlagSet{}
	c.LocalFlags().VisitAll(func(f *pflag.Flag) {
		title := "Flags"
		if g := f.Annotations[groupAnnotation]; len(g) > 0 {
			title = g[0]
		}
		fs, ok := sections[title]
		if !ok {
			fs = pflag.NewFlagSet(title, pflag.ContinueOnError)
			sections[title] = fs
			titles = append(titles, title)
		}
		fs.AddFlag(f)
	})
	for _, title := range titles {
		fmt.Fprintf(w, "\n%s:\n%s", title, sections[title].FlagUsages())
	}
	if c.HasAvailableInheritedFlags() {
		fmt.Fprintf(w, "\nGlobal Flags:\n%s", c.InheritedFlags().FlagUsages())
	}
	return nil
}
