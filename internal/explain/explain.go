// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package explain renders the documentation topics of the explain action.
//
// The domains and logic topics are static. The models, fields and server
// topics are built from the instance being queried.
package explain

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	apperr "clo/cli/internal/errors"
	"clo/cli/internal/model"
	"clo/cli/internal/session"
)

// Topics lists every topic in display order.
var Topics = []string{"models", "domains", "logic", "fields", "server"}

const (
	indent = "  "
	delim  = "  "
)

var helpBreak = regexp.MustCompile(`\n| {3,}`)

// Explainer writes topics to w.
type Explainer struct {
	w      io.Writer
	styled bool
	reg    *model.Registry
	sess   *session.Session
}

// New returns an Explainer. Headings are underlined only when styled is set.
func New(w io.Writer, styled bool, reg *model.Registry, sess *session.Session) *Explainer {
	return &Explainer{w: w, styled: styled, reg: reg, sess: sess}
}

// Topic writes the named topic. modelName is used by the fields topic; verbose
// adds each model's description to the models topic.
func (e *Explainer) Topic(ctx context.Context, topic, modelName string, verbose bool) error {
	var (
		text string
		err  error
	)
	switch topic {
	case "models":
		text, err = e.models(ctx, verbose)
	case "domains":
		text = e.heading("DOMAINS") + domainsText
	case "logic":
		text = e.heading("LOGIC") + logicText
	case "fields":
		text, err = e.fields(ctx, modelName)
	case "server":
		text, err = e.server(ctx)
	default:
		return apperr.Newf(apperr.Argument, "unknown topic %q", topic)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.w, text)
	return err
}

func (e *Explainer) heading(title string) string {
	if e.styled {
		title = pterm.NewStyle(pterm.Underscore).Sprint(title)
	}
	return "\n" + title + "\n\n"
}

// leaders renders name/text rows with dot leaders so every text starts in the
// same column; continuation lines hang under the text.
func leaders(rows [][2]string) string {
	pad := 0
	for _, r := range rows {
		pad = max(pad, len(r[0]))
	}
	hang := "\n" + strings.Repeat(" ", len(indent+delim)+pad)
	lines := make([]string, len(rows))
	for i, r := range rows {
		dots := strings.Repeat(".", pad-len(r[0]))
		lines[i] = indent + r[0] + dots + delim + strings.ReplaceAll(strings.TrimSpace(r[1]), "\n", hang)
	}
	return strings.Join(lines, "\n")
}

func (e *Explainer) models(ctx context.Context, verbose bool) (string, error) {
	entries, err := e.reg.Entries(ctx)
	if err != nil {
		return "", err
	}
	rows := make([][2]string, len(entries))
	for i, en := range entries {
		info := en.Name
		if verbose && strings.TrimSpace(en.Info) != "" {
			info += "\n" + strings.TrimSpace(en.Info)
		}
		rows[i] = [2]string{en.Model, info}
	}
	return e.heading("MODELS") + "The following models are available to query:\n\n" + leaders(rows), nil
}

func (e *Explainer) fields(ctx context.Context, modelName string) (string, error) {
	m, err := e.reg.Lookup(ctx, modelName)
	if err != nil {
		return "", err
	}
	defs, err := m.Fields(ctx, []string{"string", "type", "help", "exportable"})
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(defs))
	for name, def := range defs {
		if exportable, _ := def["exportable"].(bool); exportable {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	rows := make([][2]string, len(names))
	for i, name := range names {
		def := defs[name]
		label, _ := def["string"].(string)
		kind, _ := def["type"].(string)
		parts := []string{fmt.Sprintf("%s  <%s>", strings.TrimSpace(label), kind)}
		if help, _ := def["help"].(string); strings.TrimSpace(help) != "" {
			for _, line := range helpBreak.Split(strings.TrimSpace(help), -1) {
				if line = strings.TrimSpace(line); line != "" {
					parts = append(parts, line)
				}
			}
		}
		rows[i] = [2]string{name, strings.Join(parts, "\n")}
	}
	return e.heading("FIELDS") + fmt.Sprintf("The following fields apply to the `%s` model:\n\n", modelName) + leaders(rows), nil
}

func (e *Explainer) server(ctx context.Context) (string, error) {
	info, err := e.sess.Version(ctx)
	if err != nil {
		return "", err
	}
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data := pterm.TableData{{"KEY", "VALUE"}}
	for _, k := range keys {
		data = append(data, []string{k, fmt.Sprint(info[k])})
	}
	table, err := pterm.DefaultTable.WithHasHeader(e.styled).WithData(data).Srender()
	if err != nil {
		return "", apperr.Wrap(apperr.Output, "rendering server table", err)
	}
	return e.heading("SERVER") + fmt.Sprintf("%s answers with:\n\n", e.sess.URL()) + table, nil
}

const domainsText = `A domain is a set of criteria, each criterion being a triple of (FIELD, OPERATOR, VALUE) where:

FIELD     A field name of the current model, or a relationship traversal through a ` + "`Many2one`" + ` using
          dot-notation.

OPERATOR  An operator used to compare the FIELD with the value. Valid operators are:

            =, !=, >, >=, <, <=   Standard comparison operators.
            =?                    Unset or equals to (true if value is either None or False, otherwise
                                  behaves like ` + "`=`" + `).
            =[i]like              Matches FIELD against the value pattern. An underscore ("_") matches any
                                  single character; a percent sign ("%") matches any string of zero or more
                                  characters. ` + "`=ilike`" + ` makes the search case-insensitive.
            [not ][i]like         Matches (or inverse-matches) FIELD against the %value% pattern. Similar to
                                  ` + "`=[i]like`" + ` but wraps value with "%" before matching.
            [not ]in              Is, or is not, equal to any of the items from value; value should be a
                                  list of items.
            child_of              Is a child (descendant) of a value record (one item or a list of items).
            parent_of             Is a parent (ascendant) of a value record (one item or a list of items).

VALUE     Variable type, must be comparable (through OPERATOR) to the named FIELD.`

const logicText = `Domain criteria can be combined using logical operators in prefix form:

` + "`--or -d login = user -d name = \"John Smith\" -d email = user@domain.com`" + `
  is equivalent to ` + "`login == \"user\" || name == \"John Smith\" || email == \"user@domain.com\"`" + `

` + "`--not -d login = user`" + ` or ` + "`-d login '!=' user`" + `
  are equivalent to ` + "`login != \"user\"`" + `. ` + "`--not`" + ` is generally unneeded, save for negating
  ` + "`child_of`" + ` or ` + "`parent_of`" + `.

` + "`--and -d login = user -d name = \"John Smith\"`" + `
  is equivalent to ` + "`login == \"user\" && name == \"John Smith\"`" + `; successive domains imply ` + "`--and`" + `.`
