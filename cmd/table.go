// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"io"

	"clo/cli/internal/cli"
	"clo/cli/internal/config"
	"clo/cli/internal/domain"
	"clo/cli/internal/logging"
	"clo/cli/internal/settings"
	"clo/cli/internal/types"
)

var outputGroup = &cli.Group{Title: "Output", Description: "How the result is rendered."}

func parseLevel(tok string) (any, error) {
	return logging.ParseLevel(tok)
}

// domainArguments are shared by every action that filters records.
func domainArguments() []cli.Argument {
	return []cli.Argument{
		{Names: []string{"--domain", "-d"}, Detail: cli.Detail{
			Action:  cli.Append,
			Nargs:   3,
			Dest:    "criteria",
			NewType: func() cli.Coercer { return domain.NewCompiler().Coerce },
			Combine: domain.Combine,
			Metavar: []string{"FIELD", "OPERATOR", "VALUE"},
			Help:    "a criterion (FIELD, OPERATOR, VALUE) records must match; see `explain domains`",
		}},
		{Names: []string{"--or", "-o"}, Detail: cli.Detail{
			Action: cli.AppendConst, Const: domain.Or, Dest: "criteria",
			Help: "match either of the next two criteria",
		}},
		{Names: []string{"--and", "-a"}, Detail: cli.Detail{
			Action: cli.AppendConst, Const: domain.And, Dest: "criteria",
			Help: "match both of the next two criteria",
		}},
		{Names: []string{"--not", "-n"}, Detail: cli.Detail{
			Action: cli.AppendConst, Const: domain.Not, Dest: "criteria",
			Help: "negate the next criterion",
		}},
	}
}

func paging(withOrder bool) []cli.Argument {
	args := []cli.Argument{
		{Names: []string{"--offset"}, Detail: cli.Detail{Type: cli.Int, Default: 0, Metavar: []string{"N"}, Help: "number of records to skip"}},
		{Names: []string{"--limit"}, Detail: cli.Detail{Type: cli.Int, Metavar: []string{"N"}, Help: "maximum number of records"}},
	}
	if withOrder {
		args = append(args, cli.Argument{Names: []string{"--order"}, Detail: cli.Detail{
			Metavar: []string{"FIELD"}, Help: "sort order, e.g. \"name desc\"",
		}})
	}
	return args
}

func idsArgument(stdin io.Reader) cli.Argument {
	return cli.Argument{Names: []string{"--ids", "-i"}, Detail: cli.Detail{
		Nargs:    cli.OneOrMore,
		Type:     cli.StdinIDs("--ids", stdin),
		Required: true,
		Metavar:  []string{"ID"},
		Help:     "record ids, or - to read them from standard input",
	}}
}

func fieldsArgument() cli.Argument {
	return cli.Argument{Names: []string{"--fields", "-f"}, Detail: cli.Detail{
		Nargs: cli.OneOrMore, Metavar: []string{"FIELD"}, Help: "fields to return; all when omitted",
	}}
}

func csvArgument() cli.Argument {
	return cli.Argument{Names: []string{"--csv"}, Group: outputGroup, Detail: cli.Detail{
		Action: cli.StoreTrue, Help: "render records as CSV",
	}}
}

func valueArgument(exclusive *cli.Exclusive, required bool) cli.Argument {
	return cli.Argument{Names: []string{"--value", "-v"}, Exclusive: exclusive, Detail: cli.Detail{
		Action:   cli.Append,
		Nargs:    2,
		Dest:     "values",
		Required: required,
		Metavar:  []string{"FIELD", "VALUE"},
		Help:     "a field assignment; repeat for several fields",
	}}
}

// program describes the whole command line. stdin feeds `--ids -`.
func program(stdin io.Reader) *cli.Program {
	records := &cli.Exclusive{Key: "records", Required: true}

	search := append(domainArguments(), paging(true)...)
	search = append(search, cli.Argument{Names: []string{"--raw", "-r"}, Group: outputGroup, Detail: cli.Detail{
		Action: cli.StoreTrue, Help: "print the ids separated by spaces",
	}})

	count := append(domainArguments(), paging(false)[1])

	find := append(domainArguments(), fieldsArgument())
	find = append(find, paging(true)...)
	find = append(find, csvArgument())

	return &cli.Program{
		Name:    "clo",
		Short:   "Command-line Odoo",
		Long:    "clo queries and changes the records of an Odoo instance through its XML-RPC API.",
		Version: Version,
		Globals: []cli.Argument{
			{Names: []string{"--model", "-m"}, Detail: cli.Detail{
				Default: settings.DefaultModel, Metavar: []string{"MODEL"}, Help: "the model to work on",
			}},
			{Names: []string{"--env"}, Detail: cli.Detail{
				Metavar: []string{"FILE"}, Help: "read OD_* variables from FILE instead of ~/.clorc",
			}},
			{Names: []string{"--inst", "--instance"}, Detail: cli.Detail{
				Type:    types.ParseURLValue,
				Default: types.URL(settings.DefaultInstance),
				Dest:    "instance",
				Metavar: []string{"URL"},
				Help:    "URL of the instance (default " + settings.DefaultInstance + ")",
				Ask:     &cli.Ask{Prompt: "Instance", Env: config.EnvInstance},
			}},
			{Names: []string{"--db", "--database"}, Detail: cli.Detail{
				Dest:    "database",
				Metavar: []string{"NAME"},
				Help:    "database to log into",
				Ask:     &cli.Ask{Prompt: "Database", Env: config.EnvDatabase},
			}},
			{Names: []string{"--user"}, Detail: cli.Detail{
				Dest:    "username",
				Metavar: []string{"NAME"},
				Help:    "login of the user",
				Ask:     &cli.Ask{Prompt: "Username", Env: config.EnvUsername},
			}},
			{Names: []string{"--pass"}, Detail: cli.Detail{
				Type:    types.ParseSecret,
				Dest:    "password",
				Hidden:  true,
				Metavar: []string{"SECRET"},
				Help:    "password of the user",
				Ask:     &cli.Ask{Prompt: "Password", Env: config.EnvPassword, Secret: true},
			}},
			{Names: []string{"--keyring"}, Detail: cli.Detail{
				Action: cli.StoreTrue, Help: "read the password from the OS keychain and store it there after a successful login",
			}},
			{Names: []string{"--demo"}, Detail: cli.Detail{
				Nargs: cli.Optional, Const: settings.Stdout, Metavar: []string{"FILE"},
				Help: "create a demo instance and print its OD_* variables, or write them to FILE",
			}},
			{Names: []string{"--out"}, Detail: cli.Detail{
				Default: settings.Stdout, Metavar: []string{"FILE"},
				Help: "write the result to FILE or to postgres://...?table=NAME",
			}},
			{Names: []string{"--log"}, Detail: cli.Detail{
				Type: parseLevel, Default: logging.DefaultLevel, Metavar: []string{"LEVEL"},
				Help: "log level, one of " + logging.Pretty(),
			}},
			{Names: []string{"--dry-run"}, Detail: cli.Detail{
				Action: cli.StoreTrue, Help: "show the remote call without running it",
			}},
			{Names: []string{"--readme"}, Detail: cli.Detail{
				Action: cli.StoreTrue, Help: "print this documentation as markdown",
			}},
		},
		Commands: []cli.Command{
			{
				Name:      "search",
				Short:     "Search for ids of records matching the domains",
				Example:   "  clo search -d login = admin\n  clo -m res.partner search --or -d name ilike acme -d ref = ACME --limit 5",
				Arguments: search,
			},
			{
				Name:      "count",
				Short:     "Count the records matching the domains",
				Arguments: count,
			},
			{
				Name:    "read",
				Short:   "Read records by id",
				Example: "  clo read -i 2 6 -f login name\n  clo search -r -d active = True | clo read -i - --csv",
				Arguments: []cli.Argument{
					idsArgument(stdin),
					fieldsArgument(),
					csvArgument(),
				},
			},
			{
				Name:      "find",
				Short:     "Search and read the records matching the domains",
				Arguments: find,
			},
			{
				Name:    "create",
				Short:   "Create records",
				Example: "  clo create -v login newbie -v name \"New User\"\n  clo create --using users.csv",
				Arguments: []cli.Argument{
					valueArgument(records, false),
					{Names: []string{"--using"}, Exclusive: records, Detail: cli.Detail{
						Metavar: []string{"FILE"},
						Help:    "read the records from a JSON array or CSV file, - for standard input",
					}},
				},
			},
			{
				Name:  "write",
				Short: "Update records by id",
				Arguments: []cli.Argument{
					idsArgument(stdin),
					valueArgument(nil, true),
				},
			},
			{
				Name:      "delete",
				Short:     "Delete records by id",
				Arguments: []cli.Argument{idsArgument(stdin)},
			},
			{
				Name:  "fields",
				Short: "Show the field definitions of the model",
				Arguments: []cli.Argument{
					{Names: []string{"--attributes", "--attr", "-a"}, Detail: cli.Detail{
						Nargs: cli.OneOrMore, Metavar: []string{"NAME"}, Help: "field attributes to return, e.g. string type",
					}},
				},
			},
			{
				Name:  "explain",
				Short: "Explain models, domains, logic, fields or the server",
				Arguments: []cli.Argument{
					{Names: []string{"topic"}, Detail: cli.Detail{Choices: settings.Topics, Required: true, Help: "what to explain"}},
					{Names: []string{"--verbose", "-v"}, Detail: cli.Detail{
						Action: cli.StoreTrue, Default: false, Help: "include model descriptions",
					}},
				},
			},
		},
		IntrospectFlags: []string{"dry_run", "readme"},
	}
}
