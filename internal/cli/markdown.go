// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// Markdown writes the documentation of the whole command tree to w.
func (p *Parser) Markdown(w io.Writer) error {
	root := p.Build(NewNamespace())
	root.DisableAutoGenTag = true
	link := func(name string) string {
		return "#" + strings.ReplaceAll(strings.TrimSuffix(name, ".md"), "_", "-")
	}
	cmds := append([]*cobra.Command{root}, root.Commands()...)
	for _, c := range cmds {
		if !c.IsAvailableCommand() && c != root {
			continue
		}
		c.DisableAutoGenTag = true
		if err := doc.GenMarkdownCustom(c, w, link); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
