package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zapnorok/FileStructureAutomator/internal/provision"
)

func newTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template [name words...]",
		Short: "Print the folder template",
		Long: "Prints the effective folder template in creation order. With a name, " +
			"prints the full Dropbox paths setup would create for it.",
		RunE: runTemplate,
	}
}

func runTemplate(cmd *cobra.Command, args []string) error {
	tmpl := resolvedCfg.Template
	paths := tmpl.Paths()

	if len(args) > 0 {
		name, err := provision.NormalizeName(rootNameFromArgs(args))
		if err != nil {
			return err
		}

		full := make([]string, 0, len(paths)+1)
		full = append(full, provision.RootPath(name))

		for _, p := range paths {
			full = append(full, provision.FolderPath(name, p))
		}

		paths = full
	}

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return enc.Encode(paths)
	}

	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}

	statusf("%d folders\n", len(paths))

	return nil
}
