package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dpshade/pocket-forms/internal/service"
)

func (c *CLI) templateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"tpl"},
		Short:   "Add, remove or rename templates",
	}

	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a template with one empty segment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := c.service.AddTemplate()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := c.service.RenameTemplate(index, args[0]); err != nil {
					return err
				}
			}
			tmpl, err := c.service.GetTemplate(index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added template %d: %s\n", index, tmpl.Name)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:     "rm <template>",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove a template",
		Long:    "Remove a template. The last remaining template cannot be removed.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, tmpl, err := c.resolveTemplate(args[0])
			if err != nil {
				return err
			}
			if err := c.service.RemoveTemplate(index); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed template %d: %s\n", index, tmpl.Name)
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename <template> <name>",
		Short: "Rename a template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, _, err := c.resolveTemplate(args[0])
			if err != nil {
				return err
			}
			if err := c.service.RenameTemplate(index, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed template %d to %q\n", index, args[1])
			return nil
		},
	}

	cmd.AddCommand(add, rm, rename)
	return cmd
}

func (c *CLI) segmentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "segment",
		Aliases: []string{"seg"},
		Short:   "Edit the segments of a template",
		Long: `Edit the segments of a template. Segments are referenced by id, by
0-based position or by name.`,
	}

	var addName, addText, addFile string
	add := &cobra.Command{
		Use:   "add <template>",
		Short: "Append a segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, _, err := c.resolveTemplate(args[0])
			if err != nil {
				return err
			}
			text, err := readText(cmd, addText, addFile)
			if err != nil {
				return err
			}

			id, err := c.service.AddSegment(index)
			if err != nil {
				return err
			}
			if addName != "" {
				if err := c.service.RenameSegment(index, id, addName); err != nil {
					return err
				}
			}
			if text != "" {
				if err := c.service.UpdateSegment(index, id, text); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added segment %s\n", id)
			return nil
		},
	}
	add.Flags().StringVarP(&addName, "name", "n", "", "segment name")
	add.Flags().StringVarP(&addText, "text", "t", "", "segment text")
	add.Flags().StringVar(&addFile, "file", "", "read segment text from a file (- for stdin)")

	rm := &cobra.Command{
		Use:     "rm <template> <segment>",
		Aliases: []string{"remove"},
		Short:   "Remove a segment",
		Long:    "Remove a segment. Removing the only segment leaves an empty one in its place.",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, tmpl, err := c.resolveTemplate(args[0])
			if err != nil {
				return err
			}
			seg, err := resolveSegment(tmpl, args[1])
			if err != nil {
				return err
			}
			if err := c.service.RemoveSegment(index, seg.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed segment %s\n", seg.Title())
			return nil
		},
	}

	var editText, editFile string
	edit := &cobra.Command{
		Use:   "edit <template> <segment>",
		Short: "Replace a segment's text",
		Example: `  pocket-forms segment edit 0 intro --text "Write a [Tone: calm, blunt] reply"
  cat body.txt | pocket-forms segment edit review 1 --file -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("text") && editFile == "" {
				return fmt.Errorf("one of --text or --file is required")
			}
			index, tmpl, err := c.resolveTemplate(args[0])
			if err != nil {
				return err
			}
			seg, err := resolveSegment(tmpl, args[1])
			if err != nil {
				return err
			}
			text, err := readText(cmd, editText, editFile)
			if err != nil {
				return err
			}
			if err := c.service.UpdateSegment(index, seg.ID, text); err != nil {
				return err
			}
			fields, err := c.service.Fields(index)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated segment %s (%d fields in template)\n", seg.Title(), len(fields))
			return nil
		},
	}
	edit.Flags().StringVarP(&editText, "text", "t", "", "new segment text")
	edit.Flags().StringVar(&editFile, "file", "", "read segment text from a file (- for stdin)")

	rename := &cobra.Command{
		Use:   "rename <template> <segment> <name>",
		Short: "Rename a segment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, tmpl, err := c.resolveTemplate(args[0])
			if err != nil {
				return err
			}
			seg, err := resolveSegment(tmpl, args[1])
			if err != nil {
				return err
			}
			if err := c.service.RenameSegment(index, seg.ID, args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed segment %s to %q\n", seg.ID, args[2])
			return nil
		},
	}

	move := &cobra.Command{
		Use:   "move <template> <segment> <target>",
		Short: "Move a segment to the position of another",
		Long: `Move a segment to the position currently held by target. Moving down
places it after target, moving up places it before.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, tmpl, err := c.resolveTemplate(args[0])
			if err != nil {
				return err
			}
			from, err := resolveSegment(tmpl, args[1])
			if err != nil {
				return err
			}
			to, err := resolveSegment(tmpl, args[2])
			if err != nil {
				return err
			}
			if err := c.service.MoveSegment(index, from.ID, to.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved segment %s\n", from.Title())
			return nil
		},
	}

	cmd.AddCommand(add, rm, edit, rename, move)
	return cmd
}

func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Set where a template's prompt is submitted",
	}

	var (
		jsonFile, jsonData, jsonPath, apiURL, method string
		repair                                       bool
	)
	set := &cobra.Command{
		Use:   "set <template>",
		Short: "Set the JSON document, JSON path, URL and method of a template",
		Long: `Set submission settings. Only the flags given are changed; pass an empty
value to clear one. Invalid JSON or an invalid URL leaves the template as it was.`,
		Example: `  pocket-forms config set 0 --json-file request.json --path messages.0.content
  pocket-forms config set 0 --url api.example.com/v1/chat --method POST
  pocket-forms config set 0 --json "{'input': {text: ''}}" --repair`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, _, err := c.resolveTemplate(args[0])
			if err != nil {
				return err
			}

			update := service.ConfigUpdate{Repair: repair}
			flags := cmd.Flags()
			if jsonFile != "" {
				text, err := readText(cmd, "", jsonFile)
				if err != nil {
					return err
				}
				name := filepath.Base(jsonFile)
				if jsonFile == "-" {
					name = ""
				}
				update.JSONData = &text
				update.JSONFileName = &name
			}
			if flags.Changed("json") {
				update.JSONData = &jsonData
			}
			if flags.Changed("path") {
				update.JSONPath = &jsonPath
			}
			if flags.Changed("url") {
				update.APIURL = &apiURL
			}
			if flags.Changed("method") {
				update.APIMethod = &method
			}

			if err := c.service.Configure(index, update); err != nil {
				return err
			}
			tmpl, err := c.service.GetTemplate(index)
			if err != nil {
				return err
			}
			status := "not submittable yet"
			if tmpl.HasSubmitConfig() {
				status = fmt.Sprintf("submits with %s %s", tmpl.APIMethod, tmpl.APIURL)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s\n", tmpl.Name, status)
			return nil
		},
	}
	set.Flags().StringVar(&jsonFile, "json-file", "", "load the JSON document from a file (- for stdin)")
	set.Flags().StringVar(&jsonData, "json", "", "JSON document")
	set.Flags().BoolVar(&repair, "repair", false, "repair malformed JSON instead of rejecting it")
	set.Flags().StringVar(&jsonPath, "path", "", "dot path where the prompt is written, e.g. messages.0.content")
	set.Flags().StringVar(&apiURL, "url", "", "endpoint URL (http:// is added when no scheme is given)")
	set.Flags().StringVar(&method, "method", "", "HTTP method (GET or POST)")
	set.MarkFlagsMutuallyExclusive("json-file", "json")

	copyPrevious := &cobra.Command{
		Use:   "copy-previous <template>",
		Short: "Copy JSON document, path, URL and method from the template before it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, _, err := c.resolveTemplate(args[0])
			if err != nil {
				return err
			}
			if err := c.service.CopyConfigFromPrevious(index); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied configuration from template %d\n", index-1)
			return nil
		},
	}

	cmd.AddCommand(set, copyPrevious)
	return cmd
}
