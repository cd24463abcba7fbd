package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/dpshade/pocket-forms/internal/clipboard"
	"github.com/dpshade/pocket-forms/internal/commands"
	apperrors "github.com/dpshade/pocket-forms/internal/errors"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *CLI) listCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List templates",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := commands.NewCommandExecutor(c.service).Execute(cmd.Context(), "list-templates", nil)
			if err != nil {
				return err
			}
			if !result.Success {
				return result.Error.AppError()
			}
			summaries := result.Data.([]commands.TemplateSummary)

			if format == "json" {
				return writeJSON(cmd, summaries)
			}

			t := newTable("#", "Name", "Segments", "Fields", "Submit")
			for _, s := range summaries {
				name := s.Name
				if s.Active {
					name += " *"
				}
				submit := "-"
				if s.HasSubmitConfig {
					submit = string(s.APIMethod) + " " + s.APIURL
				}
				t.Row(strconv.Itoa(s.Index), name, strconv.Itoa(s.Segments), strconv.Itoa(s.Fields), submit)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table, json)")
	return cmd
}

func (c *CLI) showCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "show <template>",
		Aliases: []string{"get"},
		Short:   "Show a template's segments and submission settings",
		Example: `  pocket-forms show 0
  pocket-forms show "release notes"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, tmpl, err := c.resolveTemplate(args[0])
			if err != nil {
				return err
			}
			if format == "json" {
				fields, err := c.service.Fields(index)
				if err != nil {
					return err
				}
				return writeJSON(cmd, commands.TemplateDetail{Index: index, Template: tmpl, Fields: fields})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (#%d)\n", tmpl.Name, index)
			if tmpl.HasSubmitConfig() {
				fmt.Fprintf(out, "  Submit:    %s %s\n", tmpl.APIMethod, tmpl.APIURL)
				fmt.Fprintf(out, "  JSON path: %s\n", tmpl.JSONPath)
			}
			if tmpl.JSONFileName != "" {
				fmt.Fprintf(out, "  JSON file: %s\n", tmpl.JSONFileName)
			}
			for i, seg := range tmpl.Segments {
				fmt.Fprintf(out, "\n[%d] %s (%s)\n", i, seg.Title(), seg.ID)
				if seg.Text != "" {
					fmt.Fprintln(out, indent(seg.Text, "    "))
				}
			}
			if last := tmpl.LastSuccessfulRequest; last != nil {
				fmt.Fprintf(out, "\nLast response: %s\n", strings.Join(strings.Fields(string(last.Response)), " "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json)")
	return cmd
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func (c *CLI) fieldsCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "fields <template>",
		Short: "List a template's form fields and their options",
		Long: `List a template's form fields. The first option of each field is its
default; pass --set name=option to generate or submit to pick another.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, _, err := c.resolveTemplate(args[0])
			if err != nil {
				return err
			}
			fields, err := c.service.Fields(index)
			if err != nil {
				return err
			}
			if format == "json" {
				return writeJSON(cmd, fields)
			}
			if len(fields) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No fields.")
				return nil
			}

			t := newTable("Field", "Label", "Options")
			for _, f := range fields {
				t.Row(f.Name, f.Label, strings.Join(f.Options, ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table, json)")
	return cmd
}

func (c *CLI) generateCommand() *cobra.Command {
	var (
		set     []string
		format  string
		copyOut bool
	)

	cmd := &cobra.Command{
		Use:   "generate <template>",
		Short: "Generate a prompt from a template",
		Example: `  pocket-forms generate 0
  pocket-forms generate "code review" --set tone=blunt --set depth=thorough --copy
  pocket-forms generate 0 --format messages`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseSet(set)
			if err != nil {
				return err
			}
			index, tmpl, err := c.resolveTemplate(args[0])
			if err != nil {
				return err
			}

			prompt, resolved, err := c.service.Generate(index, values)
			if err != nil {
				return err
			}

			switch format {
			case "text":
				fmt.Fprintln(cmd.OutOrStdout(), prompt)
			case "json":
				if err := writeJSON(cmd, commands.GenerateResult{Index: index, Name: tmpl.Name, Prompt: prompt, Values: resolved}); err != nil {
					return err
				}
			case "messages":
				messages, err := c.service.RenderMessages(index, values)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), messages)
			default:
				return apperrors.ValidationError(fmt.Sprintf("unknown format %q (want text, json or messages)", format))
			}

			if copyOut {
				msg, err := clipboard.CopyWithFallback(prompt)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), msg)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&set, "set", "s", nil, "field value as name=option (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json, messages)")
	cmd.Flags().BoolVarP(&copyOut, "copy", "c", false, "also copy the prompt to the clipboard")
	return cmd
}

func (c *CLI) submitCommand() *cobra.Command {
	var set []string

	cmd := &cobra.Command{
		Use:   "submit <template>",
		Short: "Generate a prompt and send it to the template's endpoint",
		Long: `Generate a prompt, write it into the template's JSON document at its JSON
path and send the document to the template's URL. The response body is
printed to stdout; the status line goes to stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseSet(set)
			if err != nil {
				return err
			}
			index, _, err := c.resolveTemplate(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := c.service.Submit(ctx, index, values)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "HTTP %d\n", result.StatusCode)
			if err := writeJSON(cmd, result.Response); err != nil {
				return err
			}
			if result.StatusCode >= 400 {
				return apperrors.RejectedError(result.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&set, "set", "s", nil, "field value as name=option (repeatable)")
	return cmd
}
