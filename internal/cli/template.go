package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewTemplateCmd создаёт группу команд для управления шаблонами.
func NewTemplateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage job templates",
	}

	cmd.AddCommand(
		newTemplateListCmd(clientFn, outputFn),
		newTemplateRegisterCmd(clientFn, outputFn),
		newTemplateShowCmd(clientFn, outputFn),
		newTemplateVersionsCmd(clientFn, outputFn),
		newTemplateDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newTemplateListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			templates, err := client.ListTemplates()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "VERSION", "PARAMS", "STEPS"}
			rows := make([][]string, len(templates))
			for i, t := range templates {
				rows[i] = []string{t.Name, t.Version, strconv.Itoa(len(t.Parameters)), strconv.Itoa(len(t.Steps))}
			}

			out.Print(headers, rows, templates)
			return nil
		},
	}
}

func newTemplateRegisterCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var defFile string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a template from definition file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(defFile)
			if err != nil {
				return fmt.Errorf("failed to read definition file: %w", err)
			}

			// Валидируем что это валидный JSON
			if !json.Valid(data) {
				return fmt.Errorf("definition file is not valid JSON")
			}

			template, err := client.RegisterTemplate(json.RawMessage(data))
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Template registered: %s@%s", template.Name, template.Version))
			out.Print(
				[]string{"NAME", "VERSION", "PARAMS", "STEPS"},
				[][]string{{template.Name, template.Version, strconv.Itoa(len(template.Parameters)), strconv.Itoa(len(template.Steps))}},
				template,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&defFile, "def-file", "", "Path to template JSON file (required)")
	cmd.MarkFlagRequired("def-file")

	return cmd
}

func newTemplateShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME VERSION",
		Short: "Show template details",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			template, err := client.GetTemplate(args[0], args[1])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"NAME", "VERSION", "PARAMS", "STEPS"},
				[][]string{{template.Name, template.Version, strconv.Itoa(len(template.Parameters)), strconv.Itoa(len(template.Steps))}},
				template,
			)
			return nil
		},
	}
}

func newTemplateVersionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "versions NAME",
		Short: "List template versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			versions, err := client.ListTemplateVersions(args[0])
			if err != nil {
				return err
			}

			headers := []string{"NAME", "VERSION", "PARAMS", "STEPS"}
			rows := make([][]string, len(versions))
			for i, t := range versions {
				rows[i] = []string{t.Name, t.Version, strconv.Itoa(len(t.Parameters)), strconv.Itoa(len(t.Steps))}
			}

			out.Print(headers, rows, versions)
			return nil
		},
	}
}

func newTemplateDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME VERSION",
		Short: "Delete a template version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteTemplate(args[0], args[1]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Template deleted: %s@%s", args[0], args[1]))
			return nil
		},
	}
}
