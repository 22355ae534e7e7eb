package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewPlanCmd создаёт группу команд для управления планами выполнения.
func NewPlanCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage execution plans",
	}

	cmd.AddCommand(
		newPlanListCmd(clientFn, outputFn),
		newPlanRequestCmd(clientFn, outputFn),
		newPlanShowCmd(clientFn, outputFn),
		newPlanPreviewCmd(clientFn, outputFn),
	)

	return cmd
}

func newPlanListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var pipelineID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List execution plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			plans, err := client.ListPlans(ListPlansOpts{
				PipelineID: pipelineID,
				Status:     status,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "PIPELINE_ID", "VERSION", "STATUS", "CREATED"}
			rows := make([][]string, len(plans))
			for i, p := range plans {
				rows[i] = []string{p.ID, p.PipelineID, strconv.Itoa(p.Version), p.Status, p.CreatedAt}
			}

			out.Print(headers, rows, plans)
			return nil
		},
	}

	cmd.Flags().StringVar(&pipelineID, "pipeline-id", "", "Filter by pipeline ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, PUBLISHED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newPlanRequestCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var version int
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "request PIPELINE_ID",
		Short: "Request a new execution plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := RequestPlanRequest{
				IdempotencyKey: idempotencyKey,
			}
			if cmd.Flags().Changed("version") {
				req.Version = &version
			}

			plan, err := client.RequestPlan(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Plan requested: %s", plan.ID))
			out.Print(
				[]string{"ID", "PIPELINE_ID", "VERSION", "STATUS", "CREATED"},
				[][]string{{plan.ID, plan.PipelineID, strconv.Itoa(plan.Version), plan.Status, plan.CreatedAt}},
				plan,
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "Pipeline version (latest if not specified)")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for the request")

	return cmd
}

func newPlanShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution plan details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			plan, err := client.GetPlan(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "PIPELINE_ID", "VERSION", "STATUS", "ERROR", "CREATED"},
				[][]string{{plan.ID, plan.PipelineID, strconv.Itoa(plan.Version), plan.Status, plan.Error, plan.CreatedAt}},
				plan,
			)
			return nil
		},
	}
}

func newPlanPreviewCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var reqFile string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Build an execution plan without persisting it",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(reqFile)
			if err != nil {
				return fmt.Errorf("failed to read request file: %w", err)
			}

			// Валидируем что это валидный JSON
			if !json.Valid(data) {
				return fmt.Errorf("request file is not valid JSON")
			}

			plan, err := client.PreviewPlan(json.RawMessage(data))
			if err != nil {
				return err
			}

			// Превью всегда выводится как JSON: план вложенный
			out.JSON(plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&reqFile, "file", "", "Path to preview request JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}
