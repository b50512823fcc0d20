package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup [job_id]",
	Short: "Delete a job's data from every backend",
	Long: `Removes the data a job wrote to the vector index, the object store
and the analytics store. Best-effort: one backend failing does not stop
the others, and the per-backend outcome is reported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID := strings.TrimSpace(args[0])
		if jobID == "" {
			return fmt.Errorf("job id cannot be blank")
		}

		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if appInstance.CleanupService == nil {
			return fmt.Errorf("cleanup service is not initialized")
		}

		result, err := appInstance.CleanupService.CleanupJob(cmd.Context(), jobID)
		if err != nil {
			return fmt.Errorf("cleanup of job %s failed: %w", jobID, err)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Backend", "Deleted", "Error"})
		table.SetBorder(true)
		for name, svc := range result.Services {
			errMsg := ""
			if svc.Error != nil {
				errMsg = *svc.Error
			}
			table.Append([]string{name, fmt.Sprintf("%d", svc.Deleted), errMsg})
		}
		table.Render()

		if result.Success {
			color.Green("Cleanup of job %s completed: %d items deleted.", jobID, result.TotalDeleted)
		} else {
			color.Red("Cleanup of job %s completed with errors: %d items deleted, %d backend(s) failed.",
				jobID, result.TotalDeleted, len(result.Errors))
		}
		return nil
	},
}

// jobDataCmd represents the jobs data summary command
var jobDataCmd = &cobra.Command{
	Use:   "jobs [job_id]",
	Short: "Show how many items each backend holds for a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID := strings.TrimSpace(args[0])
		if jobID == "" {
			return fmt.Errorf("job id cannot be blank")
		}

		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if appInstance.CleanupService == nil {
			return fmt.Errorf("cleanup service is not initialized")
		}

		summary, err := appInstance.CleanupService.JobDataSummary(cmd.Context(), jobID)
		if err != nil {
			return fmt.Errorf("data summary of job %s failed: %w", jobID, err)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Backend", "Items"})
		table.SetBorder(true)
		for name, count := range summary.Services {
			table.Append([]string{name, fmt.Sprintf("%d", count)})
		}
		table.Render()
		fmt.Printf("Total items for job %s: %d\n", jobID, summary.TotalItems)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(jobDataCmd)
}
