package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup-stale",
	Short: "Abandon a student's active sessions older than SESSION_STALE_AFTER",
	RunE: func(cmd *cobra.Command, args []string) error {
		studentID, _ := cmd.Flags().GetString("student")
		if studentID == "" {
			return fmt.Errorf("--student is required")
		}

		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		count, err := a.services.Session().CleanupStaleSessions(cmd.Context(), studentID)
		if err != nil {
			return err
		}

		a.logger.Info("Stale sessions cleaned up", "student_id", studentID, "abandoned", count)
		fmt.Fprintf(cmd.OutOrStdout(), "abandoned %d stale session(s) for %s\n", count, studentID)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().String("student", "", "Student ID whose stale sessions should be abandoned")
}
