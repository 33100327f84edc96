package cmd

import (
	"fmt"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"

	"github.com/spf13/cobra"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute-progress",
	Short: "Recompute enrollment progress from lesson completions",
	Long:  "Recomputes progress for every enrollment (or one course with --course). Completed enrollments stay completed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger.InitLogger(cfg)
		defer logger.Log.Sync()

		db, err := database.Open(&cfg.Database)
		if err != nil {
			return err
		}

		courseID, _ := cmd.Flags().GetUint("course")
		progress := service.NewProgressService(db,
			repository.NewCourseRepository(db),
			repository.NewProgressRepository(db),
			repository.NewEnrollmentRepository(db),
		)

		n, err := progress.RecomputeAll(cmd.Context(), courseID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recomputed %d enrollments\n", n)
		return nil
	},
}

func init() {
	recomputeCmd.Flags().Uint("course", 0, "Only recompute enrollments of this course")
}
