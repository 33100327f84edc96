package cmd

import (
	"lms_backend/internal/app"
	"lms_backend/internal/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lms",
	Short: "LMS grading and progress service",
	Long:  "Grades assessment submissions under attempt limits and keeps lesson, course and enrollment progress consistent.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app.NewApp(cfg).Run()
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "configs", "Directory containing config.yaml (LMS_* env vars override it)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(recomputeCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString("config")
	return config.LoadConfig(dir)
}
