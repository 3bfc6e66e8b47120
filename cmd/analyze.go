package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/logger"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/pipeline"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/skills"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one or more resumes against a role and a job description",
	Example: `  resume-analyzer analyze --file cv.pdf --role "Full Stack" --jd-file job.txt
  resume-analyzer analyze --key resumes/3f1c.pdf --jd "Senior Go engineer"`,
	Run: func(cmd *cobra.Command, _ []string) {
		if err := analyze(cmd); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringSliceP("file", "f", nil, "local resume file (pdf, docx, txt, md); repeatable")
	analyzeCmd.Flags().StringSliceP("key", "k", nil, "resume object key in the configured bucket; repeatable")
	analyzeCmd.Flags().StringP("role", "r", "", "role to match skills against (prompted when empty)")
	analyzeCmd.Flags().String("jd", "", "job description text")
	analyzeCmd.Flags().String("jd-file", "", "file with the job description")
	analyzeCmd.Flags().IntP("concurrency", "c", 2, "documents analyzed at once")
}

func analyze(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	files, _ := cmd.Flags().GetStringSlice("file")
	keys, _ := cmd.Flags().GetStringSlice("key")
	if len(files) == 0 && len(keys) == 0 {
		return errors.New("at least one --file or --key is required")
	}

	jd, err := jobDescription(cmd)
	if err != nil {
		return err
	}

	comps, err := newComponents(ctx, config, logger)
	if err != nil {
		return err
	}
	if len(keys) > 0 && comps.storage == nil {
		return errors.New("--key needs storage.bucket to be configured")
	}

	role, _ := cmd.Flags().GetString("role")
	role, err = resolveRole(role, comps.catalog, logger)
	if err != nil {
		return err
	}

	reqs := make([]pipeline.DocumentRequest, 0, len(files)+len(keys))
	for _, f := range files {
		reqs = append(reqs, pipeline.DocumentRequest{Path: f, Role: role, JobDescription: jd})
	}
	for _, k := range keys {
		reqs = append(reqs, pipeline.DocumentRequest{Key: k, Role: role, JobDescription: jd})
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	reports, err := comps.analyzer.AnalyzeBatch(ctx, reqs, concurrency)
	if err != nil {
		return err
	}

	var out any = reports
	if len(reports) == 1 {
		out = reports[0]
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func jobDescription(cmd *cobra.Command) (string, error) {
	jd, _ := cmd.Flags().GetString("jd")
	path, _ := cmd.Flags().GetString("jd-file")

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading job description: %w", err)
		}
		jd = string(data)
	}

	if strings.TrimSpace(jd) == "" {
		return "", errors.New("a job description is required (--jd or --jd-file)")
	}
	return jd, nil
}

// resolveRole asks for a role when none was given. Unknown roles are allowed and
// produce empty skill lists.
func resolveRole(role string, catalog *skills.Catalog, logger *zap.Logger) (string, error) {
	role = strings.TrimSpace(role)
	if role != "" {
		if !catalog.Has(role) {
			logger.Warn("role is not in the catalog, skill matching will be empty",
				zap.String("role", role),
				zap.Strings("known_roles", catalog.Roles()),
			)
		}
		return role, nil
	}

	prompt := promptui.Select{
		Label: "Choose a role",
		Items: catalog.Roles(),
	}
	_, selected, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selecting a role: %w", err)
	}
	return selected, nil
}
