package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"alfredoptarigan/cv-analyzer/internal/models"
	"alfredoptarigan/cv-analyzer/internal/services"
)

const cliIdentity = "cli:local"

var (
	analyzeCVPath  string
	analyzeJobPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one CV against one job description and print the result",
	Long: `Run the analysis pipeline once without starting the server. The CV must be
a PDF or DOCX file; the job description is read as plain text.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCVPath, "cv", "", "path to the CV (pdf or docx)")
	analyzeCmd.Flags().StringVar(&analyzeJobPath, "job", "", "path to a plain text job description")
	_ = analyzeCmd.MarkFlagRequired("cv")
	_ = analyzeCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cvData, err := os.ReadFile(analyzeCVPath)
	if err != nil {
		return fmt.Errorf("failed to read cv: %w", err)
	}
	jobData, err := os.ReadFile(analyzeJobPath)
	if err != nil {
		return fmt.Errorf("failed to read job description: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	outcome, err := a.svc.Analyze(ctx, models.AnalysisRequest{
		RequestID:      uuid.NewString(),
		CallerIdentity: cliIdentity,
		Document: models.UploadedDocument{
			Filename:  filepath.Base(analyzeCVPath),
			MediaType: services.MediaTypeForExtension(analyzeCVPath),
			Data:      cvData,
			Size:      int64(len(cvData)),
		},
		JobDescription: string(jobData),
	})
	if err != nil {
		if appErr, ok := services.AsAppError(err); ok {
			return fmt.Errorf("%s: %s", appErr.Code, appErr.Message)
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(models.NewAnalysisResponse(outcome))
}
