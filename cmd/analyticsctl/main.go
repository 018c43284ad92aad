// Package main implements analyticsctl, the operator CLI for one-off analytics runs.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/onegreenvn/green-insights-backend/internal/config"
	"github.com/onegreenvn/green-insights-backend/internal/database"
	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/services"
	"github.com/onegreenvn/green-insights-backend/internal/services/auth"
	"github.com/onegreenvn/green-insights-backend/internal/services/excel"
)

var (
	orgID string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "analyticsctl",
	Short: "Operator commands for the analytics backend",
	Long: `analyticsctl runs analytics jobs directly against the database.
It uses the same environment (.env) as the API server.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	},
}

var generatePlaybooksCmd = &cobra.Command{
	Use:   "generate-playbooks",
	Short: "Generate playbooks for an organization",
	Long: `Generate one playbook per content format from the organization's top content.

Examples:
  analyticsctl generate-playbooks --org <id> --days 30 --min-items 3`,
	RunE: runGeneratePlaybooks,
}

var checkAlertsCmd = &cobra.Command{
	Use:   "check-alerts",
	Short: "Run KPI drop (or viral spike) checks",
	Long: `Run alert checks for one organization, or for every organization with
tracked integrations when --org is omitted.

Examples:
  analyticsctl check-alerts --org <id>
  analyticsctl check-alerts --viral`,
	RunE: runCheckAlerts,
}

var experimentResultsCmd = &cobra.Command{
	Use:   "experiment-results <experiment-id>",
	Short: "Print experiment results",
	Long: `Recompute and print experiment results as JSON.

Examples:
  analyticsctl experiment-results <id> --org <id>
  analyticsctl experiment-results <id> --org <id> --xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runExperimentResults,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development bearer token",
	RunE:  runToken,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&orgID, "org", "", "organization ID")

	generatePlaybooksCmd.Flags().Int("days", 0, "lookback window in days (default from config)")
	generatePlaybooksCmd.Flags().Int("min-items", 0, "minimum content items per format")
	generatePlaybooksCmd.Flags().String("group", "", "integration group ID")
	generatePlaybooksCmd.Flags().StringSlice("integrations", nil, "integration IDs")

	checkAlertsCmd.Flags().Bool("viral", false, "check viral spikes instead of KPI drops")

	experimentResultsCmd.Flags().Bool("xlsx", false, "also write an Excel workbook to EXPORTS_DIR")

	tokenCmd.Flags().String("user", "cli", "user ID claim")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(generatePlaybooksCmd)
	rootCmd.AddCommand(checkAlertsCmd)
	rootCmd.AddCommand(experimentResultsCmd)
	rootCmd.AddCommand(tokenCmd)
}

// bootstrap loads configuration and connects to the database
func bootstrap() (*config.Config, *gorm.DB, *services.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	container := services.NewContainer(db, cfg.Analytics, nil, nil, nil, services.Options{QueryTimeout: cfg.QueryTimeout})
	return cfg, db, container, nil
}

func requireOrg() error {
	if orgID == "" {
		return fmt.Errorf("--org is required")
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runGeneratePlaybooks(cmd *cobra.Command, args []string) error {
	if err := requireOrg(); err != nil {
		return err
	}
	_, _, container, err := bootstrap()
	if err != nil {
		return err
	}

	days, _ := cmd.Flags().GetInt("days")
	minItems, _ := cmd.Flags().GetInt("min-items")
	group, _ := cmd.Flags().GetString("group")
	integrations, _ := cmd.Flags().GetStringSlice("integrations")

	req := models.GeneratePlaybooksRequest{
		IntegrationIDs:  integrations,
		Days:            days,
		MinContentItems: minItems,
	}
	if group != "" {
		req.GroupID = &group
	}

	playbooks, err := container.Playbooks.GeneratePlaybooks(cmd.Context(), orgID, req)
	if err != nil {
		return err
	}
	responses := make([]*models.PlaybookResponse, len(playbooks))
	for i := range playbooks {
		responses[i] = playbooks[i].ToResponse()
	}
	return printJSON(responses)
}

func runCheckAlerts(cmd *cobra.Command, args []string) error {
	cfg, db, container, err := bootstrap()
	if err != nil {
		return err
	}
	viral, _ := cmd.Flags().GetBool("viral")

	if orgID == "" {
		scheduler := services.NewAlertScheduler(db, container.Alerts, cfg.Analytics.AlertCheckInterval, cfg.Analytics.AlertCheckWorkers, nil)
		return scheduler.RunOnce(cmd.Context())
	}

	var alerts []models.Alert
	if viral {
		alerts, err = container.Alerts.ProcessViralSpikes(cmd.Context(), orgID)
	} else {
		alerts, err = container.Alerts.ProcessKPIDropAlerts(cmd.Context(), orgID)
	}
	if err != nil {
		return err
	}
	return printJSON(alerts)
}

func runExperimentResults(cmd *cobra.Command, args []string) error {
	if err := requireOrg(); err != nil {
		return err
	}
	cfg, _, container, err := bootstrap()
	if err != nil {
		return err
	}

	results, err := container.Experiments.GetResults(cmd.Context(), orgID, args[0])
	if err != nil {
		return err
	}

	if writeXLSX, _ := cmd.Flags().GetBool("xlsx"); writeXLSX {
		path, err := exportResults(cfg.ExportsDir, results)
		if err != nil {
			return err
		}
		logrus.Infof("Results workbook written to %s", path)
	}
	return printJSON(results)
}

func exportResults(dir string, results *models.ExperimentResults) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create exports dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("experiment_%s.xlsx", results.ExperimentID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := excel.NewExcelService().ExportExperimentResults(f, results); err != nil {
		return "", err
	}
	return path, nil
}

func runToken(cmd *cobra.Command, args []string) error {
	if err := requireOrg(); err != nil {
		return err
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	user, _ := cmd.Flags().GetString("user")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	token, err := auth.NewAuthService(secret).IssueToken(orgID, user, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
