package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/empathyfine/empathyfine/internal/bias"
	"github.com/empathyfine/empathyfine/internal/config"
	"github.com/empathyfine/empathyfine/internal/project"
	"github.com/empathyfine/empathyfine/internal/simulator"
	"github.com/empathyfine/empathyfine/internal/storage"
	"github.com/empathyfine/empathyfine/internal/trainer"
)

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// --- project ---

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage fine-tuning projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new project and open it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		baseModel, _ := cmd.Flags().GetString("base-model")
		framework, _ := cmd.Flags().GetString("framework")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/projects", map[string]any{
			"name":        args[0],
			"description": description,
			"base_model":  baseModel,
			"framework":   framework,
		})
		if err != nil {
			return err
		}

		var cfg project.Config
		if err := decodeJSON(resp, &cfg); err != nil {
			return err
		}

		printSuccess("Created project %s (%s)", cfg.Name, cfg.BaseModel)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects in the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/projects")
		if err != nil {
			return err
		}

		var result struct {
			Projects []string `json:"projects"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}
		for _, name := range result.Projects {
			fmt.Println(name)
		}
		return nil
	},
}

var projectLoadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Open an existing project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/projects/"+args[0]+"/load", nil)
		if err != nil {
			return err
		}

		var cfg project.Config
		if err := decodeJSON(resp, &cfg); err != nil {
			return err
		}

		printSuccess("Loaded project %s", cfg.Name)
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a project and its data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete project %q and its history. Use --confirm to proceed.", args[0])
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/projects/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted project %s", args[0])
		return nil
	},
}

var projectSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the open project",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/projects/current/save", nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Project saved")
		return nil
	},
}

var projectSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Update a field on the open project",
	Long: `Update a field on the open project and save it.

Settable fields: description, base_model, framework, dataset_path.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, value := args[0], args[1]
		switch field {
		case "description", "base_model", "framework", "dataset_path":
		default:
			return fmt.Errorf("unknown field %q", field)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/projects/current")
		if err != nil {
			return err
		}
		var cfg map[string]any
		if err := decodeJSON(resp, &cfg); err != nil {
			return err
		}
		cfg[field] = value

		resp, err = client.put(cmd.Context(), "/projects/current", cfg)
		if err != nil {
			return err
		}
		var updated map[string]any
		if err := decodeJSON(resp, &updated); err != nil {
			return err
		}

		printSuccess("Set %s = %s", field, value)
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the open project as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/projects/current")
		if err != nil {
			return err
		}

		var cfg any
		if err := decodeJSON(resp, &cfg); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	},
}

func init() {
	projectCreateCmd.Flags().String("description", "", "project description")
	projectCreateCmd.Flags().String("base-model", "", "base model to fine-tune")
	projectCreateCmd.Flags().String("framework", "", "training framework (huggingface, openai)")
	projectDeleteCmd.Flags().Bool("confirm", false, "confirm project deletion")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectLoadCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectSaveCmd)
	projectCmd.AddCommand(projectSetCmd)
	projectCmd.AddCommand(projectShowCmd)
}

// --- dataset ---

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Load, validate, and augment datasets",
}

var datasetLoadCmd = &cobra.Command{
	Use:   "load <path>",
	Short: "Load a dataset (JSON, JSONL, CSV, or PDF)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/dataset/load", map[string]any{"path": args[0]})
		if err != nil {
			return err
		}

		var result struct {
			Count    int    `json:"count"`
			FilePath string `json:"file_path"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Loaded %d examples from %s", result.Count, result.FilePath)
		return nil
	},
}

var datasetValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a dataset and score its empathy indicators",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/dataset/validate", map[string]any{"path": args[0]})
		if err != nil {
			return err
		}

		var result struct {
			Valid           bool     `json:"valid"`
			Issues          []string `json:"issues"`
			AvgEmpathyScore float64  `json:"avg_empathy_score"`
			TotalExamples   int      `json:"total_examples"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Valid {
			printSuccess("Dataset is valid (%d examples)", result.TotalExamples)
		} else {
			printError("Dataset has problems (%d examples)", result.TotalExamples)
		}
		printStatus("Avg empathy score", "%.2f", result.AvgEmpathyScore)
		for _, issue := range result.Issues {
			printWarning("%s", issue)
		}
		return nil
	},
}

var datasetAugmentCmd = &cobra.Command{
	Use:   "augment <path>",
	Short: "Augment a dataset with generated variants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		methodsStr, _ := cmd.Flags().GetString("methods")
		factor, _ := cmd.Flags().GetInt("factor")
		preserve, _ := cmd.Flags().GetBool("preserve-original")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/dataset/augment", map[string]any{
			"path":              args[0],
			"methods":           splitList(methodsStr),
			"factor":            factor,
			"preserve_original": preserve,
		})
		if err != nil {
			return err
		}

		var result struct {
			OriginalCount int `json:"original_count"`
			Count         int `json:"count"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Augmented %d examples to %d", result.OriginalCount, result.Count)
		return nil
	},
}

func init() {
	datasetAugmentCmd.Flags().String("methods", "", "comma-separated augmentation methods")
	datasetAugmentCmd.Flags().Int("factor", 0, "target multiplier for dataset size")
	datasetAugmentCmd.Flags().Bool("preserve-original", true, "keep original examples in the output")

	datasetCmd.AddCommand(datasetLoadCmd)
	datasetCmd.AddCommand(datasetValidateCmd)
	datasetCmd.AddCommand(datasetAugmentCmd)
}

// --- train ---

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run and monitor training",
}

var trainStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a training run on the open project",
	RunE: func(cmd *cobra.Command, args []string) error {
		epochs, _ := cmd.Flags().GetInt("epochs")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{}
		if epochs > 0 {
			body["epochs"] = epochs
		}
		resp, err := client.post(cmd.Context(), "/train/start", body)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Training started (run %s)", result["run_id"])
		printStep("Follow progress with: empathyfine train status")
		return nil
	},
}

var trainStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active training run",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/train/stop", nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Stop requested")
		return nil
	},
}

var trainStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the training run",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/train/status")
		if err != nil {
			return err
		}

		var status trainer.Status
		if err := decodeJSON(resp, &status); err != nil {
			return err
		}

		printStatus("State", "%s", status.State)
		if status.State == trainer.StateRunning || status.State == trainer.StateCompleted {
			printStatus("Progress", "%d%% (epoch %d/%d, step %d)",
				status.Percent, status.Epoch, status.TotalEpochs, status.Step)
			printStatus("Loss", "%.4f", status.Loss)
			printStatus("Accuracy", "%.4f", status.Accuracy)
		}
		if status.Checkpoint != "" {
			printStatus("Checkpoint", "%s", status.Checkpoint)
		}
		if status.Error != "" {
			printError("%s", status.Error)
		}
		return nil
	},
}

var trainHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded training metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/train/history?limit=%d", limit))
		if err != nil {
			return err
		}

		var result struct {
			Metrics []storage.TrainingMetric `json:"metrics"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Metrics) == 0 {
			fmt.Println("No training history recorded.")
			return nil
		}
		for _, m := range result.Metrics {
			line := fmt.Sprintf("epoch %d step %3d  loss %.4f", m.Epoch, m.Step, m.Loss)
			if m.Accuracy != nil {
				line += fmt.Sprintf("  acc %.4f", *m.Accuracy)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	trainStartCmd.Flags().Int("epochs", 0, "override the project's epoch count")
	trainHistoryCmd.Flags().Int("limit", 20, "maximum number of metrics to show")

	trainCmd.AddCommand(trainStartCmd)
	trainCmd.AddCommand(trainStopCmd)
	trainCmd.AddCommand(trainStatusCmd)
	trainCmd.AddCommand(trainHistoryCmd)
}

// --- eval ---

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate fine-tuned checkpoints",
}

var evalRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an evaluation against the open project",
	RunE: func(cmd *cobra.Command, args []string) error {
		checkpoint, _ := cmd.Flags().GetString("checkpoint")
		categoriesStr, _ := cmd.Flags().GetString("categories")
		mode, _ := cmd.Flags().GetString("mode")
		threshold, _ := cmd.Flags().GetFloat64("threshold")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Running evaluation probes...")
		resp, err := client.post(cmd.Context(), "/eval/run", map[string]any{
			"checkpoint": checkpoint,
			"categories": splitList(categoriesStr),
			"mode":       mode,
			"threshold":  threshold,
		})
		if err != nil {
			return err
		}

		var outcome struct {
			Checkpoint     string  `json:"checkpoint"`
			EmpathyScore   float64 `json:"empathy_score"`
			BiasScore      float64 `json:"bias_score"`
			CoherenceScore float64 `json:"coherence_score"`
			FluencyScore   float64 `json:"fluency_score"`
			Passed         bool    `json:"passed"`
		}
		if err := decodeJSON(resp, &outcome); err != nil {
			return err
		}

		printStatus("Checkpoint", "%s", outcome.Checkpoint)
		printStatus("Empathy", "%.2f", outcome.EmpathyScore)
		printStatus("Bias", "%.2f", outcome.BiasScore)
		printStatus("Coherence", "%.2f", outcome.CoherenceScore)
		printStatus("Fluency", "%.2f", outcome.FluencyScore)
		if outcome.Passed {
			printSuccess("Evaluation passed")
		} else {
			printWarning("Evaluation did not pass")
		}
		return nil
	},
}

var evalHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past evaluation results",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/eval/history?limit=%d", limit))
		if err != nil {
			return err
		}

		var result struct {
			Results []storage.EvaluationResult `json:"results"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Results) == 0 {
			fmt.Println("No evaluations recorded.")
			return nil
		}
		for _, r := range result.Results {
			line := fmt.Sprintf("%s  %s  empathy %.2f",
				r.Timestamp.Format("2006-01-02 15:04"), r.Checkpoint, r.EmpathyScore)
			if r.BiasScore != nil {
				line += fmt.Sprintf("  bias %.2f", *r.BiasScore)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	evalRunCmd.Flags().String("checkpoint", "", "checkpoint to evaluate")
	evalRunCmd.Flags().String("categories", "", "comma-separated bias categories")
	evalRunCmd.Flags().String("mode", "", "bias scan mode (quick, thorough, deep)")
	evalRunCmd.Flags().Float64("threshold", 0, "empathy passing threshold")
	evalHistoryCmd.Flags().Int("limit", 10, "maximum number of results to show")

	evalCmd.AddCommand(evalRunCmd)
	evalCmd.AddCommand(evalHistoryCmd)
}

// --- bias ---

var biasCmd = &cobra.Command{
	Use:   "bias",
	Short: "Scan for bias in model behavior",
}

var biasScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a bias scan and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		categoriesStr, _ := cmd.Flags().GetString("categories")
		mode, _ := cmd.Flags().GetString("mode")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/bias/scan", map[string]any{
			"categories": splitList(categoriesStr),
			"mode":       mode,
		})
		if err != nil {
			return err
		}

		var report bias.Report
		if err := decodeJSON(resp, &report); err != nil {
			return err
		}

		fmt.Print(report.Render())
		return nil
	},
}

func init() {
	biasScanCmd.Flags().String("categories", "", "comma-separated categories (default: standard set)")
	biasScanCmd.Flags().String("mode", "quick", "scan mode (quick, thorough, deep)")

	biasCmd.AddCommand(biasScanCmd)
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the model in an interactive session",
	Long: `Talk to the model in an interactive test session. Each assistant
reply is scored for empathy.

In-session commands: /reset clears the conversation, /export prints it
as JSON, /quit exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		persona, _ := cmd.Flags().GetString("persona")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stderr, "Type a message and press enter. /quit to exit.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, colorize(colorBold, "you> "))
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			switch line {
			case "/quit", "/exit":
				return nil
			case "/reset":
				if resp, err := client.post(cmd.Context(), "/chat/reset", nil); err == nil {
					resp.Body.Close()
					printSuccess("Conversation reset")
				} else {
					printError("%v", err)
				}
				continue
			case "/export":
				resp, err := client.get(cmd.Context(), "/chat/export")
				if err != nil {
					printError("%v", err)
					continue
				}
				var exported any
				if err := decodeJSON(resp, &exported); err != nil {
					printError("%v", err)
					continue
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				enc.Encode(exported)
				continue
			}

			resp, err := client.post(cmd.Context(), "/chat", map[string]any{
				"message": line,
				"persona": persona,
			})
			if err != nil {
				printError("%v", err)
				continue
			}

			var turn simulator.Turn
			if err := decodeJSON(resp, &turn); err != nil {
				printError("%v", err)
				continue
			}

			fmt.Printf("%s %s\n", colorize(colorCyan, "model>"), turn.Content)
			if turn.Analysis != nil {
				printStatus("Empathy", "%.2f (emotion: %s)", turn.Analysis.EmpathyScore, turn.Analysis.Emotion)
				for _, s := range turn.Analysis.Suggestions {
					printStep("%s", s)
				}
			}
		}
		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().String("persona", "", "persona for the session (default: empathetic_companion)")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
