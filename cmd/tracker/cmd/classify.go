package cmd

import (
	"strings"
	"time"

	"sms-expense-tracker/cmd/tracker/config"
	"sms-expense-tracker/internal/classify"
	"sms-expense-tracker/internal/models"
	"sms-expense-tracker/internal/pipeline"
	"sms-expense-tracker/internal/reporter"
	"sms-expense-tracker/pkg/errors"
	"sms-expense-tracker/pkg/logger"

	"github.com/spf13/cobra"
)

// Flags for the classify command
var (
	classifySender       string
	classifyReceived     string
	classifyPolicy       string
	classifyOutputFormat string
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify TEXT",
	Short: "Explain how a single message is classified",
	Long: `Classify runs one message through both classification policies and
shows each decision, the signals behind it and the extracted transaction.
Nothing is stored.

Examples:
  tracker classify "HDFC Bank: Rs.500 debited from A/c XX1234 on 12/05/24 to Amazon Ref No IMPS123"
  tracker classify --policy weighted --sender VM-HDFCBK "Rs.250 paid to Swiggy via UPI"
  tracker classify -f json "Your OTP for login is 482913"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	flags := classifyCmd.Flags()
	flags.StringVar(&classifySender, "sender", "", "sender address of the message")
	flags.StringVar(&classifyReceived, "received", "", "receipt time, RFC 3339 (default: now)")
	flags.StringVar(&classifyPolicy, "policy", "", "only run this policy: cascade, weighted (default: both)")
	flags.StringVarP(&classifyOutputFormat, "output-format", "f", "console", "output format: console, json, csv")
}

func runClassify(cmd *cobra.Command, args []string) error {
	reportConfig, err := config.ReportConfig(classifyOutputFormat, false)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	msg := models.RawMessage{
		Text:       strings.Join(args, " "),
		Sender:     classifySender,
		ReceivedAt: time.Now(),
	}
	if classifyReceived != "" {
		if msg.ReceivedAt, err = time.Parse(time.RFC3339, classifyReceived); err != nil {
			return errors.ValidationError(errors.CodeInvalidDate, "received", classifyReceived, err).
				WithSuggestion("use RFC 3339, for example 2024-05-12T10:30:00+05:30")
		}
	}

	policies, err := explainPolicies(classifyPolicy, cfg.Classifier.Threshold)
	if err != nil {
		return err
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}

	explanations := make([]reporter.Explanation, 0, len(policies))
	for _, policy := range policies {
		explanations = append(explanations, explain(opts, policy, msg))
	}

	log := logger.GetGlobalLogger().WithComponent("cli")
	gen, err := reporter.NewSafeReportGenerator(reportConfig, log)
	if err != nil {
		return err
	}
	return gen.WriteExplanation(msg.Text, explanations, cmd.OutOrStdout())
}

// explainPolicies lists the policies to run: the named one, or both
func explainPolicies(name string, threshold float64) ([]classify.Policy, error) {
	if strings.TrimSpace(name) == "" {
		return []classify.Policy{classify.Cascade(), classify.Weighted(threshold)}, nil
	}
	policy, err := classify.ParsePolicy(name, threshold)
	if err != nil {
		return nil, errors.ValidationError(errors.CodeOutOfRange, "policy", name, err).
			WithSuggestion("use cascade or weighted")
	}
	return []classify.Policy{policy}, nil
}

// explain classifies msg with opts switched to policy
func explain(opts pipeline.Options, policy classify.Policy, msg models.RawMessage) reporter.Explanation {
	cls := *opts.Classifier
	cls.Policy = policy
	opts.Classifier = &cls

	tx, decision := pipeline.New(opts).ClassifyAndExtract(msg)
	return reporter.Explanation{Decision: decision, Transaction: tx}
}
