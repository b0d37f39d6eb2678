package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Fire a test against a resource",
}

var testWebhookCmd = &cobra.Command{
	Use:     "webhook ID",
	Aliases: []string{"wh"},
	Short:   "Dispatch a sample event through a webhook",
	Args:    cobra.ExactArgs(1),
	RunE:    runTestWebhook,
}

var testIntegrationCmd = &cobra.Command{
	Use:     "integration ID",
	Aliases: []string{"intg"},
	Short:   "Verify integration credentials against the provider",
	Args:    cobra.ExactArgs(1),
	RunE:    runTestIntegration,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Flip a resource's active flag",
}

var toggleWebhookCmd = &cobra.Command{
	Use:     "webhook ID",
	Aliases: []string{"wh"},
	Short:   "Toggle a webhook active/inactive",
	Args:    cobra.ExactArgs(1),
	RunE:    runToggleWebhook,
}

var toggleIntegrationCmd = &cobra.Command{
	Use:     "integration ID",
	Aliases: []string{"intg"},
	Short:   "Toggle an integration active/inactive",
	Args:    cobra.ExactArgs(1),
	RunE:    runToggleIntegration,
}

var rotateSecretCmd = &cobra.Command{
	Use:   "rotate-secret ID",
	Short: "Rotate a webhook's secret key",
	Args:  cobra.ExactArgs(1),
	RunE:  runRotateSecret,
}

func init() {
	testCmd.AddCommand(testWebhookCmd)
	testCmd.AddCommand(testIntegrationCmd)
	toggleCmd.AddCommand(toggleWebhookCmd)
	toggleCmd.AddCommand(toggleIntegrationCmd)
}

func runTestWebhook(cmd *cobra.Command, args []string) error {
	client := mustClient()
	data, err := client.Post("/api/v1/webhooks/"+args[0]+"/test", nil)
	if err != nil {
		return err
	}

	var resp TestWebhookResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	default:
		fmt.Printf("Test dispatch: %s\n", successStr(resp.Success))
		if resp.Message != "" {
			fmt.Printf("  %s\n", resp.Message)
		}
		if len(resp.Outcomes) > 0 {
			t := newTable("WEBHOOK", "OK", "STATUS", "MS", "MESSAGE")
			for _, o := range resp.Outcomes {
				t.AddRow(o.Name, successStr(o.Success), strconv.Itoa(o.StatusCode), strconv.FormatInt(o.DurationMs, 10), truncate(o.Message, 60))
			}
			t.Flush()
		}
	}
	return nil
}

func runTestIntegration(cmd *cobra.Command, args []string) error {
	client := mustClient()
	data, err := client.Post("/api/v1/integrations/"+args[0]+"/test", nil)
	if err != nil {
		return err
	}

	var resp TestIntegrationResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	default:
		fmt.Printf("Provider check: %s\n", successStr(resp.Success))
		if resp.Message != "" {
			fmt.Printf("  %s\n", resp.Message)
		}
	}
	return nil
}

func runToggleWebhook(cmd *cobra.Command, args []string) error {
	client := mustClient()
	data, err := client.Post("/api/v1/webhooks/"+args[0]+"/toggle", nil)
	if err != nil {
		return err
	}

	var resp WebhookResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}
	fmt.Printf("Webhook %s is now %s.\n", resp.ID, activeStr(resp.IsActive))
	return nil
}

func runToggleIntegration(cmd *cobra.Command, args []string) error {
	client := mustClient()
	data, err := client.Post("/api/v1/integrations/"+args[0]+"/toggle", nil)
	if err != nil {
		return err
	}

	var resp IntegrationResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}
	fmt.Printf("Integration %s is now %s.\n", resp.ID, activeStr(resp.IsActive))
	return nil
}

func runRotateSecret(cmd *cobra.Command, args []string) error {
	client := mustClient()
	data, err := client.Post("/api/v1/webhooks/"+args[0]+"/rotate-secret", nil)
	if err != nil {
		return err
	}

	var resp WebhookResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	default:
		fmt.Printf("Secret rotated for webhook %s.\n\n", resp.ID)
		fmt.Printf("New callback URL (update your source platform):\n")
		fmt.Printf("  %s\n", resp.CallbackURL)
	}
	return nil
}

func activeStr(b bool) string {
	if b {
		return "active"
	}
	return "inactive"
}
