package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config types

type Config struct {
	APIVersion     string         `yaml:"apiVersion"`
	Kind           string         `yaml:"kind"`
	CurrentContext string         `yaml:"current-context"`
	Contexts       []NamedContext `yaml:"contexts"`
}

type NamedContext struct {
	Name    string        `yaml:"name"`
	Context ContextDetail `yaml:"context"`
}

type ContextDetail struct {
	APIURL    string `yaml:"api-url"`
	Token     string `yaml:"token,omitempty"`
	TokenFile string `yaml:"token-file,omitempty"`
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".platewire")
}

func configPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[2:])
	}
	return p
}

func loadConfig() (*Config, error) {
	data, err := os.ReadFile(configPath())
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func saveConfig(cfg *Config) error {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "admin.platewire.io/v1"
	}
	if cfg.Kind == "" {
		cfg.Kind = "Config"
	}

	if err := os.MkdirAll(configDir(), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0600)
}

func (c *Config) GetContext(name string) *NamedContext {
	for i := range c.Contexts {
		if c.Contexts[i].Name == name {
			return &c.Contexts[i]
		}
	}
	return nil
}

func (c *Config) SetContext(name string, ctx ContextDetail) {
	for i := range c.Contexts {
		if c.Contexts[i].Name == name {
			c.Contexts[i].Context = ctx
			return
		}
	}
	c.Contexts = append(c.Contexts, NamedContext{Name: name, Context: ctx})
}

// Config subcommands

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration contexts",
}

var configSetContextCmd = &cobra.Command{
	Use:   "set-context NAME",
	Short: "Create or update a connection context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiURL, _ := cmd.Flags().GetString("api-url")
		token, _ := cmd.Flags().GetString("token")
		tokenFile, _ := cmd.Flags().GetString("token-file")

		if apiURL == "" {
			return fmt.Errorf("--api-url is required")
		}
		if token == "" && tokenFile == "" {
			return fmt.Errorf("one of --token or --token-file is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			cfg = &Config{}
		}

		cfg.SetContext(args[0], ContextDetail{
			APIURL:    apiURL,
			Token:     token,
			TokenFile: tokenFile,
		})
		if cfg.CurrentContext == "" {
			cfg.CurrentContext = args[0]
		}

		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("Context %q saved.\n", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context NAME",
	Short: "Switch the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("no config file: %w", err)
		}
		if cfg.GetContext(args[0]) == nil {
			return fmt.Errorf("context %q not found", args[0])
		}
		cfg.CurrentContext = args[0]
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("Switched to context %q.\n", args[0])
		return nil
	},
}

var configGetContextsCmd = &cobra.Command{
	Use:   "get-contexts",
	Short: "List configured contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Println("No contexts configured.")
			return nil
		}

		t := newTable("CURRENT", "NAME", "API URL")
		for _, c := range cfg.Contexts {
			current := ""
			if c.Name == cfg.CurrentContext {
				current = "*"
			}
			t.AddRow(current, c.Name, c.Context.APIURL)
		}
		t.Flush()
		return nil
	},
}

func init() {
	configSetContextCmd.Flags().String("api-url", "", "API base URL")
	configSetContextCmd.Flags().String("token", "", "Session token")
	configSetContextCmd.Flags().String("token-file", "", "Path to a file containing the session token")

	configCmd.AddCommand(configSetContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextsCmd)
}
