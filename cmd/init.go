package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/torq-ai/torq/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive configuration wizard",
		Long:  "Guides you through setting up torq: choose a provider, enter your API key, and save the config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Welcome to the torq configuration wizard!")
	fmt.Println()

	// Provider selection
	providers := []string{
		"openai", "anthropic", "deepseek", "minimax",
		"kimi", "qwen", "glm", "doubao", "groq",
	}
	fmt.Println("Available providers:")
	for i, p := range providers {
		fmt.Printf("  %d. %s\n", i+1, p)
	}
	fmt.Printf("\nSelect provider (1-%d) [1]: ", len(providers))
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	selectedIdx := 0
	if input != "" {
		n := 0
		for _, c := range input {
			if c >= '0' && c <= '9' {
				n = n*10 + int(c-'0')
			}
		}
		if n >= 1 && n <= len(providers) {
			selectedIdx = n - 1
		}
	}
	providerName := providers[selectedIdx]
	fmt.Printf("Selected: %s\n\n", providerName)

	// API key
	fmt.Printf("Enter API key for %s: ", providerName)
	apiKey, _ := reader.ReadString('\n')
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	// Optional model override
	defaultModel := config.KnownProviderModels[providerName]
	if defaultModel != "" {
		fmt.Printf("Model [%s]: ", defaultModel)
	} else {
		fmt.Print("Model: ")
	}
	model, _ := reader.ReadString('\n')
	model = strings.TrimSpace(model)

	// SaveProviderToFile merges into the existing config, so other settings
	// (permissions, web search, routing) survive re-running the wizard.
	if err := config.SaveProviderToFile(providerName, config.ProviderConfig{
		APIKey: apiKey,
		Model:  model,
	}); err != nil {
		return err
	}

	fmt.Println("\nConfig saved to ~/.config/torq/config.yaml")
	fmt.Println("You can now run: torq")
	return nil
}
