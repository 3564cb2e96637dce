package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// detectSiteDir guesses where the static site lives.
func detectSiteDir() string {
	for _, dir := range []string{"public", "site", "dist", "www"} {
		if _, err := os.Stat(dir + "/index.html"); err == nil {
			return dir
		}
	}
	return "."
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to folio! Let's configure your site.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Source.
	sourcePrompt := promptui.Select{
		Label: "Where are the page and its fragments served from",
		Items: []string{
			"local   — a directory on disk",
			"remote  — an http(s) base URL",
		},
	}
	sourceIdx, _, err := sourcePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("source selection: %w", err)
	}

	if sourceIdx == 0 {
		dirPrompt := promptui.Prompt{
			Label:   "Site directory",
			Default: detectSiteDir(),
		}
		cfg.SiteDir, err = dirPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("site dir: %w", err)
		}
	} else {
		urlPrompt := promptui.Prompt{
			Label: "Base URL",
			Validate: func(s string) error {
				if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
					return fmt.Errorf("must start with http:// or https://")
				}
				return nil
			},
		}
		cfg.BaseURL, err = urlPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("base url: %w", err)
		}
	}

	// 2. Entry page.
	pagePrompt := promptui.Prompt{
		Label:   "Entry page",
		Default: cfg.Page,
	}
	cfg.Page, err = pagePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}

	// 3. Sticky offset of the deck.
	offsetPrompt := promptui.Prompt{
		Label:   "Deck sticky offset (px)",
		Default: strconv.FormatFloat(cfg.Deck.StickyOffset, 'f', -1, 64),
		Validate: func(s string) error {
			_, err := strconv.ParseFloat(s, 64)
			return err
		},
	}
	offsetStr, err := offsetPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("sticky offset: %w", err)
	}
	cfg.Deck.StickyOffset, _ = strconv.ParseFloat(offsetStr, 64)

	// 4. Extra image excludes.
	excludePrompt := promptui.Prompt{
		Label:   "Extra image exclude patterns (comma-separated, leave blank for defaults)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	if excludeStr != "" {
		cfg.Cache.Exclude = append(cfg.Cache.Exclude, splitAndTrim(excludeStr)...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
