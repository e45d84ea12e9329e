package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const sectionRule = "# -----------------------------------------------------------------------------\n"

type envEntry struct {
	flag    string
	example string // used instead of the flag default when set
	comment string
}

type envSection struct {
	title   string
	note    string
	entries []envEntry
}

var envSections = []envSection{
	{
		title: "HTTP Server Configuration",
		entries: []envEntry{
			{flag: "server-host", comment: "Server bind address"},
			{flag: "server-port", comment: "Server port"},
			{flag: "server-read-timeout", comment: "Read timeout"},
			{flag: "server-write-timeout", comment: "Write timeout"},
		},
	},
	{
		title: "Resolution",
		entries: []envEntry{
			{flag: "provider-timeout", comment: "Deadline for each upstream call"},
			{flag: "match-threshold", comment: "Similarity a search hit must exceed, 0 rejects only candidates with no artist similarity"},
			{flag: "metadata-cache-size", comment: "Cached source lookups, 0 disables the cache"},
			{flag: "metadata-cache-ttl", comment: "Lifetime of a cached source lookup"},
		},
	},
	{
		title: "Spotify (client credentials)",
		note:  "Get these from https://developer.spotify.com/dashboard",
		entries: []envEntry{
			{flag: "spotify-client-id", example: "your_client_id"},
			{flag: "spotify-client-secret", example: "your_client_secret"},
		},
	},
	{
		title: "Apple Music (MusicKit signed token)",
		note:  "Create a MusicKit key at https://developer.apple.com/account/resources/authkeys/list",
		entries: []envEntry{
			{flag: "apple-team-id", example: "ABCDE12345"},
			{flag: "apple-key-id", example: "XYZ9876543"},
			{flag: "apple-private-key-path", example: "./AuthKey_XYZ9876543.p8", comment: "Or set the PEM inline with LINKBRIDGE_APPLE_PRIVATE_KEY"},
			{flag: "apple-storefront", comment: "Storefront searched for target links"},
		},
	},
	{
		title: "YouTube Data API",
		note:  "Without a key youtube-video links are still read from the watch page title",
		entries: []envEntry{
			{flag: "youtube-api-key", example: "your_api_key"},
		},
	},
	{
		title: "Yandex Music",
		entries: []envEntry{
			{flag: "yandex-proxy-url", example: "http://yandex-proxy:3000", comment: "Proxy exposing /get_track_link and /get_track_info"},
		},
	},
	{
		title: "VK Music",
		entries: []envEntry{
			{flag: "vk-access-token", example: "your_access_token"},
			{flag: "vk-api-version"},
		},
	},
	{
		title: "Logging Configuration",
		entries: []envEntry{
			{flag: "log-level", comment: "Log level: debug, info, warn, error"},
		},
	},
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# linkbridge Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("# A provider without credentials is simply not registered.\n")
	content.WriteString("#\n")
	fmt.Fprintf(&content, "# Format: %s_<SETTING>=value\n", envPrefix)
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	for _, section := range envSections {
		generateSection(&content, cmd, section)
	}

	return content.String()
}

func generateSection(content *strings.Builder, cmd *cobra.Command, section envSection) {
	content.WriteString(sectionRule)
	fmt.Fprintf(content, "# %s\n", section.title)
	content.WriteString(sectionRule)
	if section.note != "" {
		fmt.Fprintf(content, "# %s\n", section.note)
	}

	flagNames := make([]string, 0, len(section.entries))
	for _, entry := range section.entries {
		flagNames = append(flagNames, "--"+entry.flag)
	}
	fmt.Fprintf(content, "# CLI: %s\n", strings.Join(flagNames, ", "))

	for _, entry := range section.entries {
		defaultValue := getDefaultValueString(cmd, entry.flag)
		value := entry.example
		if value == "" {
			value = defaultValue
		}

		line := fmt.Sprintf("%s=%s", flagToEnvVar(entry.flag), value)
		switch {
		case entry.comment != "" && defaultValue != "":
			line = fmt.Sprintf("%-48s # %s (default: %s)", line, entry.comment, defaultValue)
		case entry.comment != "":
			line = fmt.Sprintf("%-48s # %s", line, entry.comment)
		}
		content.WriteString(line + "\n")
	}
	content.WriteString("\n")
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}
