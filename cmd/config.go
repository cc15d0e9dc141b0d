package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvkha/mailplane/internal/credential"
	"github.com/nvkha/mailplane/internal/model"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file and stored credentials",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigSetSecretCmd())
	cmd.AddCommand(newConfigClearSecretCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the configuration file with current or default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf(
					"%s already exists (use --force to rewrite it)", configPath,
				)
			}

			cfg, err := model.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if err := model.SaveConfig(configPath, cfg); err != nil {
				return err
			}

			fmt.Printf("wrote %s\n", configPath)
			fmt.Println("store secrets with: mailplane config set-secret " +
				credential.KeyIMAPPassword)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "rewrite an existing file")
	return cmd
}

func newConfigSetSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-secret <name>",
		Short: "Store a secret in the system keyring",
		Long: fmt.Sprintf(
			"Store a secret in the system keyring so it can stay out of the\n"+
				"configuration file. Valid names: %s, %s.\n"+
				"The value is read from standard input.",
			credential.KeyIMAPPassword, credential.KeyPlaneAPIKey,
		),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveSecretKey(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "value for %s: ", key)
			value, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && value == "" {
				return fmt.Errorf("reading secret value: %w", err)
			}
			value = strings.TrimRight(value, "\r\n")
			if value == "" {
				return fmt.Errorf("empty secret value")
			}

			if err := credential.Set(key, value); err != nil {
				return err
			}
			fmt.Printf("stored %s\n", key)
			return nil
		},
	}
}

func newConfigClearSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-secret <name>",
		Short: "Remove a secret from the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveSecretKey(args[0])
			if err != nil {
				return err
			}

			if err := credential.Delete(key); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", key)
			return nil
		},
	}
}

// resolveSecretKey validates a user-supplied secret name against the
// well-known credential keys.
func resolveSecretKey(name string) (string, error) {
	switch name {
	case credential.KeyIMAPPassword, credential.KeyPlaneAPIKey:
		return name, nil
	}
	return "", fmt.Errorf(
		"unknown secret %q (valid: %s, %s)",
		name, credential.KeyIMAPPassword, credential.KeyPlaneAPIKey,
	)
}
