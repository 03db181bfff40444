package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zxoir/twitter-month-archiver/pkg/auth"
)

var authLabel string

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored bearer tokens",
	Long: `Store, list, and remove X API bearer tokens.

Tokens are kept in the system keychain when one is available, otherwise in
an encrypted file under the config directory. The X_BEARER_TOKEN
environment variable always takes precedence over stored tokens.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a bearer token securely",
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove a stored bearer token",
	RunE:  runAuthLogout,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored bearer tokens",
	RunE:  runAuthList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authListCmd)

	authCmd.PersistentFlags().StringVarP(&authLabel, "label", "l", "default", "token label")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize token storage: %w", err)
	}

	token, err := promptForToken()
	if err != nil {
		return err
	}

	if err := manager.Store(&auth.Token{Label: authLabel, BearerToken: token}); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	fmt.Printf("Token stored under label %q.\n", authLabel)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize token storage: %w", err)
	}

	if err := manager.Delete(authLabel); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}

	fmt.Printf("Token %q removed.\n", authLabel)
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize token storage: %w", err)
	}

	tokens, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list tokens: %w", err)
	}
	if len(tokens) == 0 {
		fmt.Println("No tokens stored. Run 'xmonth auth login' to add one.")
		return nil
	}

	fmt.Println("Stored tokens:")
	for _, token := range tokens {
		fmt.Printf("  %-12s %s  (modified %s)\n",
			token.Label, maskToken(token.BearerToken), token.LastModified.Format("2006-01-02 15:04"))
	}
	return nil
}

// promptForToken reads the bearer token without echoing it when stdin is a
// terminal, and falls back to a plain line read when it is piped in.
func promptForToken() (string, error) {
	fmt.Print("Bearer token: ")

	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		token := strings.TrimSpace(string(raw))
		if token == "" {
			return "", fmt.Errorf("empty token")
		}
		return token, nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", fmt.Errorf("empty token")
	}
	return token, nil
}

// maskToken shows just enough of a token to tell entries apart.
func maskToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
