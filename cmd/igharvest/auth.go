package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igharvest/pkg/auth"
	"igharvest/pkg/ui"
)

// authCmd groups credential store management
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored harvest accounts",
	Long: `Manage the accounts used to log in to Instagram.

Accounts are stored in the system keychain when one is available, and
otherwise in an encrypted file under the config directory. Stored
accounts are used automatically when INSTAGRAM_ACCOUNTS is not set.`,
}

var authAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Store an account securely",
	Args:  cobra.ExactArgs(1),
	Run:   runAuthAdd,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Run:   runAuthList,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove a stored account",
	Args:  cobra.ExactArgs(1),
	Run:   runAuthRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authAddCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authRemoveCmd)
}

func runAuthAdd(cmd *cobra.Command, args []string) {
	username := strings.TrimSpace(args[0])

	fmt.Print("Password: ")
	password, err := readPassword()
	if err != nil {
		ui.PrintError("Failed to read password", err.Error())
		os.Exit(1)
	}
	if password == "" {
		ui.PrintError("Password must not be empty")
		os.Exit(1)
	}

	fmt.Print("TOTP secret (optional, press enter to skip): ")
	reader := bufio.NewReader(os.Stdin)
	totpSecret, _ := reader.ReadString('\n')
	totpSecret = strings.TrimSpace(totpSecret)

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Credential store unavailable", err.Error())
		os.Exit(1)
	}

	err = manager.Store(&auth.Credential{
		Username:     username,
		Password:     password,
		TOTPSecret:   totpSecret,
		LastModified: time.Now(),
	})
	if err != nil {
		ui.PrintError("Failed to store account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Stored account %s", username))
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Credential store unavailable", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}
	if len(accounts) == 0 {
		ui.PrintWarning("No stored accounts")
		return
	}

	for _, a := range accounts {
		label := a.Username
		if a.TOTPSecret != "" {
			label += " (totp)"
		}
		ui.PrintInfo("Account", label)
	}
}

func runAuthRemove(cmd *cobra.Command, args []string) {
	username := strings.TrimSpace(args[0])

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Credential store unavailable", err.Error())
		os.Exit(1)
	}
	if err := manager.Delete(username); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Removed account %s", username))
}

// readPassword reads a password without echoing it
func readPassword() (string, error) {
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(bytePassword)), nil
}
