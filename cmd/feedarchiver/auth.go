package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"feedarchiver/pkg/auth"
	"feedarchiver/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage saved login sessions",
	Long: `Manage the cookie sessions the archiver authenticates with.

Sessions are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only, FEEDARCHIVER_COOKIES)

Never share your cookies or config files.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [label]",
	Short: "Save a browser session",
	Long: `Save a login session from cookies copied out of the browser.

To get the cookie string:
1. Log into the site in your browser
2. Open Developer Tools (F12), Network tab
3. Reload, click any request to the site
4. Copy the full value of the Cookie request header`,
	Example: `  # Interactive login under the default label
  feedarchiver auth login

  # Keep several accounts apart
  feedarchiver auth login work-account`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout [label]",
	Short: "Remove a saved session",
	Args:  cobra.MaximumNArgs(1),
	Run:   runAuthLogout,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions with masked cookie values",
	Run:   runAuthList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authListCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fatal("Failed to initialize session manager", err)
	}

	label := "default"
	if len(args) > 0 {
		label = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	if existing, _ := manager.Retrieve(label); existing != nil {
		fmt.Printf("Session '%s' already exists. Replace it? (y/N): ", label)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("Cookie header value (input hidden): ")
	raw, err := readSecret()
	if err != nil {
		fatal("Failed to read cookies", err)
	}

	cookies := auth.ParseCookieHeader(raw)
	if len(cookies) == 0 {
		fatal("No cookies recognized; paste the full Cookie header value", nil)
	}
	if _, ok := cookies["XSRF-TOKEN"]; !ok {
		ui.PrintWarning("No XSRF-TOKEN cookie found; API requests may be rejected")
	}

	fmt.Print("\nTarget profile UID (press Enter to set later in config): ")
	uid, _ := reader.ReadString('\n')

	fmt.Print("User Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')

	session := &auth.Session{
		Label:     label,
		TargetUID: strings.TrimSpace(uid),
		Cookies:   cookies,
		UserAgent: strings.TrimSpace(userAgent),
	}

	if err := manager.Store(session); err != nil {
		fatal("Failed to store session", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Session '%s' saved (%d cookies)", label, len(cookies)))
}

func runAuthLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fatal("Failed to initialize session manager", err)
	}

	label := "default"
	if len(args) > 0 {
		label = args[0]
	}

	if err := manager.Delete(label); err != nil {
		fatal("Failed to remove session", err)
	}
	ui.PrintSuccess(fmt.Sprintf("Session '%s' removed", label))
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fatal("Failed to initialize session manager", err)
	}

	sessions, err := manager.List()
	if err != nil {
		fatal("Failed to list sessions", err)
	}
	if len(sessions) == 0 {
		ui.PrintWarning("No saved sessions")
		return
	}

	for _, session := range sessions {
		masked := auth.MaskCookies(session)
		ui.PrintInfo("Session", masked.Label)
		if masked.TargetUID != "" {
			fmt.Printf("  target uid: %s\n", masked.TargetUID)
		}
		for name, value := range masked.Cookies {
			fmt.Printf("  %s = %s\n", name, value)
		}
		if !masked.LastModified.IsZero() {
			fmt.Printf("  saved: %s\n", masked.LastModified.Format("2006-01-02 15:04"))
		}
	}
}

// readSecret reads a line without echoing it to the terminal.
func readSecret() (string, error) {
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
