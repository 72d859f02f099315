package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/neilberkman/eqviz/internal/core/auth"
	"github.com/spf13/cobra"
)

var loginPasswordStdin bool

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in to the analysis service",
	Long: `Exchange username and password for a token and store it locally.

The password is read from the terminal without echo, or from stdin with
--password-stdin.

Examples:
  eqviz login alice
  echo "$PW" | eqviz login alice --password-stdin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin")
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	in := bufio.NewReader(os.Stdin)
	var username string
	if len(args) > 0 {
		username = args[0]
	} else if username, err = prompt(in, "Username: "); err != nil {
		return err
	}

	password, err := readPassword(in, "Password: ", loginPasswordStdin)
	if err != nil {
		return err
	}

	svc := auth.NewService(a.gateway, a.store)
	if err := svc.Login(context.Background(), username, password); err != nil {
		return fmt.Errorf("%s", auth.Message(err, auth.LoginFailedMessage))
	}
	fmt.Printf("Logged in as %s\n", strings.TrimSpace(username))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := auth.NewService(a.gateway, a.store).Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo from a terminal, or a line from stdin
func readPassword(in *bufio.Reader, label string, fromStdin bool) (string, error) {
	if fromStdin || !term.IsTerminal(os.Stdin.Fd()) {
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Print(label)
	pw, err := term.ReadPassword(os.Stdin.Fd())
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}
