package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/auth"
	"github.com/spf13/cobra"
)

var (
	registerEmail string
	registerLogin bool
)

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create an account",
	Long: `Create an account on the analysis service.

The password is asked twice. Use --login to log in right after.

Examples:
  eqviz register alice --email alice@example.com
  eqviz register alice --login`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the password of the logged-in user",
	RunE:  runPasswd,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(passwdCmd)
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Email address")
	registerCmd.Flags().BoolVar(&registerLogin, "login", false, "Log in after registering")
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	in := bufio.NewReader(os.Stdin)
	pw1, err := readPassword(in, "Password: ", false)
	if err != nil {
		return err
	}
	pw2, err := readPassword(in, "Password (again): ", false)
	if err != nil {
		return err
	}

	svc := auth.NewService(a.gateway, a.store)
	ctx := context.Background()
	req := api.RegisterRequest{Username: args[0], Email: registerEmail, Password: pw1, Password2: pw2}
	if err := svc.Register(ctx, req); err != nil {
		return fmt.Errorf("%s", auth.Message(err, auth.RegisterFailedMessage))
	}
	fmt.Println("Account created successfully!")

	if !registerLogin {
		fmt.Println("Run 'eqviz login' to start a session.")
		return nil
	}
	if err := svc.Login(ctx, args[0], pw1); err != nil {
		return fmt.Errorf("%s", auth.Message(err, auth.LoginFailedMessage))
	}
	fmt.Printf("Logged in as %s\n", args[0])
	return nil
}

func runPasswd(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLogin(); err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	var req api.ChangePasswordRequest
	if req.OldPassword, err = readPassword(in, "Current password: ", false); err != nil {
		return err
	}
	if req.NewPassword1, err = readPassword(in, "New password: ", false); err != nil {
		return err
	}
	if req.NewPassword2, err = readPassword(in, "New password (again): ", false); err != nil {
		return err
	}

	svc := auth.NewService(a.gateway, a.store)
	if err := svc.ChangePassword(context.Background(), req); err != nil {
		return fmt.Errorf("%s", auth.Message(err, auth.PasswordFailedMessage))
	}
	fmt.Println("Password updated successfully!")
	return nil
}
