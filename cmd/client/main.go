// Command client is a terminal client for the NutriTrack API.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/harrylevesque/nutritrack/internal/client"
)

// app carries the persistent flags shared by every subcommand.
type app struct {
	server    string
	tokenFile string
	asJSON    bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "nutritrack",
		Short:         "Track meals and nutrition from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defServer := os.Getenv("NUTRITRACK_SERVER")
	if defServer == "" {
		defServer = client.DefaultBaseURL
	}
	cmd.PersistentFlags().StringVar(&a.server, "server", defServer, "API base URL (env NUTRITRACK_SERVER)")
	cmd.PersistentFlags().StringVar(&a.tokenFile, "token-file", "", "Token file (default ~/.nutritrack/token)")
	cmd.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Print raw JSON")

	cmd.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.onboardCmd(),
		a.meCmd(),
		a.foodsCmd(),
		a.mealCmd(),
		a.dayCmd(),
	)
	return cmd
}

func (a *app) tokenPath() (string, error) {
	if a.tokenFile != "" {
		return a.tokenFile, nil
	}
	return client.TokenPath()
}

// anonymous returns a client without credentials.
func (a *app) anonymous() *client.Client { return client.New(a.server) }

// authed returns a client carrying the saved token.
func (a *app) authed() (*client.Client, error) {
	path, err := a.tokenPath()
	if err != nil {
		return nil, err
	}
	tok, err := client.LoadToken(path)
	if errors.Is(err, client.ErrNoToken) {
		return nil, fmt.Errorf("%w: run `nutritrack login` first", err)
	}
	if err != nil {
		return nil, err
	}
	return client.New(a.server, client.WithToken(tok)), nil
}

func (a *app) saveToken(tok string) error {
	path, err := a.tokenPath()
	if err != nil {
		return err
	}
	return client.SaveToken(path, tok)
}

// print writes v as indented JSON when --json is set, otherwise calls human.
func (a *app) print(v any, human func()) error {
	if a.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human()
	return nil
}

// credentials fills in a missing password from NUTRITRACK_PASSWORD or an
// interactive prompt.
func credentials(email, password string) (string, string, error) {
	if email == "" {
		return "", "", errors.New("--email is required")
	}
	if password != "" {
		return email, password, nil
	}
	if p := os.Getenv("NUTRITRACK_PASSWORD"); p != "" {
		return email, p, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		return email, strings.TrimSpace(line), nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	return email, string(b), nil
}

func (a *app) registerCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := credentials(email, password)
			if err != nil {
				return err
			}
			tok, err := a.anonymous().Register(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.saveToken(tok.Token); err != nil {
				return err
			}
			fmt.Printf("Registered %s. Next: nutritrack onboard\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := credentials(email, password)
			if err != nil {
				return err
			}
			tok, err := a.anonymous().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.saveToken(tok.Token); err != nil {
				return err
			}
			fmt.Printf("Logged in as %s until %s\n", email, tok.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authed()
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil && !client.IsStatus(err, http.StatusUnauthorized) {
				return err
			}
			path, err := a.tokenPath()
			if err != nil {
				return err
			}
			if err := client.RemoveToken(path); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}
