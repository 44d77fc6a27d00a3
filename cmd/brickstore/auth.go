package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"brickstore/internal/api"
	"brickstore/internal/session"
)

// apiAuthenticator adapts the backend login endpoint to the session store.
type apiAuthenticator struct {
	client *api.Client
}

func (a *apiAuthenticator) Authenticate(ctx context.Context, email, password string) (*session.Credential, error) {
	resp, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &session.Credential{
		FirstName:      resp.FirstName,
		LastName:       resp.LastName,
		Email:          resp.Email,
		Company:        resp.Company,
		AssistantToken: resp.AssistantToken,
		AccessToken:    resp.AccessToken,
	}, nil
}

var (
	loginEmail    string
	loginPassword string
)

// loginCmd signs in and persists the credential
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Brickstore",
	Long: `Sign in with your Brickstore account. The credential is stored in
~/.brickstore so later runs start signed in.

Email and password are prompted for when not given as flags.`,
	RunE: runLogin,
}

// logoutCmd clears the stored credential
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored credential",
	RunE:  runLogout,
}

// whoamiCmd shows the current session
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when omitted)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	store.Initialize()

	email := loginEmail
	if email == "" {
		fmt.Print("Email: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	password := loginPassword
	if password == "" {
		fmt.Print("Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = string(raw)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	cred, err := store.Login(ctx, email, password)
	if err != nil {
		var authErr *api.AuthError
		if errors.As(err, &authErr) {
			// Surface the backend's message as-is
			fmt.Println(authErr.Message)
			return nil
		}
		var storageErr *session.StorageError
		if errors.As(err, &storageErr) {
			return fmt.Errorf("could not save the session: %w", storageErr)
		}
		return fmt.Errorf("login failed: %w", err)
	}

	logger.Info("signed in", zap.String("email", cred.Email), zap.String("company", cred.Company))
	fmt.Printf("Signed in as %s %s (%s).\n", cred.FirstName, cred.LastName, cred.Company)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	store.Initialize()
	store.Logout()
	fmt.Println("Signed out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	store.Initialize()

	cred := store.Credential()
	if cred == nil {
		fmt.Println("Not signed in. Run 'brickstore login' first.")
		return nil
	}

	fmt.Printf("Name:    %s %s\n", cred.FirstName, cred.LastName)
	fmt.Printf("Email:   %s\n", cred.Email)
	fmt.Printf("Company: %s\n", cred.Company)
	return nil
}
