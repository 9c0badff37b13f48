package main

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	authgh "thumbcode/internal/auth/github"
	"thumbcode/internal/credentials"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage GitHub sign-in and provider API keys",
	}
	cmd.AddCommand(newAuthLoginCmd(), newAuthLogoutCmd(), newAuthStatusCmd(), newAuthKeyCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to GitHub with the device flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			client, err := a.deviceClient()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			code, err := client.RequestDeviceCode(ctx)
			if err != nil {
				return fmt.Errorf("request device code: %w", err)
			}

			fmt.Println()
			fmt.Println(renderUserCode(code.UserCode, code.VerificationURI))
			fmt.Println()
			fmt.Printf("Enter the code at %s\n", bold(code.VerificationURI))
			fmt.Println(gray("Waiting for authorization (Ctrl+C to cancel)..."))

			poller := authgh.NewPoller(client, a.store, a.pollerConfig(), a.logger,
				authgh.WithOnState(func(state authgh.PollerState) {
					a.logger.Debug("device flow state: %s", state)
				}),
			)

			result := poller.Poll(ctx, code)
			switch {
			case result.Authorized:
				fmt.Println(green("Signed in to GitHub."))
				if len(result.Scopes) > 0 {
					fmt.Printf("Granted scopes: %s\n", strings.Join(result.Scopes, ", "))
				}
				return nil
			case result.Cancelled:
				fmt.Println(yellow("Sign-in cancelled."))
				return nil
			case result.ShouldContinue:
				return fmt.Errorf("%s (try again once you are back online)", result.Error)
			default:
				return fmt.Errorf("%s", result.Error)
			}
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored GitHub token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			confirm := promptui.Prompt{
				Label:     "Remove the stored GitHub token",
				IsConfirm: true,
			}
			if _, err := confirm.Run(); err != nil {
				fmt.Println(gray("Aborted."))
				return nil
			}

			if err := a.store.Delete(cmd.Context(), credentials.TypeGitHub); err != nil {
				return err
			}
			fmt.Println(green("Signed out."))
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			creds, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(creds) == 0 {
				fmt.Println(gray("No credentials stored. Run 'thumbcode auth login' to sign in."))
				return nil
			}

			for _, cred := range creds {
				fmt.Printf("%-10s %s %s\n", cred.Type, cred.MaskedValue, gray("updated "+cred.UpdatedAt.Format("2006-01-02 15:04")))
			}
			return nil
		},
	}
}

var credTypesByName = map[string]credentials.CredentialType{
	"anthropic": credentials.TypeAnthropic,
	"openai":    credentials.TypeOpenAI,
}

func newAuthKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key <anthropic|openai>",
		Short: "Store an LLM provider API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			credType, ok := credTypesByName[strings.ToLower(args[0])]
			if !ok {
				return fmt.Errorf("unknown provider %q, expected anthropic or openai", args[0])
			}

			a, err := newApp()
			if err != nil {
				return err
			}

			fmt.Printf("Paste the %s API key (input hidden): ", args[0])
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("read key: %w", err)
			}

			if err := a.store.Store(cmd.Context(), credType, strings.TrimSpace(string(raw))); err != nil {
				return err
			}
			fmt.Println(green("Key stored."))
			return nil
		},
	}
}
