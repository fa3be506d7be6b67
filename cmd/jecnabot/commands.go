package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/jecnabot/internal/chat"
	"github.com/ashureev/jecnabot/internal/transport"
	"github.com/ashureev/jecnabot/internal/tui"
)

// errNotLoggedIn makes the process exit non-zero after the login directive.
var errNotLoggedIn = errors.New("not logged in")

const authTimeout = 30 * time.Second

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "jecnabot",
		Short:         "Chat with JečnáBot from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)

	root.AddCommand(
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newChatCmd(a),
	)
	return root
}

func newRegisterCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the peer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, err := a.prompt(email, "Email", false)
			if err != nil {
				return err
			}
			password, err := a.prompt(password, "Password", true)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
			defer cancel()
			if err := a.authClient().Register(ctx, email, password); err != nil {
				return fmt.Errorf("register: %w", err)
			}
			fmt.Fprintf(a.out, "Registered %s. Run `jecnabot login` to sign in.\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when empty)")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, err := a.prompt(email, "Email", false)
			if err != nil {
				return err
			}
			password, err := a.prompt(password, "Password", true)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
			defer cancel()
			session, err := a.authClient().Login(ctx, email, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := a.creds.Save(ctx, session); err != nil {
				return err
			}
			a.logger.Info("Credential stored", "email", session.Email)
			fmt.Fprintf(a.out, "Logged in as %s.\n", session.Email)
			navigator{out: a.out}.ToChat()
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when empty)")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.creds.Current(cmd.Context())
			if err != nil {
				return err
			}
			if s.Valid() {
				ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
				err := a.authClient().Logout(ctx, s.Token)
				cancel()
				if err != nil {
					// The local credential is dropped regardless.
					a.logger.Warn("Peer logout failed", "error", err)
				}
			}
			if err := a.creds.Clear(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("Credential cleared")
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.creds.Current(cmd.Context())
			if err != nil {
				return err
			}
			if !s.Valid() {
				navigator{out: a.out}.ToLogin()
				return errNotLoggedIn
			}
			fmt.Fprintln(a.out, s.Email)
			return nil
		},
	}
}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the chat screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bridge := tui.NewBridge()
			ctrl := chat.New(chat.OptionsFromConfig(a.cfg), chat.Deps{
				Credentials: a.creds,
				Dialer:      transport.NewWebSocketDialer(a.logger),
				Navigator:   bridge,
				Renderer:    bridge,
				Logger:      a.logger,
			})
			defer ctrl.Teardown()

			if err := ctrl.Activate(cmd.Context()); err != nil {
				if errors.Is(err, chat.ErrUnauthenticated) {
					navigator{out: a.out}.ToLogin()
					return errNotLoggedIn
				}
				return err
			}

			m, err := tui.Run(ctrl, bridge, a.in, a.out)
			if err != nil {
				return err
			}
			if m.NavigatedToLogin() {
				navigator{out: a.out}.ToLogin()
			}
			return m.Err()
		},
	}
}
