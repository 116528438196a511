package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Chauhan0050r/GPT-clone/internal/model/chat"
	"github.com/Chauhan0050r/GPT-clone/pkg/client"
)

var (
	serverURL string
	statePath string

	nicknameStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	assistantTag  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	userTag       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	idStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

var rootCmd = &cobra.Command{
	Use:   "chatcli",
	Short: "Terminal client for the GPT-clone chat service",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:5000", "API base URL")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "Path to the local state file")

	rootCmd.AddCommand(registerCmd, loginCmd, chatCmd, sessionsCmd, logoutCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func newReconciler() (*client.Reconciler, error) {
	path := statePath
	if path == "" {
		var err error
		path, err = client.DefaultStatePath()
		if err != nil {
			return nil, err
		}
	}

	api := client.New(serverURL, zap.NewNop())
	return client.NewReconciler(api, client.NewStateFile(path)), nil
}

var registerCmd = &cobra.Command{
	Use:   "register <email> <password> <nickname>",
	Short: "Create an account and log in",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReconciler()
		if err != nil {
			return err
		}
		if err := r.Register(cmd.Context(), args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Println("Welcome, " + nicknameStyle.Render(r.Nickname()) + "!")
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <email> <password>",
	Short: "Log in and resume the last session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReconciler()
		if err != nil {
			return err
		}
		if err := r.Login(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("Hello, " + nicknameStyle.Render(r.Nickname()) + "!")
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List your chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReconciler()
		if err != nil {
			return err
		}
		if err := r.Start(cmd.Context()); err != nil {
			return err
		}
		if err := r.RefreshSessions(cmd.Context()); err != nil {
			return err
		}
		for _, s := range r.Sessions() {
			fmt.Printf("%s  %s  %s\n",
				idStyle.Render(s.ID),
				s.Name,
				dimStyle.Render(s.CreatedAt.Local().Format("2006-01-02 15:04")))
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credential and session",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReconciler()
		if err != nil {
			return err
		}
		return r.Logout()
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newReconciler()
		if err != nil {
			return err
		}
		if err := r.Start(cmd.Context()); err != nil {
			return err
		}
		if r.Phase() == client.PhaseUnauthenticated {
			return errors.New("not logged in; run `chatcli login` first")
		}
		return runChatLoop(cmd.Context(), r)
	},
}

func runChatLoop(ctx context.Context, r *client.Reconciler) error {
	fmt.Printf("%s %s\n", dimStyle.Render("Session:"), r.SessionName())
	for _, msg := range r.Messages() {
		printMessage(msg)
	}
	fmt.Println(dimStyle.Render("Type a message, or /new, /sessions, /switch <id>, /delete <id>, /quit"))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := handleCommand(ctx, r, line)
			if err != nil {
				fmt.Println(errorStyle.Render(err.Error()))
			}
			if done {
				return nil
			}
			continue
		}

		if err := r.Send(ctx, line); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
		}
		messages := r.Messages()
		if len(messages) > 0 {
			printMessage(messages[len(messages)-1])
		}
	}
}

func handleCommand(ctx context.Context, r *client.Reconciler, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit":
		return true, nil
	case "/new":
		if err := r.NewSession(ctx); err != nil {
			return false, err
		}
		fmt.Printf("%s %s\n", dimStyle.Render("Session:"), r.SessionName())
		for _, msg := range r.Messages() {
			printMessage(msg)
		}
		return false, nil
	case "/sessions":
		if err := r.RefreshSessions(ctx); err != nil {
			return false, err
		}
		for _, s := range r.Sessions() {
			fmt.Printf("%s  %s\n", idStyle.Render(s.ID), s.Name)
		}
		return false, nil
	case "/switch":
		if len(fields) != 2 {
			return false, errors.New("usage: /switch <session-id>")
		}
		if err := r.SelectSession(ctx, fields[1]); err != nil {
			return false, err
		}
		fmt.Printf("%s %s\n", dimStyle.Render("Session:"), r.SessionName())
		for _, msg := range r.Messages() {
			printMessage(msg)
		}
		return false, nil
	case "/delete":
		if len(fields) != 2 {
			return false, errors.New("usage: /delete <session-id>")
		}
		if err := r.DeleteSession(ctx, fields[1]); err != nil {
			return false, err
		}
		if r.Phase() == client.PhaseResolving {
			if err := r.Resolve(ctx); err != nil {
				return false, err
			}
			fmt.Printf("%s %s\n", dimStyle.Render("Session:"), r.SessionName())
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
}

func printMessage(msg chat.Message) {
	tag := assistantTag.Render("assistant")
	if msg.Role == chat.RoleUser {
		tag = userTag.Render("you")
	}
	fmt.Printf("%s  %s\n", tag, msg.Content)
}
