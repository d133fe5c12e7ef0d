package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ourhouse/backend/internal/config"
	"github.com/ourhouse/backend/internal/conversation"
	"github.com/ourhouse/backend/internal/conversation/remote"
	"github.com/ourhouse/backend/internal/model/persona"
	"github.com/ourhouse/backend/internal/service/ai"
	"github.com/ourhouse/backend/internal/service/chat"
	"github.com/ourhouse/backend/internal/service/dialogue"
	"github.com/ourhouse/backend/internal/tui"
	"github.com/ourhouse/backend/pkg/logging"
)

var (
	baseURL string
	offline bool
)

var rootCmd = &cobra.Command{
	Use:   "talk <first> <second>",
	Short: "Open the conversation scene in the terminal",
	Long: `Open the conversation scene between two participants.
Participants are roster indices (1=me, 2=aunt, 3=grandma, 4=grandfa) or persona ids.`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTalk,
}

func init() {
	rootCmd.Flags().StringVar(&baseURL, "base-url", "", "dialogue API base URL (default $DIALOGUE_BASE_URL)")
	rootCmd.Flags().BoolVar(&offline, "offline", false, "run an in-process dialogue service with scripted lines")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runTalk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if baseURL == "" {
		baseURL = cfg.Client.BaseURL
	}

	var (
		client   conversation.DialogueService
		personas persona.Store
	)
	if offline {
		personas = persona.NewMemoryStore(persona.Seed())
		svc := dialogue.New(chat.NewMemoryStore(), personas, ai.NewScripted())
		client = dialogue.NewLocal(svc)
	} else {
		rc := remote.New(baseURL)
		items, err := rc.Personas(ctx)
		if err != nil {
			return fmt.Errorf("load personas from %s: %w", baseURL, err)
		}
		personas = persona.NewMemoryStore(items)
		client = rc
	}

	first, err := resolveParticipant(personas, args[0])
	if err != nil {
		return err
	}
	second, err := resolveParticipant(personas, args[1])
	if err != nil {
		return err
	}

	return tui.Run(ctx, client, personas, tui.Config{
		First:  first,
		Second: second,
		Options: []conversation.Option{
			conversation.WithSeedGreeting(cfg.Dialogue.SeedGreeting),
			conversation.WithTypingInterval(cfg.Dialogue.TypingInterval),
			conversation.WithLogger(logging.Discard()),
		},
	})
}

// resolveParticipant accepts a roster index or a persona id.
func resolveParticipant(personas persona.Store, raw string) (string, error) {
	p, err := persona.ResolveIndex(personas, raw)
	if err == nil {
		return p.ID, nil
	}
	if !errors.Is(err, persona.ErrInvalidIndex) {
		return "", err
	}
	if _, ok := personas.FindByID(raw); ok {
		return raw, nil
	}
	return "", fmt.Errorf("%w: %s", persona.ErrUnknownPersona, raw)
}
