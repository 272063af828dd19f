package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joelkehle/macro-onboarding/internal/llm"
	"github.com/joelkehle/macro-onboarding/internal/logger"
	"github.com/joelkehle/macro-onboarding/internal/onboarding"
	"github.com/joelkehle/macro-onboarding/internal/store"
)

var chatSave bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run the onboarding conversation in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log, err := logger.New(cfg.Logging.Mode)
		if err != nil {
			return err
		}
		defer log.Sync()

		completer, err := llm.New(llm.Options{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Timeout:     cfg.LLM.Timeout,
			MaxAttempts: cfg.LLM.MaxAttempts,
		})
		if err != nil {
			return err
		}
		engine := onboarding.NewEngine(completer, onboarding.EngineConfig{
			Logger:                  log,
			ExtractionTemperature:   cfg.LLM.ExtractionTemperature,
			ConversationTemperature: cfg.LLM.ConversationTemperature,
		})

		res, err := converse(ctx, engine, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !chatSave {
			return nil
		}
		backends, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer backends.Close()
		id, err := saveConversation(ctx, backends, uuid.NewString(), res)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nsession saved as %s\n", id)
		return nil
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatSave, "save", true, "store the conversation and completed profile")
	rootCmd.AddCommand(chatCmd)
}

// converse runs turns from in until onboarding completes or in is
// exhausted, and returns the last turn.
func converse(ctx context.Context, engine *onboarding.Engine, in io.Reader, out io.Writer) (onboarding.TurnResult, error) {
	res := engine.Start(ctx)
	fmt.Fprintf(out, "coach> %s\n", res.Message)

	scanner := bufio.NewScanner(in)
	for !res.IsComplete {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		next, err := engine.ProcessTurn(ctx, line, res.Session())
		if err != nil {
			return res, err
		}
		res = next
		fmt.Fprintf(out, "coach> %s\n", res.Message)
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read input: %w", err)
	}
	return res, nil
}

func saveConversation(ctx context.Context, b *store.Backends, id string, res onboarding.TurnResult) (string, error) {
	rec := store.Record{ID: id, Session: res.Session(), Complete: res.IsComplete}
	if err := b.Sessions.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	if res.IsComplete && res.Export != nil {
		if err := b.Profiles.SaveProfile(ctx, id, *res.Export); err != nil {
			return "", fmt.Errorf("save profile: %w", err)
		}
	}
	return id, nil
}
