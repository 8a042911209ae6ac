package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"ctscan-quiz/internal/app"
	"ctscan-quiz/internal/domain"
	"ctscan-quiz/internal/game"
	"ctscan-quiz/internal/logger"
)

// NewPlayCmd runs one game in the terminal on the system clock.
func NewPlayCmd(configPath *string) *cobra.Command {
	var mode, name string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz game in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath, domain.GameMode(mode), name, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(domain.ModePractice), "practice or exam")
	cmd.Flags().StringVar(&name, "name", "player", "player name used for stats and the leaderboard")
	return cmd
}

func runPlay(ctx context.Context, configPath string, mode domain.GameMode, player string, in io.Reader, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	// keep the terminal for the game itself
	log := logger.New("error", cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	rt, err := buildRuntime(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer rt.Close()

	err = playGame(ctx, rt.service, mode, player, in, out)
	rt.service.Close()
	return err
}

func playGame(ctx context.Context, service *app.GameService, mode domain.GameMode, player string, in io.Reader, out io.Writer) error {
	events := make(chan game.Event, 64)
	listener := func(ev game.Event) {
		select {
		case events <- ev:
		default:
		}
	}

	sessionID := uuid.NewString()
	snap, err := service.StartGame(ctx, sessionID, player, mode, listener)
	if err != nil {
		return err
	}
	defer service.Abandon(context.Background(), sessionID)
	fmt.Fprintf(out, "%s game for %s: %d questions in level 1.\n", mode, player, snap.QuestionCount)
	fmt.Fprintln(out, "Type an option number to select, s to submit, n for the next question, q to quit.")

	done := make(chan struct{})
	defer close(done)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			renderEvent(out, ev)
			if ev.Kind == game.EventEnded {
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				// input closed: the clock keeps running until the game ends
				lines = nil
				continue
			}
			if line == "q" {
				fmt.Fprintln(out, "Quit.")
				return nil
			}
			if err := playCommand(ctx, service, sessionID, line); err != nil {
				fmt.Fprintf(out, "! %v\n", err)
			}
		}
	}
}

func playCommand(ctx context.Context, service *app.GameService, sessionID, line string) error {
	switch line {
	case "":
		return nil
	case "s":
		_, err := service.Submit(ctx, sessionID)
		return err
	case "n":
		_, err := service.Next(ctx, sessionID)
		return err
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		return fmt.Errorf("unknown command %q", line)
	}
	snap, err := service.Snapshot(ctx, sessionID)
	if err != nil {
		return err
	}
	if snap.Question == nil {
		return domain.ErrNotPlaying
	}
	if n < 1 || n > len(snap.Question.Options) {
		return fmt.Errorf("choose an option between 1 and %d", len(snap.Question.Options))
	}
	_, err = service.Select(ctx, sessionID, snap.Question.Options[n-1].ID)
	return err
}

func renderEvent(out io.Writer, ev game.Event) {
	snap := ev.Snapshot
	switch ev.Kind {
	case game.EventQuestion:
		q := snap.Question
		if q == nil {
			return
		}
		fmt.Fprintf(out, "\nLevel %d  Question %d/%d  Lives %d  Score %d  (%ds)\n%s\n",
			snap.Level, snap.QuestionIndex+1, snap.QuestionCount, snap.Lives, snap.Score, snap.Duration, q.Text)
		for i, opt := range q.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, opt.Text)
		}
	case game.EventTick:
		if ev.Remaining > 0 && (ev.Remaining <= 5 || ev.Remaining%10 == 0) && ev.Remaining != snap.Duration {
			fmt.Fprintf(out, "  %ds left\n", ev.Remaining)
		}
	case game.EventResolved:
		o := ev.Outcome
		switch {
		case o.Correct:
			fmt.Fprintf(out, "Correct! +%d\n", o.Points)
		case o.TimedOut:
			fmt.Fprintln(out, "Time's up.")
		default:
			fmt.Fprintln(out, "Wrong.")
		}
		if !o.Correct && o.RevealCorrect {
			fmt.Fprintf(out, "The answer was: %s\n", optionText(snap.LastOutcome, snap.Incorrect))
		}
		if snap.State == game.StateResolved && snap.Mode == domain.ModePractice {
			fmt.Fprintln(out, "Type n for the next question.")
		}
	case game.EventLevelUp:
		fmt.Fprintf(out, "\nLevel up! Welcome to level %d.\n", snap.Level)
	case game.EventEnded:
		pct := domain.Percentage(snap.Correct, snap.Answered)
		fmt.Fprintf(out, "\nGame over (%s). Score %d, %d/%d correct (%d%%, %s).\n",
			snap.EndReason, snap.Score, snap.Correct, snap.Answered, pct, domain.Rating(pct, snap.Answered))
		for _, miss := range snap.Incorrect {
			fmt.Fprintf(out, "  - %s\n", miss.Question.Text)
		}
	}
}

// optionText finds the text of the correct option of the last missed question.
func optionText(o *domain.Outcome, incorrect []domain.IncorrectAnswer) string {
	if o == nil || len(incorrect) == 0 {
		return ""
	}
	q := incorrect[len(incorrect)-1].Question
	for _, opt := range q.Options {
		if opt.ID == o.CorrectOptionID {
			return opt.Text
		}
	}
	return o.CorrectOptionID
}
