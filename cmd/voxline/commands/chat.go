package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxline/voxline/pkg/audio/device"
	"github.com/voxline/voxline/pkg/audio/portaudio"
	"github.com/voxline/voxline/pkg/cli"
	"github.com/voxline/voxline/pkg/geminilive"
	"github.com/voxline/voxline/pkg/livechat"
)

const captureBufferDuration = 20 * time.Millisecond

var (
	chatModel  string
	chatVoice  string
	chatPrompt string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a live voice conversation",
	Long: `Start a live voice conversation using the default microphone and
speaker. The transcript is printed as turns complete; typed lines are
sent to the model as text alongside the voice stream.

Press Ctrl+C to end the conversation.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatModel, "model", "", "model identifier (default "+geminilive.DefaultModel+")")
	chatCmd.Flags().StringVar(&chatVoice, "voice", "", "prebuilt voice name")
	chatCmd.Flags().StringVar(&chatPrompt, "system", "", "system instruction")
}

func runChat(cmd *cobra.Command, args []string) error {
	cliCtx, err := getContext()
	if err != nil {
		return err
	}

	model := chatModel
	if model == "" {
		model = cliCtx.Model
	}
	voice := chatVoice
	if voice == "" {
		voice = cliCtx.Voice
	}
	prompt := chatPrompt
	if prompt == "" {
		prompt = cliCtx.SystemPrompt
	}

	styles := cli.NewStyles(cli.DefaultTheme)

	ctrl, err := livechat.New(livechat.Config{
		Credentials: cliCtx,
		OpenSource: func(rate int) (device.Source, error) {
			return portaudio.NewCaptureSource(rate, captureBufferDuration)
		},
		OpenSink: func() (device.Sink, error) {
			return portaudio.NewPlaybackSink(24000)
		},
		Connect: func(ctx context.Context, apiKey string) (livechat.Transport, error) {
			return geminilive.Connect(ctx, &geminilive.Config{
				APIKey:            apiKey,
				Model:             model,
				BaseURL:           cliCtx.BaseURL,
				Voice:             voice,
				SystemInstruction: prompt,
			})
		},
		OnTurn: func(t livechat.Turn) {
			if t.Text == "" {
				return
			}
			switch t.Speaker {
			case livechat.SpeakerUser:
				fmt.Printf("%s %s\n", styles.UserTag.Render("you  ▸"), t.Text)
			case livechat.SpeakerModel:
				fmt.Printf("%s %s\n", styles.ModelTag.Render("model▸"), t.Text)
			}
		},
		OnState: func(s livechat.State) {
			slog.Debug("voxline: state change", "state", s.String())
		},
	})
	if err != nil {
		return err
	}

	started := time.Now()
	if err := ctrl.Start(cmd.Context()); err != nil {
		if errors.Is(err, device.ErrPermissionDenied) {
			return fmt.Errorf("microphone or speaker unavailable: %w", err)
		}
		return err
	}

	fmt.Println(styles.Status.Render("listening — speak, type a message, or press Ctrl+C to quit"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Typed lines go up as text turns alongside the voice stream.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			fmt.Println(styles.Status.Render("\nending conversation"))

			// Flush in-progress speech that never reached a turn boundary.
			if p := ctrl.Partial(livechat.SpeakerUser); p != "" {
				fmt.Printf("%s %s\n", styles.UserTag.Render("you  ▸"), styles.Partial.Render(p+" …"))
			}
			if p := ctrl.Partial(livechat.SpeakerModel); p != "" {
				fmt.Printf("%s %s\n", styles.ModelTag.Render("model▸"), styles.Partial.Render(p+" …"))
			}

			if err := ctrl.Stop(); err != nil && !errors.Is(err, livechat.ErrInvalidState) {
				return err
			}
			fmt.Println(styles.Status.Render("duration: " + cli.FormatDuration(time.Since(started))))
			return nil

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if line == "" {
				continue
			}
			if err := ctrl.SendText(line); err != nil {
				cli.PrintError("send failed: %v", err)
			}

		case <-ticker.C:
			if ctrl.State() == livechat.StateIdle {
				// The session ended on its own; surface why.
				if err := ctrl.Err(); err != nil {
					return err
				}
				return nil
			}
		}
	}
}
