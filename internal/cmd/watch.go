package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-debate/core"
	"github.com/koscakluka/ema-debate/core/api"
	"github.com/koscakluka/ema-debate/core/events"
	"github.com/koscakluka/ema-debate/internal/config"
	"github.com/koscakluka/ema-debate/internal/metrics"
	"github.com/koscakluka/ema-debate/internal/viewer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [market-id]",
	Short: "Start a debate and present it turn by turn",
	Long: `Start a debate on a market and follow it live.

Examples:
  # Three rounds between two models
  debatecast watch will-it-rain -m gpt-4o -m claude-sonnet -r 3

  # Attach to a session that is already running
  debatecast watch --session-id 5f0c8e

  # Plain output without the terminal viewer or audio
  debatecast watch will-it-rain -m gpt-4o --no-tui --player none`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var (
	watchModels    []string
	watchRounds    int
	watchSessionID string
	watchStreamURL string
	watchNoTUI     bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	flags := watchCmd.Flags()
	flags.StringSliceVarP(&watchModels, "models", "m", nil, "participating model ids")
	flags.IntVarP(&watchRounds, "rounds", "r", 3, "number of debate rounds")
	flags.StringVar(&watchSessionID, "session-id", "", "attach to a running session instead of starting one")
	flags.StringVar(&watchStreamURL, "stream-url", "", "event stream endpoint of the session given by --session-id")
	flags.BoolVar(&watchNoTUI, "no-tui", false, "print turns as plain text instead of running the viewer")
	flags.String("player", "", "audio backend: miniaudio, portaudio, silent or none")
	flags.String("transport", "", "stream transport: sse or websocket")
	flags.String("metrics-addr", "", "serve prometheus metrics on this address")

	_ = v.BindPFlag("playback.player", flags.Lookup("player"))
	_ = v.BindPFlag("api.transport", flags.Lookup("transport"))
	_ = v.BindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchSessionID == "" && len(args) == 0 {
		return errors.New("a market id is required unless --session-id is set")
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg, !watchNoTUI)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	player, closePlayer := newClipPlayer(cfg, client, logger)
	defer closePlayer()

	observer := metrics.NewObserver(prometheus.DefaultRegisterer)
	if cfg.Metrics.Addr != "" {
		shutdown := serveMetrics(cfg.Metrics.Addr, logger)
		defer shutdown()
	}

	o := orchestration.NewOrchestrator(
		orchestration.WithDebateServer(client),
		orchestration.WithClipPlayer(player),
		orchestration.WithStreamTransport(newTransport(cfg)),
		orchestration.WithStreamPolicy(cfg.StreamPolicy()),
		orchestration.WithTiming(cfg.Timing()),
		orchestration.WithAudioBaseURL(cfg.API.AudioBaseURL),
	)

	feed := viewer.NewFeed()
	present := feed.Handle
	if watchNoTUI {
		present = newPrinter(cmd.OutOrStdout()).handle
	}
	opts := []orchestration.SessionOption{
		orchestration.WithEventHandler(func(event events.Event) {
			observer.Handle(event)
			present(event)
		}),
	}

	var (
		session *orchestration.Session
		title   string
	)
	if watchSessionID != "" {
		streamURL := watchStreamURL
		if streamURL == "" {
			streamURL = client.StreamURL(watchSessionID)
		}
		session = o.Watch(ctx, orchestration.SessionInfo{SessionID: watchSessionID, StreamURL: streamURL}, opts...)
	} else {
		session, err = o.StartSession(ctx, api.StartRequest{
			MarketID:       args[0],
			ParticipantIDs: watchModels,
			Rounds:         watchRounds,
		}, opts...)
		if err != nil {
			return err
		}
		title = "Debate on " + args[0]
	}
	observer.SessionStarted()
	defer observer.SessionStopped()
	logger.Info("watching debate", "session_id", session.ID())

	if watchNoTUI {
		<-session.Done()
	} else if err := runViewer(ctx, session, feed, title); err != nil {
		return err
	}

	err = session.Err()
	logger.Info("debate session ended", "session_id", session.ID(), "error", err)
	if errors.Is(err, orchestration.ErrSessionClosed) {
		return nil
	}
	return err
}

func runViewer(ctx context.Context, session *orchestration.Session, feed *viewer.Feed, title string) error {
	program := tea.NewProgram(viewer.New(session, title), tea.WithAltScreen(), tea.WithContext(ctx))

	feedCtx, cancelFeed := context.WithCancel(ctx)
	defer cancelFeed()
	go feed.Run(feedCtx, program.Send)
	go func() {
		<-session.Done()
		program.Send(viewer.DoneMsg{Err: session.Err()})
	}()

	_, err := program.Run()
	session.Close()
	<-session.Done()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("viewer failed: %w", err)
	}
	return nil
}

func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

// printer renders session events as plain lines.
type printer struct {
	out io.Writer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) handle(event events.Event) {
	switch e := event.(type) {
	case events.SessionStarted:
		fmt.Fprintf(p.out, "debate %s started, %d rounds\n", e.SessionID, e.TotalRounds)
	case events.TurnRevealed:
		fmt.Fprintf(p.out, "\n[round %d] %s:\n%s\n", e.Turn.Round, e.Turn.DisplayName(), strings.TrimSpace(e.Turn.Text))
	case events.AudioBlocked:
		fmt.Fprintf(p.out, "audio could not be played, continuing without voice: %v\n", e.Err)
	case events.StreamError:
		fmt.Fprintf(p.out, "server reported an error: %s\n", e.Message)
	case events.StreamReconnected:
		fmt.Fprintf(p.out, "stream reconnected (attempt %d), skipping repeated turns\n", e.Attempt)
	case events.SessionFinished:
		fmt.Fprintln(p.out, "\ndebate finished, fetching results...")
	case events.ResultsReady:
		fmt.Fprintf(p.out, "\n%s\n", viewer.RenderResults(e.Results, 80))
	case events.ResultsUnavailable:
		fmt.Fprintf(p.out, "results unavailable after %d attempts: %v\n", e.Attempts, e.Err)
	case events.TransportFailed:
		fmt.Fprintf(p.out, "stream lost: %v\n", e.Err)
	}
}
