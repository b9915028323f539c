package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/streamhive/watchparty/internal/api"
	"github.com/streamhive/watchparty/internal/overlay"
	"github.com/streamhive/watchparty/internal/playback"
	"github.com/streamhive/watchparty/internal/protocol"
	"github.com/streamhive/watchparty/internal/stream"
)

const watchHelp = `commands:
  play            start the stream or resume it (host)
  pause           pause for everyone (host)
  volume <0-100>  local volume
  mute | unmute   local mute
  react <emoji>   send a reaction
  say <text>      send a chat message
  retry           reload the media after an error
  share           print the share link
  status          playback state and viewers
  end             end the stream for everyone (host)
  quit            leave the stream`

var errQuit = errors.New("quit")

// printer serializes output from the view hooks and the command loop.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, format+"\n", args...)
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Join a stream, as host when you created it",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := &printer{w: cmd.OutOrStdout()}
	view, err := a.Watch(ctx, args[0], stream.Hooks{
		OnStateChange: func(_, to playback.State) { out.printf("* %s", to) },
		OnPlaybackErr: func(err error) { out.printf("! playback error: %v (try 'retry')", err) },
		OnChatMessage: func(msg protocol.ChatMessage) { out.printf("<%s> %s", msg.User, msg.Text) },
		OnReaction:    func(r overlay.Reaction) { out.printf("%s %s", r.User, r.Emoji) },
		OnViewers:     func(n int) { out.printf("* %d watching", n) },
		OnStreamEnded: func() {
			out.printf("* the host ended the stream, leaving in %s", stream.ReturnDelay)
		},
	})
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return fmt.Errorf("%w: run 'streamhive login' first", err)
		}
		return err
	}
	defer view.Close()

	details := view.Details()
	role := "guest"
	if view.IsHost() {
		role = "host"
	}
	out.printf("%s (%s) as %s", details.Title, details.ID, role)
	if title, err := a.VideoTitle(ctx, details.VideoURL); err == nil && title != "" {
		out.printf("video: %s", title)
	}
	for _, msg := range view.Messages() {
		out.printf("<%s> %s", msg.User, msg.Text)
	}
	out.printf("type 'help' for commands")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-view.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-view.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// Without input the view keeps running until it ends or is interrupted.
				lines = nil
				continue
			}
			if err := execute(ctx, view, out, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				out.printf("! %v", err)
			}
		}
	}
}

func execute(ctx context.Context, view *stream.View, out *printer, line string) error {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "":
		return nil
	case "help":
		out.printf(watchHelp)
	case "play":
		if !view.Started() {
			return view.StartPlayback()
		}
		return view.SetPlaying(true)
	case "pause":
		return view.SetPlaying(false)
	case "volume":
		v, err := strconv.ParseFloat(rest, 64)
		if err != nil || v < 0 || v > 100 {
			return errors.New("volume takes a number from 0 to 100")
		}
		view.SetVolume(v / 100)
	case "mute":
		view.SetMuted(true)
	case "unmute":
		view.SetMuted(false)
	case "react":
		if rest == "" {
			return errors.New("react takes an emoji")
		}
		return view.SendReaction(rest)
	case "say":
		return view.SendMessage(ctx, rest)
	case "retry":
		return view.Retry()
	case "share":
		out.printf("%s", view.ShareLink())
	case "status":
		out.printf("%s, %d watching", view.State(), view.Viewers())
		if err := view.PlaybackError(); err != nil {
			out.printf("! %v", err)
		}
	case "end":
		return view.EndStream(ctx)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, type 'help'", name)
	}

	return nil
}
