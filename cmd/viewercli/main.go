// Package main provides the viewer CLI entry point for testing.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/tvchannel/internal/api/connect"
)

var (
	app    = kingpin.New("tvchannel-viewercli", "tvchannel viewer client for testing")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").Envar("TVCHANNEL_SERVER").String()

	stateCmd    = app.Command("state", "Show the channel state")
	playlistCmd = app.Command("playlist", "List the playlist items")
	nextCmd     = app.Command("next", "Move to the next item")
	prevCmd     = app.Command("prev", "Move to the previous item")

	// goto command
	gotoCmd   = app.Command("goto", "Move to an item")
	gotoIndex = gotoCmd.Arg("index", "Item index (0-based)").Required().Int32()

	// time command
	timeCmd    = app.Command("time", "Report a remote player position")
	timeValue  = timeCmd.Arg("seconds", "Playback position in seconds").Required().Float64()
	timePaused = timeCmd.Flag("paused", "Report the player as paused").Bool()

	// reload command
	reloadCmd    = app.Command("reload", "Reload the channel source")
	reloadSource = reloadCmd.Arg("source", "Source URL or path (default: current source)").String()

	watchCmd = app.Command("watch", "Subscribe to cursor changes")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewChannelClient(http.DefaultClient, *server)
	ctx := context.Background()

	var (
		resp map[string]any
		err  error
	)
	switch command {
	case stateCmd.FullCommand():
		resp, err = client.GetState(ctx)
	case playlistCmd.FullCommand():
		resp, err = client.GetPlaylist(ctx)
		if err == nil {
			printPlaylist(resp)
			return
		}
	case nextCmd.FullCommand():
		resp, err = client.Next(ctx)
	case prevCmd.FullCommand():
		resp, err = client.Previous(ctx)
	case gotoCmd.FullCommand():
		resp, err = client.Navigate(ctx, *gotoIndex)
	case timeCmd.FullCommand():
		resp, err = client.ReportTime(ctx, *timeValue, *timePaused)
		if err == nil {
			printCommands(resp)
			return
		}
	case reloadCmd.FullCommand():
		resp, err = client.Reload(ctx, *reloadSource)
	case watchCmd.FullCommand():
		watch(ctx, client)
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	printState(resp)
}

func watch(ctx context.Context, client *apiconnect.ChannelClient) {
	stream, err := client.Subscribe(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Watching cursor changes. Press Ctrl+C to exit.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		os.Exit(0)
	}()

	for stream.Receive() {
		msg := stream.Msg().AsMap()
		fmt.Printf("\n[Sequence: %v] ", msg["sequence_no"])
		switch msg["type"] {
		case apiconnect.MessageInitialState:
			fmt.Println("=== INITIAL STATE ===")
			if state, ok := msg["state"].(map[string]any); ok {
				printState(state)
			}
		case apiconnect.MessageChange:
			fmt.Printf("=== CHANGED (%v) ===\n", msg["cause"])
			fmt.Printf("  Index: %v -> %v\n", msg["previous"], msg["active_index"])
			fmt.Printf("  Time: %.1fs\n", number(msg["last_time"]))
			printItem(msg["item"])
		default:
			fmt.Printf("=== UNKNOWN EVENT (%v) ===\n", msg["type"])
		}
	}

	if err := stream.Err(); err != nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printState(state map[string]any) {
	fmt.Printf("Channel: %v\n", state["channel"])
	fmt.Printf("Source: %v\n", state["source"])
	fmt.Printf("Player: %v\n", state["player_state"])
	fmt.Printf("Index: %v / %v\n", state["active_index"], state["length"])
	fmt.Printf("Time: %.1fs\n", number(state["last_time"]))
	fmt.Printf("Has Previous: %v, Has Next: %v\n", state["has_previous"], state["has_next"])
	printItem(state["item"])
}

func printItem(v any) {
	it, ok := v.(map[string]any)
	if !ok {
		fmt.Println("  (no active item)")
		return
	}
	fmt.Println("\nItem:")
	fmt.Printf("  Title: %v\n", it["title"])
	fmt.Printf("  Presenter: %v\n", it["presenter"])
	fmt.Printf("  Timecode: %v\n", it["timecode_text"])
	if desc, _ := it["description"].(string); desc != "" {
		fmt.Printf("  Description: %s\n", desc)
	}
}

func printPlaylist(resp map[string]any) {
	items, _ := resp["items"].([]any)
	fmt.Printf("Source: %v (%d items)\n", resp["source"], len(items))
	for _, v := range items {
		it, ok := v.(map[string]any)
		if !ok {
			continue
		}
		fmt.Printf("  %3.0f  %8v  %v (%v)\n", number(it["index"]), it["timecode_text"], it["title"], it["presenter"])
	}
}

func printCommands(resp map[string]any) {
	cmds, _ := resp["commands"].([]any)
	if len(cmds) == 0 {
		fmt.Println("No pending commands")
		return
	}
	for _, v := range cmds {
		cmd, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if cmd["type"] == "seek" {
			fmt.Printf("  seek %.3f\n", number(cmd["time"]))
			continue
		}
		fmt.Printf("  %v\n", cmd["type"])
	}
}

func number(v any) float64 {
	f, _ := v.(float64)
	return f
}
