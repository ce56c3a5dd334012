// Package main is a CLI front end for the vocabulary service, built on the
// client library. It keeps session state, the response cache, and the
// logout event log across invocations of a single interactive run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/client"
	"github.com/lexivault/vocab-web-app/api-service/internal/models"
	"github.com/lexivault/vocab-web-app/api-service/pkg/logger"
)

const commandTimeout = 90 * time.Second

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "Vocabulary service base URL")
		statePath = flag.String("state", defaultStatePath(), "Path to the client state file")
		action    = flag.String("action", "", "Action: login, logout, words, add, delete, lookup, speak, notes, note-add, health, info")
		username  = flag.String("user", "", "Username for login")
		password  = flag.String("password", "", "Password for login")
		word      = flag.String("word", "", "Word for add/lookup")
		wordID    = flag.Int64("word-id", 0, "Word ID for delete/notes")
		note      = flag.String("note", "", "Note body for note-add")
		mode      = flag.String("mode", "define", "Lookup mode: define, example, synonyms")
		text      = flag.String("text", "", "Text for speech synthesis")
		out       = flag.String("out", "", "Output file for synthesized audio")
		search    = flag.String("search", "", "Search filter for the word list")
		logLevel  = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	log := logger.New(*logLevel, "text", "stderr")

	c := client.New(client.Options{
		BaseURL:   *baseURL,
		StatePath: *statePath,
	}, log)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := run(ctx, c, log, runArgs{
		action:   *action,
		username: *username,
		password: *password,
		word:     *word,
		wordID:   *wordID,
		note:     *note,
		mode:     *mode,
		text:     *text,
		out:      *out,
		search:   *search,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runArgs struct {
	action   string
	username string
	password string
	word     string
	wordID   int64
	note     string
	mode     string
	text     string
	out      string
	search   string
}

func run(ctx context.Context, c *client.Client, log *logrus.Logger, args runArgs) error {
	switch args.action {
	case "login":
		if args.username == "" || args.password == "" {
			return fmt.Errorf("login requires -user and -password")
		}
		resp, err := c.Login(ctx, args.username, args.password)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s (session valid until %s)\n",
			resp.User.Username, resp.ExpiresAt.Format(time.RFC3339))
		return nil

	case "logout":
		if err := c.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil

	case "words":
		resp, err := c.ListWords(ctx, args.search, 1, 50)
		if err != nil {
			return err
		}
		fmt.Printf("%d words (showing %d):\n", resp.Total, len(resp.Words))
		for i := range resp.Words {
			printWord(&resp.Words[i])
		}
		return nil

	case "add":
		if args.word == "" {
			return fmt.Errorf("add requires -word")
		}
		added, err := c.AddWord(ctx, args.word)
		if err != nil {
			return err
		}
		fmt.Printf("Added %q (id %d)\n", added.Word, added.ID)
		return nil

	case "delete":
		if args.wordID == 0 {
			return fmt.Errorf("delete requires -word-id")
		}
		if err := c.DeleteWord(ctx, args.wordID); err != nil {
			return err
		}
		fmt.Printf("Deleted word %d\n", args.wordID)
		return nil

	case "notes":
		if args.wordID == 0 {
			return fmt.Errorf("notes requires -word-id")
		}
		notes, err := c.ListNotes(ctx, args.wordID)
		if err != nil {
			return err
		}
		if len(notes) == 0 {
			fmt.Println("No notes")
			return nil
		}
		for _, n := range notes {
			fmt.Printf("  [%d] %s\n", n.ID, n.Body)
		}
		return nil

	case "note-add":
		if args.wordID == 0 || args.note == "" {
			return fmt.Errorf("note-add requires -word-id and -note")
		}
		added, err := c.AddNote(ctx, args.wordID, args.note)
		if err != nil {
			return err
		}
		fmt.Printf("Added note %d\n", added.ID)
		return nil

	case "lookup":
		if args.word == "" {
			return fmt.Errorf("lookup requires -word")
		}
		lookupAction := models.LookupAction(args.mode)
		if !models.ValidLookupAction(lookupAction) {
			return fmt.Errorf("unknown mode %q", args.mode)
		}
		result, err := c.Lookup(ctx, args.word, lookupAction)
		if err != nil {
			return err
		}
		fmt.Println(result)
		return nil

	case "speak":
		if args.text == "" {
			return fmt.Errorf("speak requires -text")
		}
		audio, err := c.Speech(ctx, args.text)
		if err != nil {
			return err
		}
		outPath := args.out
		if outPath == "" {
			outPath = "speech.mp3"
		}
		if err := os.WriteFile(outPath, audio, 0o644); err != nil {
			return fmt.Errorf("failed to write audio: %w", err)
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(audio), outPath)
		return nil

	case "health":
		printHealth(c.GetSessionHealth())
		return nil

	case "info":
		printInfo(c.GetSessionInfo())
		return nil

	case "":
		flag.Usage()
		return fmt.Errorf("no action given")

	default:
		log.WithField("action", args.action).Debug("Unknown action")
		return fmt.Errorf("unknown action %q", args.action)
	}
}

func printWord(w *models.VocabWord) {
	fmt.Printf("  [%d] %s", w.ID, w.Word)
	if w.Definition != nil {
		def := *w.Definition
		if len(def) > 60 {
			def = def[:60] + "..."
		}
		fmt.Printf(" - %s", def)
	}
	fmt.Println()
}

func printHealth(h models.SessionHealth) {
	fmt.Printf("Logouts recorded: %d (%d unexpected)\n", h.TotalLogouts, h.UnexpectedLogouts)
	if h.AvgSessionDurationMs > 0 {
		fmt.Printf("Average session: %s\n", time.Duration(h.AvgSessionDurationMs)*time.Millisecond)
	}
	if len(h.TopReasons) > 0 {
		fmt.Println("Top reasons:")
		for _, rc := range h.TopReasons {
			fmt.Printf("  %3dx %s\n", rc.Count, rc.Reason)
		}
	}
	if len(h.RecentPatterns) > 0 {
		fmt.Println("Patterns:")
		for _, p := range h.RecentPatterns {
			fmt.Printf("  - %s\n", p)
		}
	}
}

func printInfo(info models.ClientSessionInfo) {
	fmt.Printf("Session token:     %v\n", info.HasToken)
	if info.Username != "" {
		fmt.Printf("Username:          %s\n", info.Username)
	}
	fmt.Printf("Admin:             %v\n", info.IsAdmin)
	fmt.Printf("Monitoring active: %v\n", info.HealthCheckActive)
	fmt.Printf("Failure count:     %d\n", info.ConsecutiveFailureCount)
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vocab-client-state.json"
	}
	return filepath.Join(home, ".vocab-client-state.json")
}
