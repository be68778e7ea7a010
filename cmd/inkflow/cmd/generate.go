package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/inkflow/inkflow/internal/clip"
	"github.com/inkflow/inkflow/internal/config"
	"github.com/inkflow/inkflow/internal/core"
	"github.com/inkflow/inkflow/internal/history"
	"github.com/inkflow/inkflow/internal/logging"
	"github.com/inkflow/inkflow/internal/session"
)

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate an article from a topic",
	Long: `Generate an article by streaming the pipeline stages for a topic.

The pipeline pauses once the outline is ready. Review it, then accept it
as-is or edit the section titles before writing continues. Press Ctrl-C
at any point to cancel the generation.

Examples:
  inkflow generate "Understanding Go generics"
  inkflow generate --type social --length short "TIL: errors.Join"
  inkflow generate --yes --copy "Profiling Go services in production"`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

var (
	genType   string
	genLength string
	genYes    bool
	genCopy   bool
	genOutput string
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&genType, "type", "t", "",
		"article type (blog, social)")
	generateCmd.Flags().StringVarP(&genLength, "length", "l", "",
		"target length (mini, short, medium, long, custom)")
	generateCmd.Flags().BoolVarP(&genYes, "yes", "y", false,
		"accept the outline without prompting")
	generateCmd.Flags().BoolVar(&genCopy, "copy", false,
		"copy the finished article to the clipboard")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "",
		"write the finished article to a file")
}

func runGenerate(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	req, err := buildRequest(cfg, args[0])
	if err != nil {
		return err
	}

	reportUnfinished(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Signals awaiting_outline_approval into the prompt loop. Buffered so
	// the observer never blocks the session loop.
	awaiting := make(chan struct{}, 4)
	sess := session.New(
		session.NewHTTPPipeline(cfg.Service.BaseURL, session.WithPipelineLogger(logger)),
		session.WithLogger(logger),
		session.WithObserver(func(ev core.ProgressEvent, status core.SessionStatus) {
			renderEvent(ev)
			if status == core.StatusAwaitingApproval {
				select {
				case awaiting <- struct{}{}:
				default:
				}
			}
		}),
	)

	printf("%s %s\n", styled(styleTitle, "Generating:"), req.Topic)
	if err := sess.Start(ctx, req); err != nil {
		return err
	}

	startedAt := time.Now().UTC()
	saveMarker(cfg, logger, sess, req.Topic, startedAt)

	// Ctrl-C cancels the session; the loop below exits through Done.
	go func() {
		<-ctx.Done()
		if err := sess.Cancel(); err != nil {
			logger.Debug("cancel after signal", "error", err)
		}
	}()

	var outline core.Outline
	for finished := false; !finished; {
		select {
		case <-sess.Done():
			finished = true
		case <-awaiting:
			o, err := sess.PendingOutline()
			if err != nil {
				// The checkpoint resolved before we got here.
				continue
			}
			outline = o
			decision, err := promptOutline(o)
			if err != nil {
				return err
			}
			if decision.Action == core.DecisionEdit {
				outline.SectionTitles = decision.SectionTitles
			}
			if err := sess.Decide(decision); err != nil {
				if core.IsCategory(err, core.ErrCatProtocol) {
					continue // session moved on without us
				}
				return err
			}
		}
	}

	res, err := sess.Wait(context.Background())
	clearMarker(cfg, logger)

	switch res.Status {
	case core.StatusCompleted:
		return deliverArticle(cfg, logger, req, sess.TaskID(), outline, res.Artifact)
	case core.StatusCancelled:
		printf("%s\n", styled(styleWarning, "Generation cancelled."))
		return nil
	default:
		if err != nil {
			return err
		}
		return res.Err
	}
}

// buildRequest merges flags over configured defaults.
func buildRequest(cfg *config.Config, topic string) (core.GenerationRequest, error) {
	typeStr := cfg.Generate.ArticleType
	if genType != "" {
		typeStr = genType
	}
	articleType, err := core.ParseArticleType(typeStr)
	if err != nil {
		return core.GenerationRequest{}, err
	}

	lengthStr := cfg.Generate.Length
	if genLength != "" {
		lengthStr = genLength
	}
	length, err := core.ParseTargetLength(lengthStr)
	if err != nil {
		return core.GenerationRequest{}, err
	}

	req := core.GenerationRequest{
		Topic:        topic,
		ArticleType:  articleType,
		TargetLength: length,
	}
	return req, req.Validate()
}

// reportUnfinished tells the user about a previous run that never reached
// a terminal state, then removes the stale marker.
func reportUnfinished(cfg *config.Config, logger *logging.Logger) {
	st, err := session.LoadResume(cfg.History.ResumePath)
	if err != nil {
		return
	}
	if !st.Status.Terminal() {
		printf("%s previous generation %q (task %s) did not finish\n",
			styled(styleWarning, "note:"), st.Topic, st.TaskID)
	}
	if err := session.ClearResume(cfg.History.ResumePath); err != nil {
		logger.Debug("clearing resume marker", "error", err)
	}
}

func saveMarker(cfg *config.Config, logger *logging.Logger, sess *session.Session, topic string, startedAt time.Time) {
	err := session.SaveResume(cfg.History.ResumePath, session.ResumeState{
		TaskID:    sess.TaskID(),
		SessionID: sess.ID(),
		Topic:     topic,
		Status:    sess.Status(),
		StartedAt: startedAt,
	})
	if err != nil {
		logger.Warn("saving resume marker", "error", err)
	}
}

func clearMarker(cfg *config.Config, logger *logging.Logger) {
	if err := session.ClearResume(cfg.History.ResumePath); err != nil {
		logger.Warn("clearing resume marker", "error", err)
	}
}

// renderEvent prints one progress line per streamed event.
func renderEvent(ev core.ProgressEvent) {
	if quiet {
		return
	}
	switch ev.Kind {
	case core.KindLog:
		printf("  %s\n", styled(styleMuted, ev.Message))
	case core.KindError:
		printf("%s %s\n", styled(styleError, "error:"), ev.Message)
	case core.KindDone:
		printf("%s %s\n", styled(styleSuccess, "done:"), ev.Message)
	case core.KindOutlineReady:
		// Rendered by the approval prompt.
	default:
		if ev.Stage == "" {
			printf("  %s\n", styled(styleMuted, ev.Message))
			return
		}
		printf("%s %s\n", styled(styleStage, fmt.Sprintf("[%s]", ev.Stage.Label())), ev.Message)
	}
}

// promptOutline shows the outline and collects the user's decision. With
// --yes, or when stdin is not a terminal, the outline is accepted as-is.
func promptOutline(o core.Outline) (core.OutlineDecision, error) {
	printf("\n%s %s\n", styled(styleTitle, "Outline:"), o.Title)
	for i, section := range o.SectionTitles {
		printf("  %2d. %s\n", i+1, section)
	}
	printf("\n")

	if genYes || !term.IsTerminal(int(os.Stdin.Fd())) {
		printf("%s\n", styled(styleMuted, "accepting outline"))
		return core.AcceptOutline(), nil
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Accept outline? [Y]es / [e]dit sections: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return core.AcceptOutline(), nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "y", "yes", "a", "accept":
			return core.AcceptOutline(), nil
		case "e", "edit":
			sections, err := promptSections(reader, o.SectionTitles)
			if err != nil {
				return core.OutlineDecision{}, err
			}
			if len(sections) == 0 {
				fmt.Println("no sections entered, keeping the original outline")
				return core.AcceptOutline(), nil
			}
			return core.EditOutline(sections), nil
		default:
			fmt.Println("please answer 'y' or 'e'")
		}
	}
}

// promptSections reads replacement section titles, one per line, ending
// on an empty line.
func promptSections(reader *bufio.Reader, current []string) ([]string, error) {
	fmt.Println("Enter section titles, one per line. An empty line finishes.")
	fmt.Printf("Current sections: %s\n", strings.Join(current, "; "))

	var sections []string
	for {
		fmt.Printf("%2d> ", len(sections)+1)
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		title := strings.TrimSpace(line)
		if title == "" {
			break
		}
		sections = append(sections, title)
	}
	return sections, nil
}

// deliverArticle persists and hands over the finished markdown.
func deliverArticle(cfg *config.Config, logger *logging.Logger, req core.GenerationRequest, taskID string, outline core.Outline, artifact core.Artifact) error {
	rec := history.NewRecord(uuid.NewString(), req, taskID, core.StatusCompleted, outline, artifact)
	if err := saveRecord(cfg, rec); err != nil {
		logger.Warn("saving history record", "error", err)
	} else {
		printf("%s %s\n", styled(styleMuted, "saved to history as"), rec.ID)
	}

	if genOutput != "" {
		if err := os.WriteFile(genOutput, []byte(artifact.Markdown), 0o644); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
		printf("%s %s\n", styled(styleSuccess, "wrote"), genOutput)
	}

	if genCopy || cfg.Generate.CopyToClipboard {
		reportClip(artifact.Markdown)
	}

	// Without an output file the article itself goes to stdout.
	if genOutput == "" {
		printf("\n")
		fmt.Print(artifact.Markdown)
		if !strings.HasSuffix(artifact.Markdown, "\n") {
			fmt.Println()
		}
	}
	return nil
}

func saveRecord(cfg *config.Config, rec history.Record) error {
	store, err := history.NewSQLiteStore(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(context.Background(), rec)
}

// reportClip copies text to the clipboard and tells the user which
// mechanism worked.
func reportClip(text string) {
	res, err := clip.WriteAll(text)
	if err != nil {
		printf("%s %v\n", styled(styleWarning, "clipboard:"), err)
		return
	}
	switch res.Method {
	case clip.MethodFile:
		printf("%s clipboard unavailable, article written to %s\n",
			styled(styleWarning, "clipboard:"), res.FilePath)
	default:
		printf("%s\n", styled(styleMuted, "copied to clipboard"))
	}
}
