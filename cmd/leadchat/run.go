package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/krauseinafrica/leadchat"
	"github.com/krauseinafrica/leadchat/internal/presentation/tui"
	"github.com/krauseinafrica/leadchat/pkg/domain"
	"github.com/krauseinafrica/leadchat/pkg/ports"
)

// runCmd walks the conversation script in the terminal, with the same
// typing delays a widget visitor would see. Captured leads are printed
// instead of submitted, making it the authoring feedback loop for scripts.
var runCmd = &cobra.Command{
	Use:   "run [script.yaml]",
	Short: "Walk through a conversation script interactively",
	Long: `Runs a conversation in the terminal exactly as the widget would drive it,
including typing delays and input validation. The captured lead is printed
at the end instead of being submitted.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInteractive(cmd, args); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("instant", false, "Skip typing delays")
}

func runInteractive(cmd *cobra.Command, args []string) error {
	graph, err := runValidate(cmd, args)
	if err != nil {
		return err
	}

	render := tui.NewRenderer()

	// Bot turns arrive on the delivery path; nodeCh wakes the prompt loop
	// once the conversation is parked on the next node. The lead printout
	// fires after the node event, so the terminal path waits on submitCh.
	type nodeEntered struct {
		id   string
		kind domain.Kind
	}
	nodeCh := make(chan nodeEntered, 1)
	submitCh := make(chan struct{}, 1)
	hooks := domain.LifecycleHooks{
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			if e.Turn.Speaker == domain.SpeakerBot {
				fmt.Println(render(e.Turn.Text))
			}
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			nodeCh <- nodeEntered{id: e.NodeID, kind: e.NodeKind}
		},
		OnSubmit: func(_ context.Context, e *domain.SubmitEvent) {
			fmt.Println()
			fmt.Println("Captured lead:")
			fmt.Printf("  name:  %s\n", e.Lead.Name)
			fmt.Printf("  email: %s\n", e.Lead.Email)
			fmt.Printf("  phone: %s\n", e.Lead.Phone)
			for k, v := range e.Lead.Answers {
				fmt.Printf("  %s: %s\n", k, v)
			}
			submitCh <- struct{}{}
		},
	}

	opts := []leadchat.Option{leadchat.WithLifecycleHooks(hooks)}
	if instant, _ := cmd.Flags().GetBool("instant"); instant {
		opts = append(opts, leadchat.WithScheduler(instantScheduler{}))
	}

	engine, err := leadchat.New(graph, opts...)
	if err != nil {
		return err
	}

	tui.PrintBanner()

	conv := engine.Open("cli")
	defer conv.Close()

	ctx := context.Background()
	if err := conv.Activate(ctx); err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)

	for {
		entered := <-nodeCh

		if entered.kind == domain.KindTerminal {
			if entered.id == graph.CompletionID() {
				<-submitCh
			}
			return nil
		}

		node, ok := conv.CurrentNode()
		if !ok {
			return nil
		}

		quit, err := promptAndApply(ctx, conv, node, reader)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// instantScheduler collapses typing delays to zero while keeping delivery
// asynchronous, which the engine requires.
type instantScheduler struct{}

func (instantScheduler) Schedule(_ time.Duration, fn func()) ports.CancelFunc {
	return ports.TimerScheduler{}.Schedule(0, fn)
}

// promptAndApply reads one visitor action for the given node, retrying on
// rejected input until the conversation advances. quit is true when the
// visitor bailed out with an exit command.
func promptAndApply(ctx context.Context, conv *leadchat.Conversation, node domain.Node, reader *bufio.Reader) (quit bool, _ error) {
	for {
		switch node.Kind() {
		case domain.KindChoice:
			fmt.Println()
			for i, opt := range node.Options {
				fmt.Printf("  %d) %s\n", i+1, opt.Label)
			}
		case domain.KindInput:
			if node.Optional {
				fmt.Println("  (press Enter to skip)")
			}
		}

		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		text := strings.TrimRight(line, "\r\n")

		if text == "exit" || text == "quit" {
			fmt.Println("Bye!")
			return true, nil
		}

		switch node.Kind() {
		case domain.KindChoice:
			value := text
			if n, convErr := strconv.Atoi(strings.TrimSpace(text)); convErr == nil && n >= 1 && n <= len(node.Options) {
				value = node.Options[n-1].Value
			}
			err = conv.SelectOption(ctx, node.ID, value)
		case domain.KindInput:
			err = conv.SubmitInput(ctx, text)
		}

		if err == nil {
			return false, nil
		}
		fmt.Printf("  %v, try again.\n", err)
	}
}
