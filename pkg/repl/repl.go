package repl

// note: based off of csci1270-fall23
import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
)

var ErrUnknownCommand = errors.New("invalid command")

type REPL struct {
	Commands map[string]func(string, *REPLConfig) error
	Help     map[string]string
}

type REPLConfig struct {
	Writer io.Writer
}

// Options for an interactive session. Zero values read the terminal.
type RunOptions struct {
	Prompt      string
	HistoryFile string
	Stdin       io.ReadCloser
	Stdout      io.Writer
}

func NewRepl() *REPL {
	r := &REPL{make(map[string]func(string, *REPLConfig) error), make(map[string]string)}
	return r
}

// Add a command, along with its help string, to the set of commands
func (r *REPL) AddCommand(trigger string, handler func(string, *REPLConfig) error, help string) {
	if trigger == "" || trigger[0] == '.' {
		return
	}
	r.Help[trigger] = help
	r.Commands[trigger] = handler
}

// Return all REPL usage information as a string
func (r *REPL) HelpString() string {
	triggers := make([]string, 0, len(r.Help))
	for k := range r.Help {
		triggers = append(triggers, k)
	}
	sort.Strings(triggers)

	var sb strings.Builder
	sb.WriteString("Commands\n")
	for _, k := range triggers {
		sb.WriteString(fmt.Sprintf("\t%s: %s\n", k, r.Help[k]))
	}
	return sb.String()
}

// Execute runs one input line. Handler errors are returned as is.
func (r *REPL) Execute(input string, config *REPLConfig) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	command := strings.Fields(input)[0]
	handler, ok := r.Commands[command]
	if !ok {
		return errors.Wrapf(ErrUnknownCommand, "%s", command)
	}
	return handler(input, config)
}

func (r *REPL) completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(r.Commands))
	for trigger := range r.Commands {
		items = append(items, readline.PcItem(trigger))
	}
	return readline.NewPrefixCompleter(items...)
}

// Run reads commands until EOF, an interrupt on an empty line, or "exit".
func (r *REPL) Run(opts RunOptions) error {
	if opts.Prompt == "" {
		opts.Prompt = "> "
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          opts.Prompt,
		HistoryFile:     opts.HistoryFile,
		AutoComplete:    r.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           opts.Stdin,
		Stdout:          opts.Stdout,
	})
	if err != nil {
		return errors.Wrap(err, "starting readline")
	}
	defer rl.Close()

	writer := rl.Stdout()
	replConfig := &REPLConfig{Writer: writer}

	// begin the repl
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		input := strings.TrimSpace(line)
		if input == "exit" || input == "quit" {
			return nil
		}

		err = r.Execute(input, replConfig)
		if errors.Is(err, ErrUnknownCommand) {
			io.WriteString(writer, fmt.Sprintf("Invalid command: %s\n", strings.Fields(input)[0]))
			io.WriteString(writer, r.HelpString())
		} else if err != nil {
			io.WriteString(writer, fmt.Sprintf("Error: %v\n", err))
		}
	}
}
