package installer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Prompter reads one line of user input after showing prompt. It returns
// io.EOF when input is exhausted.
type Prompter interface {
	ReadLine(prompt string) (string, error)
}

// TerminalPrompter prompts on Out and reads lines from In.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter returns a prompter over the given reader and writer.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

// ReadLine writes prompt and returns the next line without its terminator.
func (p *TerminalPrompter) ReadLine(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, prompt); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type lineResult struct {
	line string
	err  error
}

// readLine reads through p but gives up when ctx is done. A read still
// blocked on the terminal is abandoned.
func readLine(ctx context.Context, p Prompter, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ch := make(chan lineResult, 1)
	go func() {
		line, err := p.ReadLine(prompt)
		ch <- lineResult{line, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

func isQuit(answer string) bool {
	switch answer {
	case "q", "quit", "exit":
		return true
	}
	return false
}
