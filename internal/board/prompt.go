package board

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoInput is returned when a prompt hits end of input.
var ErrNoInput = errors.New("input required but stdin is closed")

// Prompter asks line-oriented questions. It works with piped input, so the
// wizard can be scripted.
type Prompter struct {
	Reader *bufio.Reader
	Writer io.Writer
}

// NewPrompter wraps in and out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{Reader: bufio.NewReader(in), Writer: out}
}

// Ask prints label and returns the trimmed answer. EOF with no answer is
// ErrNoInput.
func (p *Prompter) Ask(label string) (string, error) {
	fmt.Fprint(p.Writer, label)
	line, err := p.Reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.Writer)
			return "", ErrNoInput
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Choose asks for a 1-based index into n options.
func (p *Prompter) Choose(label string, n int) (int, error) {
	answer, err := p.Ask(label)
	if err != nil {
		return 0, err
	}
	idx, err := strconv.Atoi(answer)
	if err != nil || idx < 1 || idx > n {
		return 0, ErrInvalidChoice
	}
	return idx - 1, nil
}
