package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/baxromumarov/hh-collector/internal/apperr"
)

// Prompter asks questions on out and reads one line per answer from in.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Ask returns the trimmed answer. Empty answers are rejected.
func (p *Prompter) Ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", apperr.InvalidInput("reading answer", err)
		}
		return "", apperr.InvalidInput("no input", io.EOF)
	}
	answer := strings.TrimSpace(p.in.Text())
	if answer == "" {
		return "", apperr.InvalidInput(fmt.Sprintf("empty answer to %q", strings.TrimSpace(question)), nil)
	}
	return answer, nil
}

// AskInt asks for a non-negative integer.
func (p *Prompter) AskInt(question string) (int, error) {
	answer, err := p.Ask(question)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 0 {
		return 0, apperr.InvalidInput(fmt.Sprintf("%q is not a non-negative integer", answer), err)
	}
	return n, nil
}
