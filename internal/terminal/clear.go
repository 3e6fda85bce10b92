// Package terminal provides small terminal helpers: clearing echoed prompts and
// reading secrets without echo.
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"atomicgo.dev/cursor"
	"golang.org/x/term"
)

// Width returns the terminal width of stdout, or 80 when it is not a terminal.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ClearPreviousLines clears textLength characters of previously printed text,
// accounting for line wrapping and the newline left by Enter.
func ClearPreviousLines(textLength int) {
	totalLines := int(math.Ceil(float64(textLength) / float64(Width())))
	if totalLines < 1 {
		totalLines = 1
	}
	linesToClear := totalLines + 1

	for i := 0; i < linesToClear; i++ {
		cursor.StartOfLine()
		cursor.ClearLine()
		if i < linesToClear-1 {
			cursor.Up(1)
		}
	}
}

// ReadSecret prints prompt and reads one line without echo. When stdin is not a
// terminal the line is read from in as is, which keeps piped input working.
func ReadSecret(prompt string, in io.Reader) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
