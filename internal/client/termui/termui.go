// Package termui is the line-oriented terminal front end for the client.
package termui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/park285/checkers-lobby/internal/checkers"
	"github.com/park285/checkers-lobby/internal/msgcat"
)

var ErrBadMove = errors.New("termui: cannot parse move")

const rule = "-------------------"

// Terminal reads answers line by line from in and writes to out. A single
// goroutine owns in, so a cancelled prompt does not lose the next line.
type Terminal struct {
	out   io.Writer
	cat   *msgcat.Catalog
	lines <-chan string
}

func New(in io.Reader, out io.Writer, cat *msgcat.Catalog) *Terminal {
	if cat == nil {
		cat = msgcat.Default()
	}
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return &Terminal{out: out, cat: cat, lines: lines}
}

func (t *Terminal) Notify(text string) {
	fmt.Fprintln(t.out, text)
}

func (t *Terminal) ShowBoard(b checkers.Board) {
	io.WriteString(t.out, RenderBoard(b))
}

func (t *Terminal) Credentials(ctx context.Context) (string, string, error) {
	var user, pass string
	for user == "" {
		l, err := t.prompt(ctx, "prompt.username")
		if err != nil {
			return "", "", err
		}
		user = strings.TrimSpace(l)
	}
	for pass == "" {
		l, err := t.prompt(ctx, "prompt.password")
		if err != nil {
			return "", "", err
		}
		pass = l
	}
	return user, pass, nil
}

func (t *Terminal) Move(ctx context.Context) (checkers.Move, error) {
	for {
		l, err := t.prompt(ctx, "prompt.move")
		if err != nil {
			return checkers.Move{}, err
		}
		m, err := ParseMove(l)
		if err == nil {
			return m, nil
		}
		t.Notify(t.cat.Text("input.invalid", nil))
	}
}

func (t *Terminal) PlayAgain(ctx context.Context) (bool, error) {
	for {
		l, err := t.prompt(ctx, "prompt.play_again")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(l)) {
		case "yes", "y":
			return true, nil
		case "no", "n":
			return false, nil
		}
		t.Notify(t.cat.Text("input.yes_no", nil))
	}
}

// prompt prints the catalog text for key and waits for one line. A closed
// input is io.EOF.
func (t *Terminal) prompt(ctx context.Context, key string) (string, error) {
	io.WriteString(t.out, t.cat.Text(key, nil))
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-t.lines:
		if !ok {
			return "", io.EOF
		}
		return l, nil
	}
}

// RenderBoard draws b from the side of the player it was sent to. Rows and
// columns run from 8 down to 1 and the labels are the coordinates a move is
// typed with.
func RenderBoard(b checkers.Board) string {
	var sb strings.Builder
	sb.WriteString("___________________\n")
	sb.WriteString("| |")
	for x := checkers.Size - 1; x >= 0; x-- {
		fmt.Fprintf(&sb, "%d|", x+1)
	}
	sb.WriteByte('\n')
	for y := checkers.Size - 1; y >= 0; y-- {
		sb.WriteString(rule + "\n")
		fmt.Fprintf(&sb, "|%d|", y+1)
		for x := checkers.Size - 1; x >= 0; x-- {
			sb.WriteByte(glyph(b[x][y]))
			sb.WriteByte('|')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(rule + "\n")
	return sb.String()
}

func glyph(c checkers.Cell) byte {
	switch {
	case !c.Used:
		return ' '
	case c.Owner && c.Promoted:
		return 'O'
	case c.Owner:
		return 'o'
	case c.Promoted:
		return 'X'
	default:
		return 'x'
	}
}

// ParseMove reads "x y left|right up|down" with 1-based coordinates. The
// words follow RenderBoard, which counts down from 8 on both axes: left and
// up are the positive directions.
func ParseMove(s string) (checkers.Move, error) {
	f := strings.Fields(strings.ToLower(s))
	if len(f) != 4 {
		return checkers.Move{}, fmt.Errorf("%w: want 4 fields, got %d", ErrBadMove, len(f))
	}
	x, err := coord(f[0])
	if err != nil {
		return checkers.Move{}, err
	}
	y, err := coord(f[1])
	if err != nil {
		return checkers.Move{}, err
	}
	var xDir, yDir checkers.Direction
	switch f[2] {
	case "left", "l":
		xDir = checkers.Positive
	case "right", "r":
		xDir = checkers.Negative
	default:
		return checkers.Move{}, fmt.Errorf("%w: %q is not left or right", ErrBadMove, f[2])
	}
	switch f[3] {
	case "up", "u":
		yDir = checkers.Positive
	case "down", "d":
		yDir = checkers.Negative
	default:
		return checkers.Move{}, fmt.Errorf("%w: %q is not up or down", ErrBadMove, f[3])
	}
	return checkers.NewMove(x-1, y-1, xDir, yDir), nil
}

func coord(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > checkers.Size {
		return 0, fmt.Errorf("%w: %q is not 1-8", ErrBadMove, s)
	}
	return n, nil
}
