// Copyright 2025 Joseph Cumines
//
// Line-oriented console transport

package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
)

// DefaultPrompt is written before each console line is read.
const DefaultPrompt = "> "

// MaxLineLength bounds one console line, in bytes. Longer lines are
// reported and discarded; reading continues.
const MaxLineLength = 1 << 20

// Console reads one command line at a time from an interactive reader and
// writes whatever the handler returns. Empty lines are ignored.
type Console struct {
	reader *bufio.Reader
	out    io.Writer
	mu      sync.Mutex
	// Prompt is written before each read. Empty disables prompting.
	Prompt string
}

// NewConsole creates a console over in and out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		reader: bufio.NewReader(in),
		out:    out,
		Prompt: DefaultPrompt,
	}
}

// Println writes one line to the console output. It is safe to call
// concurrently with Serve.
func (c *Console) Println(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.out, s)
	return err
}

func (c *Console) prompt() error {
	if c.Prompt == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.out, c.Prompt)
	return err
}

// Serve loops until in is exhausted. handle receives each non-empty,
// trimmed line; a non-empty return value is written back as one line.
func (c *Console) Serve(handle func(line string) string) error {
	for {
		if err := c.prompt(); err != nil {
			return fmt.Errorf("failed to write prompt: %w", err)
		}
		raw, tooLong, err := c.readLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read line: %w", err)
		}
		if tooLong {
			if err := c.Println(fmt.Sprintf("Error: line longer than %d bytes ignored", MaxLineLength)); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			continue
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if out := handle(line); out != "" {
			if err := c.Println(out); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}
}

// readLine returns the next line. tooLong reports a line over
// MaxLineLength, whose content is dropped. io.EOF is only returned once no
// partial line remains.
func (c *Console) readLine() (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, err := c.reader.ReadSlice('\n')
		if !tooLong {
			// the limit excludes the terminator
			if len(buf)+len(bytes.TrimSuffix(chunk, []byte("\n"))) > MaxLineLength {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF && (len(buf) > 0 || tooLong):
			return string(buf), tooLong, nil
		case err != nil:
			return "", false, err
		}
		return string(buf), tooLong, nil
	}
}
