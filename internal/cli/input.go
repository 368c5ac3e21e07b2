// Package cli handles cmd line input and prints suggestions for DBG and testing the catalog setup.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bastiangx/suggestserve/pkg/suggest"
	"github.com/charmbracelet/log"
)

// InputHandler reads terms line by line and prints what the suggester
// returns for each of them.
type InputHandler struct {
	suggester    suggest.ISuggester
	in           io.Reader
	out          io.Writer
	timeout      time.Duration
	requestCount int
}

// NewInputHandler creates an InputHandler reading from in and printing to out.
// timeout bounds each lookup; zero means no deadline.
func NewInputHandler(suggester suggest.ISuggester, in io.Reader, out io.Writer, timeout time.Duration) *InputHandler {
	return &InputHandler{
		suggester: suggester,
		in:        in,
		out:       out,
		timeout:   timeout,
	}
}

// Start begins the interface loop. It returns nil at end of input and
// when ctx is done.
func (h *InputHandler) Start(ctx context.Context) error {
	fmt.Fprintln(h.out, "SuggestServe CLI")
	fmt.Fprintln(h.out, "type a search term and press Enter (Ctrl+D to exit):")

	scanner := bufio.NewScanner(h.in)
	for {
		fmt.Fprint(h.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(h.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		term := strings.TrimSpace(scanner.Text())
		if term == "" {
			continue
		}
		if err := h.Query(ctx, term); err != nil {
			log.Errorf("Lookup failed for '%s': %v", term, err)
		}
	}
}

// Query runs a single lookup and prints the result.
func (h *InputHandler) Query(ctx context.Context, term string) error {
	h.requestCount++
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	list, err := h.suggester.Suggestions(ctx, term)
	if err != nil {
		return err
	}
	log.Debugf("Took [ %v ] for term '%s' (request #%d)", time.Since(start), term, h.requestCount)

	PrintSuggestions(h.out, term, list)
	return nil
}

// PrintSuggestions writes a numbered, human readable list.
func PrintSuggestions(w io.Writer, term string, list []suggest.Suggestion) {
	if len(list) == 0 {
		fmt.Fprintf(w, "No suggestions for '%s'\n", term)
		return
	}

	fmt.Fprintf(w, "Found %d suggestions for '%s':\n", len(list), term)
	for i, s := range list {
		buy := " "
		if s.Purchasable {
			buy = "+"
		}
		label := fmt.Sprintf("\033[38;5;75m%s\033[0m", s.Label)
		fmt.Fprintf(w, "%2d. %s %-40s %12s  %s\n", i+1, buy, label, s.Price, s.Link)
	}
}
