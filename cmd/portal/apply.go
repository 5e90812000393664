package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"gopkg.in/yaml.v3"

	"vectorportal/internal/domain"
	"vectorportal/internal/usecase/wizard"
)

// runApply drives a wizard session from an answers file.
func runApply(args []string) error {
	path, ok := flagValue(args, "-f", "--file")
	if !ok {
		return errors.New("usage: portal apply -f answers.yaml [--yes]")
	}
	answers, err := loadAnswers(path)
	if err != nil {
		return err
	}
	flow, ok := wizard.ParseFlow(answers.Flow)
	if !ok {
		return fmt.Errorf("%w: answers flow %q (want credential or vector_store)", domain.ErrInvalidInput, answers.Flow)
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := bootstrap(ctx, args, "portal-apply", false)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.gatewayClient(ctx)
	if err != nil {
		return err
	}

	d := wizard.NewDriver(flow, wizard.NewRunner(client, a.log, wizard.WithEffectTimeout(a.cfg.Gateway.Timeout)), a.log)
	yes := hasFlag(args, "-y", "--yes")
	confirm := func(s wizard.Session) bool {
		printReview(os.Stdout, s)
		if yes {
			return true
		}
		return askYes(os.Stdin, os.Stdout, fmt.Sprintf("Create this %s? [y/N] ", strings.ToLower(flow.Subject())))
	}

	s, err := wizard.Apply(ctx, d, answers, confirm)
	if err != nil {
		return err
	}
	if s.Cancelled {
		fmt.Println("Cancelled.")
		return nil
	}
	msg := s.Notice
	if msg == "" {
		msg = flow.Subject() + " created"
	}
	fmt.Printf("%s (id %s)\n", msg, s.CreatedID)
	return nil
}

// loadAnswers reads an answers file. Unknown keys are rejected so typos do
// not silently drop values.
func loadAnswers(path string) (wizard.Answers, error) {
	var a wizard.Answers
	data, err := os.ReadFile(path)
	if err != nil {
		return a, fmt.Errorf("read answers: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil {
		return a, fmt.Errorf("%w: parse answers: %v", domain.ErrInvalidInput, err)
	}
	return a, nil
}

// printReview shows the masked summary of s.
func printReview(w io.Writer, s wizard.Session) {
	doc := wizard.ReviewMarkdown(s)
	if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100)); err == nil {
		if out, err := r.Render(doc); err == nil {
			doc = out
		}
	}
	fmt.Fprintln(w, doc)
}

func askYes(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
