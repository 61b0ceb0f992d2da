package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/renderstack/maestro/pkg/models"
)

// terminalConfirmer prompts on stdin before each job in interactive mode.
// With autoApprove set every job proceeds without prompting.
type terminalConfirmer struct {
	autoApprove bool
	reader      *bufio.Reader
}

func newTerminalConfirmer(autoApprove bool) *terminalConfirmer {
	return &terminalConfirmer{
		autoApprove: autoApprove,
		reader:      bufio.NewReader(os.Stdin),
	}
}

func (t *terminalConfirmer) Confirm(ctx context.Context, m *models.JobManifest) (bool, error) {
	if t.autoApprove {
		return true, nil
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(os.Stderr, "Execute job %s (%s/%s)? [y/N] ", m.ID, m.Engine, m.Type)

	line, err := t.reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(line))

	return answer == "y" || answer == "yes", nil
}
