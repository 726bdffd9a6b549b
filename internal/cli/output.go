package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/pending"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a sync pass stopped before the queue was empty
	ExitCommandError = 2 // bad flags, config or local store
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Plain errors map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeQueue(w io.Writer, format string, sales []pending.QueuedSale) error {
	if format == "json" {
		if sales == nil {
			sales = []pending.QueuedSale{}
		}
		return writeJSON(w, sales)
	}
	if len(sales) == 0 {
		_, err := fmt.Fprintln(w, "no pending sales")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPOS\tTENANT\tITEMS\tTOTAL\tCREATED")
	for _, s := range sales {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\n",
			s.ID, s.PosNumber, s.TenantID, len(s.Items), s.Total.StringFixed(2), s.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}
