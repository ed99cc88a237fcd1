// Package cli provides the command-line interface for mtgmeta.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/law-makers/mtgmeta/internal/app"
	"github.com/law-makers/mtgmeta/pkg/models"
	"github.com/spf13/cobra"
)

// ctxKey is used for storing the application in a command's context
type ctxKey string

const appKey ctxKey = "app"

// SetApp stores the Application in the command's context
func SetApp(cmd *cobra.Command, a *app.Application) {
	if cmd == nil {
		return
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appKey, a))
}

// GetAppFromCmd retrieves the Application from the command's context
func GetAppFromCmd(cmd *cobra.Command) *app.Application {
	if cmd == nil || cmd.Context() == nil {
		return nil
	}
	a, _ := cmd.Context().Value(appKey).(*app.Application)
	return a
}

// formatArg parses a positional format argument
func formatArg(s string) (models.Format, error) {
	f, err := models.ParseFormat(s)
	if err != nil {
		return "", fmt.Errorf("%w\n\nSee 'mtgmeta --help' for usage", err)
	}
	return f, nil
}

// printJSON writes v to w as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
