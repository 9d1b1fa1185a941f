// Package commands implements the fafquery subcommands.
package commands

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/leapstack-labs/fafquery/internal/cli/config"
	"github.com/leapstack-labs/fafquery/internal/cli/output"
	"github.com/leapstack-labs/fafquery/pkg/faf"
	"github.com/leapstack-labs/fafquery/pkg/query"
)

// openSession builds a session and renderer from the command context. The
// caller closes the session.
func openSession(cmd *cobra.Command) (*faf.Session, *output.Renderer) {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	opts := cfg.Options()
	opts.Logger = config.GetLogger(ctx)
	return faf.Open(opts), newRenderer(cmd)
}

func newRenderer(cmd *cobra.Command) *output.Renderer {
	cfg := config.GetConfig(cmd.Context())
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))
}

var numberPrinter = message.NewPrinter(language.English)

// formatNumber renders v with thousands separators and up to two decimals.
// NaN renders as "n/a".
func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return numberPrinter.Sprintf("%d", int64(v))
	}
	return numberPrinter.Sprintf("%.2f", v)
}

// jsonNumber maps NaN to nil so the value encodes as null.
func jsonNumber(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// keyValues renders ordered key/value pairs as a bullet list, or as a single
// JSON object.
func keyValues(r *output.Renderer, title string, keys []string, values map[string]any) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(values)
	}
	if r.EffectiveMode() == output.ModeCSV {
		rows := make([][]string, len(keys))
		for i, k := range keys {
			rows[i] = []string{k, displayValue(values[k])}
		}
		return r.Table([]string{"field", "value"}, rows)
	}
	r.Header(2, title)
	for _, k := range keys {
		r.Println(output.FormatKeyValue(k, displayValue(values[k])))
	}
	return nil
}

func displayValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "n/a"
	case float64:
		return formatNumber(x)
	case int:
		return formatNumber(float64(x))
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// parseYearRange parses "2020:2030" or "2020-2030".
func parseYearRange(s string) (int, int, error) {
	for i := 1; i < len(s); i++ {
		if s[i] == ':' || s[i] == '-' {
			start, err1 := strconv.Atoi(s[:i])
			end, err2 := strconv.Atoi(s[i+1:])
			if err1 != nil || err2 != nil {
				break
			}
			return start, end, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: invalid year range %q; use START:END", query.ErrInvalidArgument, s)
}
