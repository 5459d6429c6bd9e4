package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/grognard-labs/aslcat/internal/search"
)

// Terminal highlight markers. Asterisks survive plain pipes and logs, which
// HTML spans would not.
const termMark = "*"

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog from the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		query := strings.Join(args, " ")
		expr := search.MakeQueryString(query, a.aliases)
		hits, err := a.index.Search(cmd.Context(), expr, a.weights, search.SearchOptions{
			BeginMark: termMark,
			EndMark:   termMark,
		})
		if err != nil {
			var qerr *search.QueryError
			if errors.As(err, &qerr) {
				return fmt.Errorf("invalid query: %s", qerr.Msg)
			}
			return err
		}

		results, err := a.formatter.Format(cmd.Context(), hits, termMark)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			cmd.Println("no results")
			return nil
		}

		width := termWidth()
		for _, rec := range results {
			cmd.Println(formatResultLine(rec, width))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

// termWidth returns the terminal width, or a conventional 80 when stdout is
// not a terminal.
func termWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		return w
	}
	return 80
}

// formatResultLine renders one result as "type  name - detail", truncated to
// the terminal width.
func formatResultLine(rec map[string]any, width int) string {
	typ, _ := rec["type"].(string)

	var name, detail string
	switch typ {
	case "publisher":
		name = stringVal(rec, "publ_name")
		detail = stringVal(rec, "publ_description")
	case "publication":
		name = stringVal(rec, "pub_name")
		detail = stringVal(rec, "pub_description")
	default:
		name = stringVal(rec, "article_title")
		detail = stringVal(rec, "article_snippet")
	}

	name = strings.Join(strings.Fields(name), " ")
	detail = strings.Join(strings.Fields(detail), " ")
	line := fmt.Sprintf("%-12s %s", typ, name)
	if detail != "" {
		line += " - " + detail
	}
	return truncate(line, width)
}

// stringVal prefers the highlighted sibling of a key when present.
func stringVal(rec map[string]any, key string) string {
	if s, ok := rec[key+"!"].(string); ok {
		return s
	}
	s, _ := rec[key].(string)
	return s
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
