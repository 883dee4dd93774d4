package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/arsdkgo/arsdkctrl/pkg/cli"
)

var getQuery string

var getCmd = &cobra.Command{
	Use:   "get [path]",
	Short: "Filter a device or stats JSON blob with a jq-style query",
	Long: `Reads a JSON blob — a device record or stats event saved to a file —
from path, or from stdin if path is omitted or "-", and prints it through
an optional --query jq expression.

Examples:
  arsdkctl get device.json --query '.device_type'
  cat devices.json | arsdkctl get - --query '.[] | .name'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = os.Stdin
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		var blob any
		if err := json.NewDecoder(r).Decode(&blob); err != nil {
			return fmt.Errorf("decode input: %w", err)
		}

		if getQuery == "" {
			return cli.Output(blob, cli.OutputOptions{Format: cli.FormatJSON})
		}

		query, err := gojq.Parse(getQuery)
		if err != nil {
			return fmt.Errorf("invalid jq expression %q: %w", getQuery, err)
		}

		iter := query.Run(blob)
		for {
			v, ok := iter.Next()
			if !ok {
				return nil
			}
			if err, ok := v.(error); ok {
				return fmt.Errorf("jq error: %w", err)
			}
			if err := cli.Output(v, cli.OutputOptions{Format: cli.FormatJSON}); err != nil {
				return err
			}
		}
	},
}

func init() {
	getCmd.Flags().StringVar(&getQuery, "query", "", "jq-style filter expression over the input JSON blob")
	rootCmd.AddCommand(getCmd)
}
