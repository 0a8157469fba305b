package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

type outputFormat string

const (
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
	outputYAML  outputFormat = "yaml"

	flagOutput = "output"
)

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP(flagOutput, "o", string(outputTable), "output format: table, json or yaml")
}

func outputFlag(cmd *cobra.Command) (outputFormat, error) {
	value, err := cmd.Flags().GetString(flagOutput)
	if err != nil {
		return "", fmt.Errorf("failed to get output flag: %w", err)
	}
	switch f := outputFormat(value); f {
	case outputTable, outputJSON, outputYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format: %q", value)
	}
}

// tabular is implemented by listings that can render as a table.
type tabular interface {
	header() table.Row
	rows() []table.Row
}

// render writes v in the requested format.
func render(w io.Writer, format outputFormat, v tabular) error {
	switch format {
	case outputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding output as json failed: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case outputYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding output as yaml failed: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(v.header())
		t.AppendRows(v.rows())
		style := table.StyleLight
		style.Options.DrawBorder = false
		t.SetStyle(style)
		t.Render()
		return nil
	}
}
