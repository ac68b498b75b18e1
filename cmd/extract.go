package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	extractURL      string
	extractFormat   string
	extractNoVisual bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a recipe from a single post URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(extractFormat)
		if format != "json" && format != "yaml" {
			return eris.Errorf("unsupported format %q (want json or yaml)", extractFormat)
		}
		if extractNoVisual {
			cfg.Visual.Enabled = false
		}

		env, err := initExtract(cmd.Context(), cfg, "extract")
		if err != nil {
			return err
		}

		result, err := env.Pipeline().Extract(cmd.Context(), extractURL)
		if err != nil {
			zap.L().Error("extraction failed", zap.String("url", extractURL), zap.Error(err))
			return err
		}

		return writeOutput(cmd.OutOrStdout(), result, format)
	},
}

// writeOutput renders v as indented JSON or as YAML. YAML keeps the JSON
// field names and order by decoding the JSON into a yaml.Node first.
func writeOutput(w io.Writer, v any, format string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal result")
	}

	if format != "yaml" {
		_, err = w.Write(append(data, '\n'))
		return eris.Wrap(err, "write result")
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return eris.Wrap(err, "convert result to yaml")
	}
	clearStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return eris.Wrap(err, "write yaml result")
	}
	return enc.Close()
}

// clearStyle drops the flow style and quoting inherited from the JSON
// source so the output reads as block YAML.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

func init() {
	extractCmd.Flags().StringVar(&extractURL, "url", "", "post URL to extract (required)")
	extractCmd.Flags().StringVar(&extractFormat, "format", "json", "output format: json or yaml")
	extractCmd.Flags().BoolVar(&extractNoVisual, "no-visual", false, "disable the visual fallback")
	_ = extractCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(extractCmd)
}
