// =============================================================================
// csv2notion - Parse Command
// =============================================================================
//
// This file defines the 'parse' command, which runs the CSV parser locally
// and prints what an import would read. Nothing is sent to Notion.
//
// COMMAND USAGE:
//   csv2notion parse [files or directories...] [--mapped] [--profile name]
//
// OUTPUT:
//   One YAML document per file:
//     name: findings
//     file: reports/findings.csv
//     headers: [name, visibility, ...]
//     records:
//       - name: ft_transfer
//         visibility: public
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/csv2notion/internal/config"
	"github.com/ginjaninja78/csv2notion/internal/csvparser"
	"github.com/ginjaninja78/csv2notion/internal/importer"
	"github.com/ginjaninja78/csv2notion/pkg/utils"
)

// showMapped prints property values instead of raw fields.
var showMapped bool

// parseProfile forces the profile used with --mapped.
var parseProfile string

var parseCmd = &cobra.Command{
	Use:   "parse [files or directories...]",
	Short: "Print the records parsed from CSV files as YAML",
	Long: `The parse command reads CSV files exactly as the import command does
and prints the header list and every record as YAML.

With --mapped, each record is shown as the database properties the import
would write, using the profile selected for the file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&showMapped, "mapped", false,
		"Show the mapped property values instead of the raw fields")
	parseCmd.Flags().StringVar(&parseProfile, "profile", "",
		"Profile used with --mapped (default: selected by file name)")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := utils.DiscoverInputFiles(args)
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent(2)
	defer encoder.Close()

	for _, file := range files {
		data, err := csvparser.Parse(file, csvparser.Settings{Encoding: cfg.Encoding})
		if err != nil {
			return err
		}

		doc := mappingNode()
		addScalar(doc, "name", data.Name)
		addScalar(doc, "file", data.SourceFile)
		addSequence(doc, "headers", data.Headers)

		if showMapped {
			profile, err := selectParseProfile(cfg, file)
			if err != nil {
				return err
			}
			addScalar(doc, "profile", profile.Name)
			columns := importer.PropertyNames(profile)
			records := sequenceNode()
			for _, record := range data.Records {
				mapped := importer.MapRecord(profile, record)
				records.Content = append(records.Content, orderedMap(columns, mapped.Values))
			}
			addNode(doc, "records", records)
		} else {
			records := sequenceNode()
			for _, record := range data.Records {
				records.Content = append(records.Content, orderedMap(data.Headers, record))
			}
			addNode(doc, "records", records)
		}

		if err := encoder.Encode(doc); err != nil {
			return fmt.Errorf("failed to print %s: %w", file, err)
		}
	}

	return nil
}

func selectParseProfile(cfg *config.MainConfig, file string) (*config.TableProfile, error) {
	if parseProfile != "" {
		return cfg.Profile(parseProfile)
	}
	return cfg.MatchProfile(file)
}

// =============================================================================
// YAML NODE HELPERS
// =============================================================================
// yaml.v3 sorts map keys; nodes keep the column order of the file.

func mappingNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode}
}

func sequenceNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode}
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func addNode(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalarNode(key), value)
}

func addScalar(m *yaml.Node, key, value string) {
	addNode(m, key, scalarNode(value))
}

func addSequence(m *yaml.Node, key string, values []string) {
	seq := sequenceNode()
	seq.Style = yaml.FlowStyle
	for _, value := range values {
		seq.Content = append(seq.Content, scalarNode(value))
	}
	addNode(m, key, seq)
}

// orderedMap renders the keys present in values, in the given order.
// A repeated key is shown once.
func orderedMap(keys []string, values map[string]string) *yaml.Node {
	m := mappingNode()
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		value, ok := values[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		addScalar(m, key, value)
	}
	return m
}
