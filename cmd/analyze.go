package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/txpull/flowcore/cfg"
	"github.com/txpull/flowcore/lifter"
)

var dotOut string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <bytecode-file>",
	Short: "Build the control-flow graph for an EVM bytecode file and print its structure",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&dotOut, "dot", "", "write a Graphviz DOT rendering of the graph to this path")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading bytecode file: %w", err)
	}

	bytecode, err := hex.DecodeString(strings.TrimSpace(strings.TrimPrefix(string(raw), "0x")))
	if err != nil {
		return fmt.Errorf("decoding bytecode hex: %w", err)
	}

	body, err := lifter.Lift(context.Background(), bytecode)
	if err != nil {
		return fmt.Errorf("lifting bytecode: %w", err)
	}

	g, err := cfg.Build(body)
	if err != nil {
		return fmt.Errorf("building control-flow graph: %w", err)
	}

	g.ComputeDominatorTree()
	g.ComputeDominanceFrontiers()
	g.IdentifyLoops()

	fmt.Printf("blocks: %d\n", len(g.Nodes()))
	fmt.Printf("reducible: %t\n", g.IsReducible())
	fmt.Printf("natural loops: %d\n", len(g.Loops))
	for _, loop := range g.Loops {
		fmt.Printf("  header=%s body_size=%d\n", nodeLabel(loop.Header), len(loop.Body))
	}

	if dotOut != "" {
		if err := os.WriteFile(dotOut, []byte(g.DOTString()), 0o644); err != nil {
			return fmt.Errorf("writing dot file: %w", err)
		}
	}

	return nil
}

func nodeLabel(n *cfg.Node) string {
	if len(n.Instructions) == 0 {
		return fmt.Sprintf("block%d", n.ID)
	}
	return n.Instructions[0].Label
}
