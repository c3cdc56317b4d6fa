package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaoshicae/xvision/pipeline"
)

var validateEntry string

var validateCmd = &cobra.Command{
	Use:   "validate <pipeline-file>",
	Short: "解析并校验流水线文件，不触发任何动作",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateEntry, "entry", "e", "", "额外校验入口节点是否存在")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := pipeline.LoadFile(args[0])
	if err != nil {
		return err
	}
	if err := pipeline.Validate(cfg, validateEntry); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d nodes, entries [%s]\n", args[0], len(cfg.Nodes), strings.Join(cfg.Entries(), ", "))
	if d := cfg.Description(); d != "" {
		fmt.Fprintf(out, "  %s\n", d)
	}
	return nil
}
