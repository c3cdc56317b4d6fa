package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiaoshicae/xvision/agent"
	"github.com/xiaoshicae/xvision/xserver"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "列出目录下的流水线测试文件",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}
	return xserver.RunJob(func(ctx context.Context) error {
		a, err := agent.NewFromConfig(ctx)
		if err != nil {
			return err
		}
		files := a.ScanPipelineTests(ctx, dir)
		out := cmd.OutOrStdout()
		if len(files) == 0 {
			fmt.Fprintln(out, "No pipeline files found")
			return nil
		}
		fmt.Fprintln(out, filesTable(files))
		return nil
	})
}
