package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiaoshicae/xvision/agent"
	"github.com/xiaoshicae/xvision/xserver"
)

var runFlags struct {
	entry       string
	resourceDir string
	launch      bool
}

var runCmd = &cobra.Command{
	Use:   "run <pipeline-file>",
	Short: "运行流水线文件并输出执行轨迹",
	Args:  cobra.ExactArgs(1),
	RunE:  runPipeline,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.entry, "entry", "e", "", "入口节点 (required)")
	f.StringVar(&runFlags.resourceDir, "resource-dir", "", "模板资源目录，默认取 $resource_base 或文件所在目录")
	f.BoolVar(&runFlags.launch, "launch", false, "运行前启动目标应用")

	_ = runCmd.MarkFlagRequired("entry")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	return xserver.RunJob(func(ctx context.Context) error {
		a, err := agent.NewFromConfig(ctx)
		if err != nil {
			return err
		}
		res, err := a.RunPipelineTest(ctx, agent.TestRequest{
			Path:        args[0],
			Entry:       runFlags.entry,
			LaunchApp:   runFlags.launch,
			ResourceDir: runFlags.resourceDir,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		r := res.PipelineResult
		fmt.Fprintf(out, "Pipeline: %s\n", res.PipelinePath)
		fmt.Fprintf(out, "Resource: %s\n", res.ResourceDir)
		fmt.Fprintf(out, "Run:      %s (%dms)\n", r.RunID, r.CostMs)
		fmt.Fprintln(out, nodesTable(r.ExecutedNodes))
		for _, l := range r.Logs {
			fmt.Fprintf(out, "  %s\n", l)
		}
		if !res.Success {
			if r.Error != nil {
				return fmt.Errorf("pipeline failed: %s %s", r.Error.Kind, r.Error.Message)
			}
			return fmt.Errorf("pipeline failed at node [%s]", r.LastNode)
		}
		fmt.Fprintln(out, "OK")
		return nil
	})
}
