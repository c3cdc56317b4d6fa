package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiaoshicae/xvision/agent"
	"github.com/xiaoshicae/xvision/xserver"
)

var stressFlags struct {
	iterations int
	seed       int64
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "在画布区域内随机滑动，统计动作下发成功率",
	RunE:  runStress,
}

func init() {
	f := stressCmd.Flags()
	f.IntVarP(&stressFlags.iterations, "iterations", "n", 10, "迭代次数")
	f.Int64Var(&stressFlags.seed, "seed", 0, "随机种子，0 表示按当前时间")
}

func runStress(cmd *cobra.Command, _ []string) error {
	return xserver.RunJob(func(ctx context.Context) error {
		a, err := agent.NewFromConfig(ctx)
		if err != nil {
			return err
		}
		run, err := a.RunStressTest(ctx, stressFlags.iterations, stressFlags.seed)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, l := range run.Logs {
			fmt.Fprintln(out, l)
		}
		fmt.Fprintln(out, stressTable(run))
		return nil
	})
}
