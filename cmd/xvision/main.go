package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiaoshicae/xvision/xconfig"
)

// version 构建时通过 -ldflags 注入
var version = "dev"

var configLocation string

var rootCmd = &cobra.Command{
	Use:   "xvision",
	Short: "MAA 风格的视觉自动化流水线引擎",
	Long:  "xvision 截屏识别模板与颜色，按流水线驱动鼠标键盘，\n提供 HTTP 控制面、流水线测试与压力测试。",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		if configLocation != "" {
			xconfig.SetConfigLocation(configLocation)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configLocation, "config", "c", "", "配置文件路径，默认按 ./application.yml、./conf/application.yml 顺序查找")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stressCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
