package main

import (
	"fmt"
	"sync/atomic"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/tokmz/qibot/internal/app"
	"github.com/tokmz/qibot/pkg/config"
)

// version 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

type rootOptions struct {
	configFile string
}

func (o *rootOptions) loader(opts ...config.Option) *config.Config {
	if o.configFile != "" {
		opts = append(opts, config.WithConfigFile(o.configFile))
	}
	return config.New(opts...)
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "qibot",
		Short:         "OneBot 正向 websocket 机器人",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&o.configFile, "config", "c", "", "配置文件路径，默认在 . 和 ./configs 下查找 qibot.{yaml,json,toml}")

	cmd.AddCommand(newRunCmd(o), newConfigCmd(o), newPluginsCmd(o), newVersionCmd())
	return cmd
}

func newRunCmd(o *rootOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "连接 OneBot 实现并运行",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var current atomic.Pointer[app.App]
			loader := o.loader(
				config.WithAutoWatch(watch),
				config.WithOnChange(func(s *config.Settings) {
					if a := current.Load(); a != nil {
						a.Reload(s)
					}
				}),
			)
			defer loader.Close()

			settings, err := loader.Load()
			if err != nil {
				return err
			}
			a, err := app.New(settings, app.WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			current.Store(a)
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "监听配置文件变化并热更新日志级别")
	return cmd
}

func newConfigCmd(o *rootOptions) *cobra.Command {
	var validate bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "输出合并默认值、文件和环境变量后的配置",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader := o.loader()
			defer loader.Close()
			settings, err := loader.Load()
			if err != nil {
				return err
			}
			if validate {
				if err := settings.Validate(); err != nil {
					return err
				}
			}
			out, err := yaml.Marshal(settings)
			if err != nil {
				return err
			}
			if file := loader.File(); file != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", file)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "同时校验配置")
	return cmd
}

func newPluginsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "列出内置插件及启用状态",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader := o.loader()
			defer loader.Close()
			settings, err := loader.Load()
			if err != nil {
				return err
			}
			for _, name := range app.Builtin {
				state := "enabled"
				if !settings.PluginEnabled(name) {
					state = "disabled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", name, state)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "输出版本",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "qibot", version)
		},
	}
}
