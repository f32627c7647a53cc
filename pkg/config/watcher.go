package config

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
)

// startWatch 调用方持有 mu
func (c *Config) startWatch() {
	c.viper.OnConfigChange(func(e fsnotify.Event) {
		c.mu.RLock()
		watching := c.watching
		onChange := c.onChange
		c.mu.RUnlock()

		if !watching {
			return
		}

		// viper 已在回调前重新读取文件
		s, err := c.Reload()
		if err != nil {
			c.reportError(fmt.Errorf("重新加载配置失败(%s): %w", e.Name, err))
			return
		}
		if onChange != nil {
			onChange(s)
		}
	})
	c.viper.WatchConfig()
	c.watching = true
}

// StartWatch 开始监控配置文件变更，重复调用无副作用
func (c *Config) StartWatch() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watching {
		return nil
	}
	if c.viper.ConfigFileUsed() == "" {
		return ErrConfigNotFound.WithMessage("没有可监控的配置文件")
	}
	c.startWatch()
	return nil
}

// StopWatch 停止监控
// viper 没有停止底层 fsnotify watcher 的方法，这里只让回调失效
func (c *Config) StopWatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watching = false
}

// reportError 优先使用 onError 回调，否则输出到 stderr
func (c *Config) reportError(err error) {
	c.mu.RLock()
	onError := c.onError
	c.mu.RUnlock()

	if onError != nil {
		onError(err)
	} else {
		fmt.Fprintf(os.Stderr, "[config] %v\n", err)
	}
}
