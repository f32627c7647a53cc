package config

import (
	stderrors "errors"
	"io/fs"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spf13/viper"
)

// Config 配置加载器
// 合并顺序：默认值 < 配置文件 < 环境变量（QIBOT_BOT_URL 对应 bot.url）
type Config struct {
	viper *viper.Viper
	mu    sync.RWMutex

	configFile  string
	configName  string
	configPaths []string
	envPrefix   string

	autoWatch bool
	watching  bool
	onChange  func(*Settings)
	onError   func(error)

	current atomic.Pointer[Settings]
}

// New 创建配置加载器
func New(opts ...Option) *Config {
	c := &Config{
		viper:       viper.New(),
		configName:  "qibot",
		configPaths: []string{".", "./configs"},
		envPrefix:   "QIBOT",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load 读取并解析配置
// 显式指定的文件不存在时返回 ErrConfigNotFound，按名称搜索不到时仅使用默认值和环境变量
func (c *Config) Load() (*Settings, error) {
	c.mu.Lock()

	for k, v := range Defaults() {
		c.viper.SetDefault(k, v)
	}
	c.viper.SetEnvPrefix(c.envPrefix)
	c.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.viper.AutomaticEnv()

	if c.configFile != "" {
		c.viper.SetConfigFile(c.configFile)
	} else {
		c.viper.SetConfigName(c.configName)
		for _, path := range c.configPaths {
			c.viper.AddConfigPath(path)
		}
	}

	if err := c.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := stderrors.As(err, &notFound) || stderrors.Is(err, fs.ErrNotExist)
		switch {
		case missing && c.configFile == "":
			// 搜索模式下允许没有配置文件
		case missing:
			c.mu.Unlock()
			return nil, ErrConfigNotFound.WithError(err)
		default:
			c.mu.Unlock()
			return nil, ErrConfigReadFailed.WithError(err)
		}
	}

	s, err := c.decode()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.current.Store(s)

	if c.autoWatch && c.viper.ConfigFileUsed() != "" {
		c.startWatch()
	}
	c.mu.Unlock()

	return s, nil
}

// decode 调用方持有 mu
func (c *Config) decode() (*Settings, error) {
	var s Settings
	if err := c.viper.Unmarshal(&s); err != nil {
		return nil, ErrConfigReadFailed.WithError(err)
	}
	return &s, nil
}

// Settings 返回最近一次成功解析的配置，未加载时为 nil
func (c *Config) Settings() *Settings {
	return c.current.Load()
}

// File 实际使用的配置文件路径
func (c *Config) File() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.ConfigFileUsed()
}

// Get 泛型获取配置值，类型不符时返回零值
func Get[T any](c *Config, key string) T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.viper.Get(key).(T); ok {
		return v
	}
	var zero T
	return zero
}

// GetString 获取字符串配置值
func (c *Config) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetString(key)
}

// Set 覆盖配置值，之后的 Settings 需重新 Reload
func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viper.Set(key, value)
}

// Reload 按当前 viper 状态重新解析
func (c *Config) Reload() (*Settings, error) {
	c.mu.RLock()
	s, err := c.decode()
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	c.current.Store(s)
	return s, nil
}

// AllSettings 获取所有配置
func (c *Config) AllSettings() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.AllSettings()
}

// Close 停止监控
func (c *Config) Close() {
	c.StopWatch()
}
