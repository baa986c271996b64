package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "KGSLTRACE"

// Default size of the command buffers the 2-D driver hands back in
// ISSUEIBCMDS.
const DefaultWorkingBufferSize = 0x5000

type Config struct {
	DumpDir           string
	PersistBuffers    bool
	WorkingBufferSize uint32
	Debug             bool
	Pid               int
	ConfigFile        string
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("dump_dir", ".")
	v.SetDefault("persist_buffers", true)
	v.SetDefault("working_buffer_size", DefaultWorkingBufferSize)
	v.SetDefault("debug", false)
	v.SetDefault("pid", 0)
}

// New returns a viper instance reading KGSLTRACE_* variables on top of
// the defaults.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig resolves the settings from v, reading the optional config
// file first.
func LoadConfig(v *viper.Viper) (*Config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	size := v.GetUint32("working_buffer_size")
	if size == 0 {
		return nil, errors.New("working_buffer_size must be non-zero")
	}
	pid := v.GetInt("pid")
	if pid < 0 {
		return nil, fmt.Errorf("invalid pid %d", pid)
	}

	return &Config{
		DumpDir:           v.GetString("dump_dir"),
		PersistBuffers:    v.GetBool("persist_buffers"),
		WorkingBufferSize: size,
		Debug:             v.GetBool("debug"),
		Pid:               pid,
		ConfigFile:        v.GetString("config"),
	}, nil
}
