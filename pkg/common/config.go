// Copyright © 2024 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"laptudirm.com/x/schach/pkg/engine"
	"laptudirm.com/x/schach/pkg/games"
)

type Config struct {
	Rules  string        `yaml:"rules"`
	Engine engine.Config `yaml:"engine"`

	Budgets struct {
		White engine.Budget `yaml:"white"`
		Black engine.Budget `yaml:"black"`
	} `yaml:"budgets"`

	GamesFile string `yaml:"games-file"`
	Book      string `yaml:"book"`
	BookOrder string `yaml:"book-order"`

	Listen string `yaml:"listen"`
}

// Budget returns the configured search limits of side.
func (config *Config) Budget(side games.Color) engine.Budget {
	if side == games.White {
		return config.Budgets.White
	}

	return config.Budgets.Black
}

// LoadConfig reads the configuration file at path on top of the built in
// defaults. A missing file is not an error. Variables from the given
// dotenv files (.env if none are given) are loaded into the environment,
// and SCHACH_RULES, SCHACH_ENGINE and SCHACH_LISTEN override the file.
func LoadConfig(path string, envFiles ...string) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(BaseConfigFile, &config); err != nil {
		return nil, err
	}

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &config); err != nil {
			return nil, err
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if rules := os.Getenv("SCHACH_RULES"); rules != "" {
		config.Rules = rules
	}

	if cmd := os.Getenv("SCHACH_ENGINE"); cmd != "" {
		config.Engine.Cmd = cmd
		config.Engine.Name = ""
	}

	if listen := os.Getenv("SCHACH_LISTEN"); listen != "" {
		config.Listen = listen
	}

	if config.GamesFile == "" {
		config.GamesFile = GamesFile
	}

	return &config, nil
}
