package app

import (
	"fmt"
	"sort"

	"github.com/joho/godotenv"
)

// readEnvFile returns the file's variables as sorted KEY=VALUE entries.
func readEnvFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env, nil
}
