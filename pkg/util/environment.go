package util

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)
		if len(pair) != 2 {
			continue
		}

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

// EnvString returns the value of key or defaultValue when it is unset or empty
func EnvString(env map[string]string, key string, defaultValue string) string {
	if value := env[key]; value != "" {
		return value
	}

	return defaultValue
}

// EnvInt parses key as an integer, falling back to defaultValue when unset or unparseable
func EnvInt(env map[string]string, key string, defaultValue int) int {
	if value := env[key]; value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}

	return defaultValue
}

// EnvSeconds reads key as a whole number of seconds
func EnvSeconds(env map[string]string, key string, defaultSeconds int) time.Duration {
	return time.Duration(EnvInt(env, key, defaultSeconds)) * time.Second
}

// EnvList splits a comma separated value, dropping blanks
func EnvList(env map[string]string, key string, defaultValue []string) []string {
	value, exists := env[key]
	if !exists {
		return defaultValue
	}

	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}

	return list
}
