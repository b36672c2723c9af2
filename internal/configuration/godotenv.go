package configuration

import (
	"fmt"

	"github.com/joho/godotenv"
)

// GodotenvProvider is an implementation wrapping the Godotenv framework.
type GodotenvProvider struct{}

// Read reads .env-style configuration files into a map (map[key]value). Keys
// of later files do not override keys of earlier ones.
func (*GodotenvProvider) Read(filenames ...string) (map[string]string, error) {
	data, err := godotenv.Read(filenames...)
	if err != nil {
		return nil, fmt.Errorf("(config-godotenv) %w", err)
	}

	return data, nil
}
