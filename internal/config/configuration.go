package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Location struct {
	LocationName   string `json:"location_name" mapstructure:"location_name"`
	LocationType   string `json:"location_type" mapstructure:"location_type"`
	Path           string `json:"path,omitempty" mapstructure:"path"`
	MinioBucket    string `json:"minio_bucket,omitempty" mapstructure:"minio_bucket"`
	Location       string `json:"location,omitempty" mapstructure:"location"`
	MinioAccessKey string `json:"-" mapstructure:"minio_access_key"`
	MinioSecretKey string `json:"-" mapstructure:"minio_secret_key"`
	MinioUseSSL    bool   `json:"minio_use_ssl,omitempty" mapstructure:"minio_use_ssl"`
}

// Configuration is the layout of the location file.
type Configuration struct {
	LocationDetails []Location `mapstructure:"location_details"`
}

// LoadLocations reads the location file at path. The format (yaml or json)
// follows the file extension.
func LoadLocations(path string) ([]Location, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return configuration.LocationDetails, nil
}
