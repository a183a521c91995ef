package boothconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// GoogleDriveConfig defines the configuration specific to Google Drive.
type GoogleDriveConfig struct {
	ClientId     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`

	FolderName string `mapstructure:"folder_name"`
}

func (c *GoogleDriveConfig) GetFolderName() string {
	if c.FolderName == "" {
		return "PhotoBooth"
	}
	return c.FolderName
}

// CameraConfig defines the webcam capture configuration.
type CameraConfig struct {
	Device string `mapstructure:"device"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

func (c *CameraConfig) GetDevice() string {
	if c.Device == "" {
		return "/dev/video0"
	}
	return c.Device
}

func (c *CameraConfig) GetFrameSize() (int, int) {
	w, h := c.Width, c.Height
	if w <= 0 {
		w = 1920
	}
	if h <= 0 {
		h = 1080
	}
	return w, h
}

// BoothConfig defines the configuration for the photo booth.
type BoothConfig struct {
	OutputDir        string   `mapstructure:"output_dir"`
	CountdownSeconds int      `mapstructure:"countdown_seconds"`
	Backgrounds      []string `mapstructure:"backgrounds"`
	RembgURL         string   `mapstructure:"rembg_url"`

	GoogleDrive GoogleDriveConfig `mapstructure:"google_drive"`
	Camera      CameraConfig      `mapstructure:"camera"`

	path string `mapstructure:"-"`
}

func (c *BoothConfig) GetOutputDir() string {
	if c.OutputDir == "" {
		return "final_images"
	}
	return c.OutputDir
}

func (c *BoothConfig) GetCountdownSeconds() int {
	if c.CountdownSeconds <= 0 {
		return 5
	}
	return c.CountdownSeconds
}

func (c *BoothConfig) GetBackgrounds() []string {
	return c.Backgrounds
}

// ConfigPath returns the path from which the config was loaded.
func (c *BoothConfig) ConfigPath() string {
	return c.path
}

// Validate checks the config for required fields and consistency.
func (c *BoothConfig) Validate() error {
	if c.GoogleDrive.ClientId == "" || c.GoogleDrive.ClientSecret == "" {
		return fmt.Errorf("google_drive.client_id and google_drive.client_secret must be set")
	}
	for _, bg := range c.Backgrounds {
		if strings.TrimSpace(bg) == "" {
			return fmt.Errorf("backgrounds list contains an empty path")
		}
	}
	return nil
}

// getConfigPath determines where to read the config file from.
func getConfigPath(configPathFlag string) (string, error) {
	// Prefer user-specified config file path if given.
	if configPathFlag != "" {
		return configPathFlag, nil
	}

	const defaultFilename = "config.toml"

	// Fall back to user config dir.
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "photobooth", defaultFilename), nil
	}

	// Fall back to home directory.
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, defaultFilename), nil
	}

	return "", fmt.Errorf("unable to determine config file path")
}

// LoadConfig reads the config file and applies PHOTOBOOTH_* environment
// variable overrides.
func LoadConfig(configPathFlag string) (BoothConfig, error) {
	path, err := getConfigPath(configPathFlag)
	if err != nil {
		return BoothConfig{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetEnvPrefix("PHOTOBOOTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return BoothConfig{}, err
	}
	var config BoothConfig
	if err := v.Unmarshal(&config); err != nil {
		return BoothConfig{}, err
	}

	// Store the path from which the config was loaded.
	config.path = path

	return config, nil
}
