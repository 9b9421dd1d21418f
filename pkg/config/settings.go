// Package config holds the settings for the module's command line tools.
package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings contains the application config.
type Settings struct {
	Environment string `yaml:"ENVIRONMENT"`
	LogLevel    string `yaml:"LOG_LEVEL"`

	// BaseURL is the enclave service to talk to.
	BaseURL string `yaml:"BASE_URL"`
	// VsockDialPort, when non-zero, dials the service over vsock instead of TCP.
	VsockDialPort uint32 `yaml:"VSOCK_DIAL_PORT"`
	// MockAttestation skips chain and signature verification. Local development only.
	MockAttestation bool `yaml:"MOCK_ATTESTATION"`
	// ExpectedPCRs pins measurement register values, hex encoded by index.
	ExpectedPCRs map[uint]string `yaml:"EXPECTED_PCRS"`

	// Port is the listen port for the mock enclave server.
	Port int `yaml:"PORT"`
	// MonPort is the listen port for the monitoring server.
	MonPort int `yaml:"MON_PORT"`
}

// LoadSettings reads and parses a YAML settings file.
func LoadSettings(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	var settings Settings
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return &settings, nil
}

// ExpectedPCRBytes decodes the hex-encoded measurement pins.
func (s *Settings) ExpectedPCRBytes() (map[uint][]byte, error) {
	if len(s.ExpectedPCRs) == 0 {
		return nil, nil
	}
	pins := make(map[uint][]byte, len(s.ExpectedPCRs))
	for index, value := range s.ExpectedPCRs {
		decoded, err := hex.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid hex value for PCR%d: %w", index, err)
		}
		pins[index] = decoded
	}
	return pins, nil
}
