package instance

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Label keys stored on every managed container.
const (
	// LabelToolVersion marks a container as managed and holds the tool version that created it.
	LabelToolVersion = "dayo.mayo.manage.cli-version"

	// LabelParameters holds the encoded Parameters.
	LabelParameters = "dayo.mayo.manage.parameters"
)

// labelParameters is the wire form of Parameters. "tls" is null or [certificate, key].
type labelParameters struct {
	Name           string          `json:"name"`
	Version        *semver.Version `json:"version"`
	Port           uint16          `json:"port"`
	Authentication bool            `json:"authentication"`
	TLS            []string        `json:"tls"`
}

// EncodeLabel serializes parameters for LabelParameters.
func (p Parameters) EncodeLabel() (string, error) {
	wire := labelParameters{
		Name:           p.Name,
		Version:        p.WorkloadVersion,
		Port:           p.Port,
		Authentication: p.AuthenticationRequired,
	}
	if p.TLS != nil {
		wire.TLS = []string{p.TLS.Certificate, p.TLS.Key}
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("failed to encode parameters of %s: %w", p.Name, err)
	}
	return string(data), nil
}

// DecodeLabel parses a LabelParameters value.
func DecodeLabel(value string) (Parameters, error) {
	var wire labelParameters
	if err := json.Unmarshal([]byte(value), &wire); err != nil {
		return Parameters{}, fmt.Errorf("%w: %w", ErrMalformedMetadata, err)
	}
	if wire.Name == "" || wire.Version == nil {
		return Parameters{}, fmt.Errorf("%w: name and version are required", ErrMalformedMetadata)
	}

	p := Parameters{
		Name:                   wire.Name,
		WorkloadVersion:        wire.Version,
		Port:                   wire.Port,
		AuthenticationRequired: wire.Authentication,
	}
	switch len(wire.TLS) {
	case 0:
	case 2:
		p.TLS = &TLSMaterial{Certificate: wire.TLS[0], Key: wire.TLS[1]}
	default:
		return Parameters{}, fmt.Errorf("%w: tls must hold a certificate and a key", ErrMalformedMetadata)
	}
	return p, nil
}

// FromLabels decodes the parameters attached to a container. A missing label is malformed.
func FromLabels(labels map[string]string) (Parameters, error) {
	value, ok := labels[LabelParameters]
	if !ok {
		return Parameters{}, fmt.Errorf("%w: missing %s label", ErrMalformedMetadata, LabelParameters)
	}
	return DecodeLabel(value)
}

// Labels returns the metadata for a container created by toolVersion.
func (p Parameters) Labels(toolVersion string) (map[string]string, error) {
	encoded, err := p.EncodeLabel()
	if err != nil {
		return nil, err
	}
	return map[string]string{
		LabelToolVersion: toolVersion,
		LabelParameters:  encoded,
	}, nil
}
