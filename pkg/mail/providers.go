package mail

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	TransportSMTP  = "smtp"
	TransportGmail = "gmail"
)

// DefaultProviderKey names the provider used when neither the user nor the organization has an override
const DefaultProviderKey = "default"

// ProviderConfig is the delivery configuration of one user, organization or the default
type ProviderConfig struct {
	Transport          string `yaml:"transport"`
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	SenderAddress      string `yaml:"sender_address"`
	SenderName         string `yaml:"sender_name"`
	RefreshToken       string `yaml:"refresh_token"` // Gmail transport only
}

// Providers holds the default provider with per-organization and per-user overrides
type Providers struct {
	Default       ProviderConfig            `yaml:"default"`
	Organizations map[string]ProviderConfig `yaml:"organizations"`
	Users         map[string]ProviderConfig `yaml:"users"`
}

// LoadProviders reads a providers YAML file. Fields missing from the file's
// default entry are taken from fallback.
func LoadProviders(path string, fallback ProviderConfig) (*Providers, error) {
	p := &Providers{Default: fallback}
	if path == "" {
		return p.normalize(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mail providers file: %w", err)
	}
	return ParseProviders(data, fallback)
}

// ParseProviders decodes providers YAML
func ParseProviders(data []byte, fallback ProviderConfig) (*Providers, error) {
	var p Providers
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse mail providers: %w", err)
	}
	p.Default = merge(p.Default, fallback)
	for name, org := range p.Organizations {
		if !knownTransport(org.Transport) {
			return nil, fmt.Errorf("organization %q: unknown transport %q", name, org.Transport)
		}
	}
	for name, user := range p.Users {
		if !knownTransport(user.Transport) {
			return nil, fmt.Errorf("user %q: unknown transport %q", name, user.Transport)
		}
	}
	if !knownTransport(p.Default.Transport) {
		return nil, fmt.Errorf("default provider: unknown transport %q", p.Default.Transport)
	}
	return p.normalize(), nil
}

func (p *Providers) normalize() *Providers {
	if p.Default.Transport == "" {
		p.Default.Transport = TransportSMTP
	}
	if p.Default.SenderName == "" {
		p.Default.SenderName = "Support Team"
	}
	if p.Organizations == nil {
		p.Organizations = map[string]ProviderConfig{}
	}
	if p.Users == nil {
		p.Users = map[string]ProviderConfig{}
	}
	for name, org := range p.Organizations {
		p.Organizations[name] = inherit(org, p.Default)
	}
	for name, user := range p.Users {
		p.Users[name] = inherit(user, p.Default)
	}
	return p
}

// Resolve returns the provider key and configuration for a sender identity.
// A user entry wins over the organization entry, which wins over the default.
func (p *Providers) Resolve(identity Identity) (string, ProviderConfig) {
	if identity.UserID != "" {
		if user, ok := p.Users[identity.UserID]; ok {
			return "user:" + identity.UserID, user
		}
	}
	if identity.OrganizationID != "" {
		if org, ok := p.Organizations[identity.OrganizationID]; ok {
			return "org:" + identity.OrganizationID, org
		}
	}
	return DefaultProviderKey, p.Default
}

func knownTransport(t string) bool {
	return t == "" || t == TransportSMTP || t == TransportGmail
}

// merge fills zero fields of primary from fallback
func merge(primary, fallback ProviderConfig) ProviderConfig {
	if primary.Transport == "" {
		primary.Transport = fallback.Transport
	}
	if primary.Host == "" {
		primary.Host = fallback.Host
	}
	if primary.Port == 0 {
		primary.Port = fallback.Port
	}
	if primary.Username == "" {
		primary.Username = fallback.Username
	}
	if primary.Password == "" {
		primary.Password = fallback.Password
	}
	if primary.SenderAddress == "" {
		primary.SenderAddress = fallback.SenderAddress
	}
	if primary.SenderName == "" {
		primary.SenderName = fallback.SenderName
	}
	if primary.RefreshToken == "" {
		primary.RefreshToken = fallback.RefreshToken
	}
	primary.InsecureSkipVerify = primary.InsecureSkipVerify || fallback.InsecureSkipVerify
	return primary
}

// inherit fills an override entry from the default provider when both use the same transport
func inherit(org, def ProviderConfig) ProviderConfig {
	if org.Transport == "" || org.Transport == def.Transport {
		return merge(org, def)
	}
	// A different transport does not inherit connection settings
	if org.SenderName == "" {
		org.SenderName = def.SenderName
	}
	return org
}
