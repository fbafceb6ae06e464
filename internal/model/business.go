package model

// BusinessInfo is the per-tenant metadata rendered into fixed responses.
type BusinessInfo struct {
	Name            string `json:"name" yaml:"name"`
	Phone           string `json:"phone" yaml:"phone"`
	Email           string `json:"email" yaml:"email"`
	Website         string `json:"website" yaml:"website"`
	InstagramHandle string `json:"instagram_handle,omitempty" yaml:"instagram_handle"`

	// GreetingTemplate replaces the default greeting when set.
	GreetingTemplate string `json:"greeting_template,omitempty" yaml:"greeting_template"`
	// WelcomeTemplate is shown on the first message of a session when set.
	WelcomeTemplate string `json:"welcome_template,omitempty" yaml:"welcome_template"`
}

// Defaults used when a tenant has not provided its own contact data.
const (
	DefaultPhone   = "0212 123 45 67"
	DefaultWebsite = "www.butik.com"
	DefaultEmail   = "info@butik.com"
)

// DefaultBusinessInfo returns the fallback business metadata.
func DefaultBusinessInfo() BusinessInfo {
	return BusinessInfo{
		Name:    "Butik",
		Phone:   DefaultPhone,
		Email:   DefaultEmail,
		Website: DefaultWebsite,
	}
}

// WithDefaults fills empty contact fields from DefaultBusinessInfo.
func (b BusinessInfo) WithDefaults() BusinessInfo {
	d := DefaultBusinessInfo()
	if b.Name == "" {
		b.Name = d.Name
	}
	if b.Phone == "" {
		b.Phone = d.Phone
	}
	if b.Email == "" {
		b.Email = d.Email
	}
	if b.Website == "" {
		b.Website = d.Website
	}
	return b
}
