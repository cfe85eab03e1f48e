package config

import "os"

// CredentialSource represents where a credential comes from.
type CredentialSource string

const (
	CredSourceEnv    CredentialSource = "env"
	CredSourceConfig CredentialSource = "config"
	CredSourceNone   CredentialSource = "none"
)

// CredentialStatus represents the status of a configured credential.
type CredentialStatus struct {
	Name   string           `json:"name"`
	Source CredentialSource `json:"source"`
	IsSet  bool             `json:"is_set"`
	Masked string           `json:"masked,omitempty"`
}

// CheckCredentials returns the status of the credentials the pipeline needs.
// Only the WRDS bond returns source is gated; the Treasury and factors files
// are public downloads.
func CheckCredentials(cfg *Config) []CredentialStatus {
	return []CredentialStatus{
		checkCredential("WRDS Username", cfg.WRDS.Username, "BONDSPREAD_WRDS_USERNAME"),
		checkCredential("WRDS Password", cfg.WRDS.Password, "BONDSPREAD_WRDS_PASSWORD"),
	}
}

// checkCredential checks if a credential is set and where it came from.
func checkCredential(name, value, envVar string) CredentialStatus {
	status := CredentialStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value != "" {
		if os.Getenv(envVar) != "" {
			status.Source = CredSourceEnv
		} else {
			status.Source = CredSourceConfig
		}
		status.Masked = maskCredential(value)
	} else {
		status.Source = CredSourceNone
	}

	return status
}

// maskCredential masks a credential for display, showing only the first and
// last two characters.
func maskCredential(v string) string {
	if len(v) <= 6 {
		return "***"
	}
	return v[:2] + "..." + v[len(v)-2:]
}
