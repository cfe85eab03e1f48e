// Package providers initializes and registers all concrete data providers
// with the global provider registry.
package providers

import (
	"github.com/openbondlab/bondspread/internal/provider"
	"github.com/openbondlab/bondspread/internal/providers/hkm"
	"github.com/openbondlab/bondspread/internal/providers/openbond"
	"github.com/openbondlab/bondspread/internal/providers/wrds"
)

// RegisterAll creates and registers all available providers with the global
// registry. The WRDS provider is only registered when both credentials are
// present; the other sources are free.
func RegisterAll(wrdsUsername, wrdsPassword string) error {
	return RegisterAllTo(provider.Global(), wrdsUsername, wrdsPassword)
}

// RegisterAllTo registers all available providers to the given registry.
func RegisterAllTo(reg *provider.Registry, wrdsUsername, wrdsPassword string) error {
	// --- Open Source Bond Asset Pricing (free) ---
	ob := openbond.New()
	if err := ob.Init(nil); err != nil {
		return err
	}
	if err := reg.Register(ob); err != nil {
		return err
	}

	// --- He-Kelly-Manela published factors (free) ---
	hk := hkm.New()
	if err := hk.Init(nil); err != nil {
		return err
	}
	if err := reg.Register(hk); err != nil {
		return err
	}

	// --- WRDS (requires account) ---
	if wrdsUsername != "" && wrdsPassword != "" {
		wp := wrds.New()
		if err := wp.Init(map[string]string{
			"username": wrdsUsername,
			"password": wrdsPassword,
		}); err != nil {
			return err
		}
		if err := reg.Register(wp); err != nil {
			return err
		}
	}

	return nil
}
