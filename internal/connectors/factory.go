package connectors

import (
	"demantive/internal/common/errs"
	"demantive/internal/common/models"
	"demantive/internal/config"
)

// ClientFactory builds a CRMClient for a provider and a fresh access token.
type ClientFactory interface {
	ClientFor(provider models.Provider, accessToken string) (CRMClient, error)
}

type ClientFactoryImpl struct {
	hubspotBaseURL string
}

func NewClientFactory(cfg *config.Config) ClientFactory {
	return &ClientFactoryImpl{hubspotBaseURL: cfg.HubSpotAPIBaseURL}
}

func (f *ClientFactoryImpl) ClientFor(provider models.Provider, accessToken string) (CRMClient, error) {
	switch provider {
	case models.ProviderHubSpot:
		return NewHubSpotClient(f.hubspotBaseURL, accessToken, nil), nil
	default:
		return nil, errs.ErrUnsupportedProvider
	}
}
