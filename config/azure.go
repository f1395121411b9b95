package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// ErrSecretNotFound is returned by a SecretSource for an absent secret.
var ErrSecretNotFound = errors.New("secret not found")

// KeyVaultClient reads the map service's secrets from Azure Key Vault.
type KeyVaultClient struct {
	client *azsecrets.Client
}

// NewKeyVaultClient authenticates with DefaultAzureCredential (managed
// identity in Azure, the developer's az login locally).
func NewKeyVaultClient(vaultName string) (*KeyVaultClient, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azsecrets.NewClient(fmt.Sprintf("https://%s.vault.azure.net/", vaultName), cred, nil)
	if err != nil {
		return nil, fmt.Errorf("key vault client: %w", err)
	}
	return &KeyVaultClient{client: client}, nil
}

// GetSecret returns the latest version of the named secret. Absent or
// empty secrets yield ErrSecretNotFound.
func (kv *KeyVaultClient) GetSecret(ctx context.Context, name string) (string, error) {
	resp, err := kv.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%s: %w", name, ErrSecretNotFound)
		}
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}
	if resp.Value == nil || *resp.Value == "" {
		return "", fmt.Errorf("%s: %w", name, ErrSecretNotFound)
	}
	return *resp.Value, nil
}
