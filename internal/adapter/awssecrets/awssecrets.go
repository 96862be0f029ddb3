// Package awssecrets persists the API token pair in an AWS Secrets Manager
// secret whose string value is a JSON object carrying both token keys. It is
// the active backend inside Lambda or when the cloud backend is forced.
package awssecrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"kaya-scraper/internal/domain"
)

// SecretsAPI is the subset of the Secrets Manager client the provider needs.
// Narrowing the SDK surface keeps the provider testable without AWS.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
}

type secretPayload struct {
	AccessToken  string `json:"KAYA_API_TOKEN"`
	RefreshToken string `json:"KAYA_REFRESH_TOKEN"`
}

// Provider implements ports.CredentialProvider against Secrets Manager.
type Provider struct {
	api        SecretsAPI
	secretName string

	mu     sync.Mutex
	cached *domain.CredentialPair
}

// New builds a provider with the default AWS config chain (env, shared
// config, instance role).
func New(ctx context.Context, secretName string) (*Provider, error) {
	if secretName == "" {
		return nil, errors.New("awssecrets: secret name is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("awssecrets: loading aws config: %w", err)
	}
	return NewWithAPI(secretsmanager.NewFromConfig(cfg), secretName), nil
}

// NewWithAPI builds a provider around an existing API client.
func NewWithAPI(api SecretsAPI, secretName string) *Provider {
	return &Provider{api: api, secretName: secretName}
}

func (p *Provider) Load(ctx context.Context) (domain.CredentialPair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return *p.cached, nil
	}
	out, err := p.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretName),
	})
	if err != nil {
		return domain.CredentialPair{}, fmt.Errorf("awssecrets: reading secret %s: %w", p.secretName, err)
	}
	var payload secretPayload
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &payload); err != nil {
		return domain.CredentialPair{}, fmt.Errorf("awssecrets: decoding secret %s: %w", p.secretName, err)
	}
	if payload.AccessToken == "" || payload.RefreshToken == "" {
		return domain.CredentialPair{}, fmt.Errorf("awssecrets: secret %s is missing token keys", p.secretName)
	}
	pair := domain.CredentialPair{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}
	p.cached = &pair
	return pair, nil
}

func (p *Provider) Save(ctx context.Context, pair domain.CredentialPair) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	payload, err := json.Marshal(secretPayload{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
	if err != nil {
		return err
	}
	_, err = p.api.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(p.secretName),
		SecretString: aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("awssecrets: writing secret %s: %w", p.secretName, err)
	}
	p.cached = &pair
	return nil
}
