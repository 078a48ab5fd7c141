package identity

import (
	"context"

	"turnos/shift-service/internal/models"
)

// Directory resolves user records with a cached bearer token in front of
// every authenticated identity-service call.
type Directory struct {
	client *Client
	tokens *TokenCache
}

func NewDirectory(client *Client, tokens *TokenCache) *Directory {
	return &Directory{client: client, tokens: tokens}
}

func (d *Directory) ResolveUser(ctx context.Context, id string) (models.User, error) {
	token, err := d.tokens.Token(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return d.client.UserByID(ctx, id, token)
}

func (d *Directory) Users(ctx context.Context, requesterID string) ([]models.User, error) {
	token, err := d.tokens.Token(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return d.client.Users(ctx, token)
}
