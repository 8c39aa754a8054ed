package core

import (
	"NovaCS/entity"
	"fmt"
)

// AuthenticateByToken resolves an API key to its owner. Keys seen once
// are cached; the repository is only hit on a miss.
func (c *Core) AuthenticateByToken(token string) (*entity.UserAuth, error) {
	c.mu.RLock()
	username, ok := c.keys[token]
	c.mu.RUnlock()
	if ok {
		return &entity.UserAuth{Username: username}, nil
	}

	if c.repo == nil {
		return nil, fmt.Errorf("repository is not set")
	}

	username, err := c.repo.CheckApiKey(token)
	if err != nil {
		return nil, fmt.Errorf("invalid api key: %w", err)
	}

	c.mu.Lock()
	c.keys[token] = username
	c.mu.Unlock()

	return &entity.UserAuth{Username: username}, nil
}

// ValidateToken is the websocket variant of AuthenticateByToken, where
// only the username is needed.
func (c *Core) ValidateToken(token string) (string, error) {
	user, err := c.AuthenticateByToken(token)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

func (c *Core) GenerateApiKey(username string) (string, error) {
	if c.repo == nil {
		return "", fmt.Errorf("repository is not set")
	}

	apiKey, err := c.repo.GenerateApiKey(username)
	if err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}

	c.mu.Lock()
	c.keys[apiKey] = username
	c.mu.Unlock()

	return apiKey, nil
}
