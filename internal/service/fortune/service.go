// Package fortune serves the daily luck reading.
package fortune

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNameRequired = errors.New("name is required")
	ErrUnavailable  = errors.New("fortune teller unavailable")
)

// Teller produces a fortune for a name. ai.Service implements it.
type Teller interface {
	Fortune(ctx context.Context, name string) (string, error)
}

// Service validates requests before asking the teller.
type Service struct {
	teller Teller
}

// NewService returns a Service; a nil teller makes every reading unavailable.
func NewService(teller Teller) *Service {
	return &Service{teller: teller}
}

// Available reports whether readings can be produced.
func (s *Service) Available() bool {
	return s != nil && s.teller != nil
}

// Tell 返回今日运势文本（保留 markup，由客户端渲染）。
func (s *Service) Tell(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if !s.Available() {
		return "", ErrUnavailable
	}

	fortune, err := s.teller.Fortune(ctx, name)
	if err != nil {
		return "", fmt.Errorf("tell fortune: %w", err)
	}
	return fortune, nil
}
