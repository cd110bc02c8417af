package chain

import (
	"context"
	"errors"
	"fmt"
	"os"

	filestore "github.com/bnema/huddle/internal/adapters/secrets/file"
	passstore "github.com/bnema/huddle/internal/adapters/secrets/pass"
	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/ports"
)

type Store struct {
	primary   ports.SecretStore
	fallback  ports.SecretStore
	lookupEnv func(string) (string, bool)
}

var _ ports.SecretStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary secret store is nil")
	errNilFallbackStore = errors.New("fallback secret store is nil")
	errReadOnlyEnv      = errors.New("env:// references are read-only")
)

func NewStore(primary ports.SecretStore, fallback ports.SecretStore) *Store {
	store, err := NewStoreChecked(primary, fallback)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(primary ports.SecretStore, fallback ports.SecretStore) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	return &Store{primary: primary, fallback: fallback, lookupEnv: os.LookupEnv}, nil
}

func NewPassFirstWithFileFallback(fileRoot string) (*Store, error) {
	return NewStoreChecked(passstore.NewStore(), filestore.NewStore(fileRoot))
}

func (s *Store) Get(ctx context.Context, raw string) (string, error) {
	ref, err := domain.ParseSecretRef(raw)
	if err != nil {
		return "", err
	}

	switch ref.Scheme {
	case domain.SecretSchemeEnv:
		value, ok := s.lookupEnv(ref.Key)
		if !ok || value == "" {
			return "", fmt.Errorf("%w: environment variable %s", domain.ErrSecretNotFound, ref.Key)
		}
		return value, nil
	case domain.SecretSchemePass:
		return s.primary.Get(ctx, ref.String())
	case domain.SecretSchemeFile:
		return s.fallback.Get(ctx, ref.String())
	}

	value, err := s.primary.Get(ctx, ref.Key)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, ref.Key)
	if fallbackErr == nil {
		return fallbackValue, nil
	}

	return "", fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
}

func (s *Store) Put(ctx context.Context, raw string, value string) error {
	ref, err := domain.ParseSecretRef(raw)
	if err != nil {
		return err
	}

	switch ref.Scheme {
	case domain.SecretSchemeEnv:
		return fmt.Errorf("put %q: %w", ref, errReadOnlyEnv)
	case domain.SecretSchemePass:
		return s.primary.Put(ctx, ref.String(), value)
	case domain.SecretSchemeFile:
		return s.fallback.Put(ctx, ref.String(), value)
	}

	err = s.primary.Put(ctx, ref.Key, value)
	if err == nil {
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	if fallbackErr := s.fallback.Put(ctx, ref.Key, value); fallbackErr != nil {
		return fmt.Errorf("primary backend put failed: %w; fallback backend put failed: %w", err, fallbackErr)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, raw string) error {
	ref, err := domain.ParseSecretRef(raw)
	if err != nil {
		return err
	}

	switch ref.Scheme {
	case domain.SecretSchemeEnv:
		return fmt.Errorf("delete %q: %w", ref, errReadOnlyEnv)
	case domain.SecretSchemePass:
		return s.primary.Delete(ctx, ref.String())
	case domain.SecretSchemeFile:
		return s.fallback.Delete(ctx, ref.String())
	}

	err = s.primary.Delete(ctx, ref.Key)
	if err == nil {
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	if fallbackErr := s.fallback.Delete(ctx, ref.Key); fallbackErr != nil {
		return fmt.Errorf("primary backend delete failed: %w; fallback backend delete failed: %w", err, fallbackErr)
	}
	return nil
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
