// Package store persists credentials and vector stores for the reference
// gateway in SQLite. Secret config values are sealed at rest when a
// passphrase is configured and are always masked on read.
package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"vectorportal/internal/domain"
	"vectorportal/internal/security"
)

// Masked replaces secret values in everything the store hands out.
const Masked = "********"

const saltKey = "secrets_salt"

// Credential is a stored credential. Config never carries secret plaintext.
type Credential struct {
	ID           int64
	Name         string
	ProviderType string
	AuthType     string
	Description  string
	Config       domain.Values
	CreatedAt    time.Time
}

// Summary returns the list form of the credential.
func (c Credential) Summary() domain.CredentialSummary {
	return domain.CredentialSummary{
		ID:           c.ID,
		Name:         c.Name,
		ProviderType: c.ProviderType,
		AuthType:     c.AuthType,
		Description:  c.Description,
	}
}

// VectorStore is a stored vector-store configuration.
type VectorStore struct {
	ID           string
	Name         string
	ProviderType string
	CredentialID int64
	Description  string
	Config       domain.Values
	CreatedAt    time.Time
}

// SQLite implements the gateway repository on a single SQLite file.
type SQLite struct {
	db     *sql.DB
	box    *security.SecretBox
	logger *slog.Logger
}

// Open opens (or creates) the database at dbPath and runs migrations. An
// empty passphrase stores secret values in plaintext.
func Open(ctx context.Context, dbPath, passphrase string, logger *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrStoreFailed, err)
	}
	// SQLite write safety: single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrStoreFailed, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrStoreFailed, err)
	}

	s := &SQLite{db: db, logger: logger}
	if passphrase == "" {
		logger.Warn("secrets passphrase not set, secret values are stored unencrypted")
		return s, nil
	}
	salt, err := s.salt(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	box, err := security.NewSecretBox(passphrase, salt)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.box = box
	return s, nil
}

// salt loads the key-derivation salt, creating it on first use.
func (s *SQLite) salt(ctx context.Context) ([]byte, error) {
	var stored string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", saltKey).Scan(&stored)
	switch {
	case err == nil:
		salt, err := hex.DecodeString(stored)
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt salt: %v", domain.ErrStoreFailed, err)
		}
		return salt, nil
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("%w: read salt: %v", domain.ErrStoreFailed, err)
	}

	salt, err := security.NewSalt()
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", saltKey, hex.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("%w: write salt: %v", domain.ErrStoreFailed, err)
	}
	return salt, nil
}

// Encrypted reports whether secret values are sealed at rest.
func (s *SQLite) Encrypted() bool { return s.box != nil }

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s.box != nil {
		s.box.Zeroize()
	}
	return s.db.Close()
}

// CreateCredential stores a credential. secrets names the config keys that
// hold secret values.
func (s *SQLite) CreateCredential(ctx context.Context, p domain.CredentialPayload, secrets []string) (Credential, error) {
	cfg, err := s.sealConfig(p.Config, secrets)
	if err != nil {
		return Credential{}, err
	}
	secretJSON, err := json.Marshal(secrets)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: marshal secret fields: %v", domain.ErrStoreFailed, err)
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (name, provider_type, auth_type, config, description, created_at, secret_fields)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.ProviderType, p.AuthType, cfg, p.Description, now.Format(time.RFC3339Nano), string(secretJSON),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Credential{}, fmt.Errorf("%w: credential %q", domain.ErrDuplicate, p.Name)
		}
		return Credential{}, fmt.Errorf("%w: insert credential: %v", domain.ErrStoreFailed, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Credential{}, fmt.Errorf("%w: credential id: %v", domain.ErrStoreFailed, err)
	}
	return Credential{
		ID:           id,
		Name:         p.Name,
		ProviderType: p.ProviderType,
		AuthType:     p.AuthType,
		Description:  p.Description,
		Config:       maskConfig(p.Config, secrets),
		CreatedAt:    now,
	}, nil
}

// ListCredentials returns credentials of the given provider types in
// creation order. No types lists everything.
func (s *SQLite) ListCredentials(ctx context.Context, providerTypes ...string) ([]domain.CredentialSummary, error) {
	query := "SELECT id, name, provider_type, auth_type, description FROM credentials"
	args := make([]any, 0, len(providerTypes))
	if len(providerTypes) > 0 {
		query += " WHERE provider_type IN (?" + strings.Repeat(", ?", len(providerTypes)-1) + ")"
		for _, t := range providerTypes {
			args = append(args, t)
		}
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list credentials: %v", domain.ErrStoreFailed, err)
	}
	defer rows.Close()

	out := []domain.CredentialSummary{}
	for rows.Next() {
		var c domain.CredentialSummary
		if err := rows.Scan(&c.ID, &c.Name, &c.ProviderType, &c.AuthType, &c.Description); err != nil {
			return nil, fmt.Errorf("%w: scan credential: %v", domain.ErrStoreFailed, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCredential returns one credential with secret values masked.
func (s *SQLite) GetCredential(ctx context.Context, id int64) (Credential, error) {
	c, secrets, err := s.credential(ctx, id)
	if err != nil {
		return Credential{}, err
	}
	c.Config = maskConfig(c.Config, secrets)
	return c, nil
}

func (s *SQLite) credential(ctx context.Context, id int64) (Credential, []string, error) {
	var c Credential
	var cfgStr, secretStr, createdStr string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, provider_type, auth_type, description, config, secret_fields, created_at
		 FROM credentials WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.ProviderType, &c.AuthType, &c.Description, &cfgStr, &secretStr, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, nil, fmt.Errorf("%w: credential %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return Credential{}, nil, fmt.Errorf("%w: get credential: %v", domain.ErrStoreFailed, err)
	}
	var secrets []string
	if err := decodeRow(cfgStr, secretStr, &c.Config, &secrets); err != nil {
		return Credential{}, nil, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return c, secrets, nil
}

// CreateVectorStore stores a vector-store configuration under a new ULID.
// The referenced credential must exist.
func (s *SQLite) CreateVectorStore(ctx context.Context, p domain.VectorStorePayload, secrets []string) (VectorStore, error) {
	if _, _, err := s.credential(ctx, p.CredentialID); err != nil {
		return VectorStore{}, err
	}
	cfg, err := s.sealConfig(p.Config, secrets)
	if err != nil {
		return VectorStore{}, err
	}
	secretJSON, err := json.Marshal(secrets)
	if err != nil {
		return VectorStore{}, fmt.Errorf("%w: marshal secret fields: %v", domain.ErrStoreFailed, err)
	}
	now := time.Now().UTC()
	id := domain.NewID(now)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO vector_stores (id, name, provider_type, credential_id, config, description, created_at, secret_fields)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.DisplayName, p.ProviderType, p.CredentialID, cfg, p.Description, now.Format(time.RFC3339Nano), string(secretJSON),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return VectorStore{}, fmt.Errorf("%w: vector store %q", domain.ErrDuplicate, p.DisplayName)
		}
		return VectorStore{}, fmt.Errorf("%w: insert vector store: %v", domain.ErrStoreFailed, err)
	}
	return VectorStore{
		ID:           id,
		Name:         p.DisplayName,
		ProviderType: p.ProviderType,
		CredentialID: p.CredentialID,
		Description:  p.Description,
		Config:       maskConfig(p.Config, secrets),
		CreatedAt:    now,
	}, nil
}

// ListVectorStores returns every vector store, oldest first, with secret
// values masked.
func (s *SQLite) ListVectorStores(ctx context.Context) ([]VectorStore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, provider_type, credential_id, description, config, secret_fields, created_at
		 FROM vector_stores ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list vector stores: %v", domain.ErrStoreFailed, err)
	}
	defer rows.Close()

	out := []VectorStore{}
	for rows.Next() {
		var v VectorStore
		var cfgStr, secretStr, createdStr string
		var secrets []string
		if err := rows.Scan(&v.ID, &v.Name, &v.ProviderType, &v.CredentialID, &v.Description, &cfgStr, &secretStr, &createdStr); err != nil {
			return nil, fmt.Errorf("%w: scan vector store: %v", domain.ErrStoreFailed, err)
		}
		if err := decodeRow(cfgStr, secretStr, &v.Config, &secrets); err != nil {
			return nil, err
		}
		v.Config = maskConfig(v.Config, secrets)
		v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, v)
	}
	return out, rows.Err()
}

func decodeRow(cfgStr, secretStr string, cfg *domain.Values, secrets *[]string) error {
	if err := json.Unmarshal([]byte(cfgStr), cfg); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", domain.ErrStoreFailed, err)
	}
	if err := json.Unmarshal([]byte(secretStr), secrets); err != nil {
		return fmt.Errorf("%w: unmarshal secret fields: %v", domain.ErrStoreFailed, err)
	}
	return nil
}

func (s *SQLite) sealConfig(cfg domain.Values, secrets []string) (string, error) {
	out := cfg.Clone()
	if s.box != nil {
		for _, name := range secrets {
			v, ok := out[name].(string)
			if !ok || v == "" {
				continue
			}
			sealed, err := s.box.Seal(v)
			if err != nil {
				return "", err
			}
			out[name] = sealed
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("%w: marshal config: %v", domain.ErrStoreFailed, err)
	}
	return string(data), nil
}

func maskConfig(cfg domain.Values, secrets []string) domain.Values {
	out := cfg.Clone()
	for _, name := range secrets {
		if out.Has(name) {
			out[name] = Masked
		}
	}
	return out
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
